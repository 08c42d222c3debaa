package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-gorm-users/internal/core/auth"
	"go-gin-gorm-users/internal/domain"
	"go-gin-gorm-users/internal/service"
	"go-gin-gorm-users/internal/transport/http/ez"
	mdw "go-gin-gorm-users/internal/transport/http/middleware"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeUsers struct {
	listFn    func(page, limit int) (service.ListResult, error)
	searchFn  func(term string, page, limit int) (service.SearchResult, error)
	getFn     func(id uint) (*domain.User, error)
	createFn  func(in domain.CreateUserInput) (*domain.User, error)
	updateFn  func(id uint, in domain.UpdateUserInput) (*domain.User, error)
	deleteFn  func(id uint) error
	statsFn   func() (domain.Stats, error)
	setRoleFn func(id uint, role string) (*domain.User, error)
	pingErr   error
}

func (f *fakeUsers) List(_ context.Context, page, limit int) (service.ListResult, error) {
	return f.listFn(page, limit)
}
func (f *fakeUsers) Search(_ context.Context, term string, page, limit int) (service.SearchResult, error) {
	return f.searchFn(term, page, limit)
}
func (f *fakeUsers) Get(_ context.Context, id uint) (*domain.User, error) { return f.getFn(id) }
func (f *fakeUsers) Create(_ context.Context, in domain.CreateUserInput) (*domain.User, error) {
	return f.createFn(in)
}
func (f *fakeUsers) Update(_ context.Context, id uint, in domain.UpdateUserInput) (*domain.User, error) {
	return f.updateFn(id, in)
}
func (f *fakeUsers) Delete(_ context.Context, id uint) error     { return f.deleteFn(id) }
func (f *fakeUsers) Stats(context.Context) (domain.Stats, error) { return f.statsFn() }
func (f *fakeUsers) SetRole(_ context.Context, id uint, role string) (*domain.User, error) {
	return f.setRoleFn(id, role)
}
func (f *fakeUsers) Ping(context.Context) error { return f.pingErr }

type fakeAuth struct {
	registerFn func(in domain.RegisterInput) (service.AuthResult, error)
	loginFn    func(email, password string) (service.AuthResult, error)
	verifyFn   func(token string) (*auth.Claims, error)
	meFn       func(uid uint) (*domain.User, error)
}

func (f *fakeAuth) Register(_ context.Context, in domain.RegisterInput) (service.AuthResult, error) {
	return f.registerFn(in)
}
func (f *fakeAuth) Login(_ context.Context, email, password string) (service.AuthResult, error) {
	return f.loginFn(email, password)
}
func (f *fakeAuth) VerifyToken(token string) (*auth.Claims, error) { return f.verifyFn(token) }
func (f *fakeAuth) Me(_ context.Context, uid uint) (*domain.User, error) {
	return f.meFn(uid)
}

type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Message string              `json:"message"`
	Error   string              `json:"error"`
	Details []domain.FieldError `json:"details"`
}

func mount[I any, O any](a ez.Action[I, O]) *gin.Engine {
	r := gin.New()
	r.Use(mdw.RequestID())
	ez.Register(ez.New(r.Group(""), zap.NewNop()), a)
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string, hdr ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("body is not an envelope: %v (%s)", err, w.Body.String())
		}
	}
	return w, env
}

func TestUserHandler_Create(t *testing.T) {
	var got domain.CreateUserInput
	h := NewUserHandler(&fakeUsers{createFn: func(in domain.CreateUserInput) (*domain.User, error) {
		got = in
		if in.Email == "taken@example.com" {
			return nil, domain.Conflict("email already exists")
		}
		return &domain.User{ID: 1, Name: in.Name, Email: in.Email, Role: domain.RoleUser, IsActive: true}, nil
	}})
	r := mount(ez.Action[domain.CreateUserInput, *domain.User]{
		Method: http.MethodPost, Path: "/users", Binder: ez.BindJSON,
		Status: http.StatusCreated, Message: "user created", Handler: h.Create,
	})

	w, env := do(t, r, http.MethodPost, "/users", `{"name":"  Ann Lee ","email":"ann@example.com","age":30}`)
	if w.Code != http.StatusCreated || !env.Success || env.Message != "user created" {
		t.Fatalf("create: %d %+v", w.Code, env)
	}
	if got.Name != "Ann Lee" {
		t.Fatalf("name not trimmed: %q", got.Name)
	}
	var u domain.User
	_ = json.Unmarshal(env.Data, &u)
	if u.ID != 1 || u.Email != "ann@example.com" {
		t.Fatalf("data: %+v", u)
	}

	w, env = do(t, r, http.MethodPost, "/users", `{"name":"A","email":"nope"}`)
	if w.Code != http.StatusBadRequest || len(env.Details) != 2 {
		t.Fatalf("invalid body: %d %+v", w.Code, env)
	}

	w, env = do(t, r, http.MethodPost, "/users", `{"name":"Ann","email":"taken@example.com"}`)
	if w.Code != http.StatusConflict || env.Error != "email already exists" {
		t.Fatalf("conflict: %d %+v", w.Code, env)
	}
}

func TestUserHandler_GetAndDelete(t *testing.T) {
	users := &fakeUsers{
		getFn: func(id uint) (*domain.User, error) {
			switch id {
			case 7:
				return &domain.User{ID: 7, Name: "Jo"}, nil
			case 8:
				return nil, domain.Storage("storage failure", errors.New("connection refused"))
			}
			return nil, domain.NotFound("user not found")
		},
		deleteFn: func(id uint) error {
			if id != 7 {
				return domain.NotFound("user not found")
			}
			return nil
		},
	}
	h := NewUserHandler(users)
	r := gin.New()
	e := ez.New(r.Group(""), zap.NewNop())
	ez.Register(e, ez.Action[struct{}, *domain.User]{Method: http.MethodGet, Path: "/users/:id", Binder: ez.BindNone, Handler: h.Get})
	ez.Register(e, ez.Action[struct{}, any]{Method: http.MethodDelete, Path: "/users/:id", Binder: ez.BindNone, Message: "user deleted", Handler: h.Delete})

	cases := []struct {
		method, path string
		want         int
		wantErr      string
	}{
		{http.MethodGet, "/users/7", http.StatusOK, ""},
		{http.MethodGet, "/users/9", http.StatusNotFound, "user not found"},
		{http.MethodGet, "/users/abc", http.StatusBadRequest, "invalid id"},
		{http.MethodGet, "/users/0", http.StatusBadRequest, "invalid id"},
		{http.MethodGet, "/users/8", http.StatusInternalServerError, "internal server error"},
		{http.MethodDelete, "/users/7", http.StatusOK, ""},
		{http.MethodDelete, "/users/9", http.StatusNotFound, "user not found"},
	}
	for _, tc := range cases {
		w, env := do(t, r, tc.method, tc.path, "")
		if w.Code != tc.want || env.Error != tc.wantErr {
			t.Errorf("%s %s: got %d %q, want %d %q", tc.method, tc.path, w.Code, env.Error, tc.want, tc.wantErr)
		}
		if strings.Contains(w.Body.String(), "connection refused") {
			t.Errorf("%s %s leaked the storage cause", tc.method, tc.path)
		}
	}

	_, env := do(t, r, http.MethodDelete, "/users/7", "")
	if env.Message != "user deleted" || string(env.Data) != "" {
		t.Fatalf("delete envelope: %+v", env)
	}
}

func TestUserHandler_ListQuery(t *testing.T) {
	var gotPage, gotLimit int
	h := NewUserHandler(&fakeUsers{listFn: func(page, limit int) (service.ListResult, error) {
		gotPage, gotLimit = page, limit
		return service.ListResult{Users: []domain.User{}, Pagination: domain.NewPagination(domain.Page{Page: 2, Limit: 5}, 11)}, nil
	}})
	r := mount(ez.Action[ListQuery, service.ListResult]{Method: http.MethodGet, Path: "/users", Binder: ez.BindQuery, Handler: h.List})

	w, env := do(t, r, http.MethodGet, "/users?page=2&limit=5", "")
	if w.Code != http.StatusOK || gotPage != 2 || gotLimit != 5 {
		t.Fatalf("list: %d page=%d limit=%d", w.Code, gotPage, gotLimit)
	}
	var out struct {
		Users      []domain.User     `json:"users"`
		Pagination domain.Pagination `json:"pagination"`
	}
	_ = json.Unmarshal(env.Data, &out)
	if out.Users == nil || out.Pagination.Pages != 3 {
		t.Fatalf("data: %s", env.Data)
	}

	w, env = do(t, r, http.MethodGet, "/users?page=abc", "")
	if w.Code != http.StatusBadRequest || env.Error != "invalid query parameters" {
		t.Fatalf("bad query: %d %+v", w.Code, env)
	}
}

func TestAuthHandler_LoginHidesWhichCheckFailed(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{loginFn: func(email, password string) (service.AuthResult, error) {
		switch {
		case email != "ann@example.com":
			return service.AuthResult{}, domain.NotFound("user not found")
		case password != "secret1":
			return service.AuthResult{}, domain.Unauthorized("invalid credentials")
		}
		return service.AuthResult{Token: "tok", User: domain.User{ID: 1, Email: email}}, nil
	}})
	r := mount(ez.Action[domain.LoginInput, service.AuthResult]{Method: http.MethodPost, Path: "/auth/login", Binder: ez.BindJSON, Handler: h.Login})

	w, env := do(t, r, http.MethodPost, "/auth/login", `{"email":"ann@example.com","password":"secret1"}`)
	if w.Code != http.StatusOK || !strings.Contains(string(env.Data), `"token":"tok"`) {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}

	for _, body := range []string{
		`{"email":"bob@example.com","password":"secret1"}`,
		`{"email":"ann@example.com","password":"wrong"}`,
	} {
		w, env := do(t, r, http.MethodPost, "/auth/login", body)
		if w.Code != http.StatusUnauthorized || env.Error != "invalid email or password" {
			t.Errorf("%s: %d %+v", body, w.Code, env)
		}
	}

	w, env = do(t, r, http.MethodPost, "/auth/login", `{"email":"ann@example.com"}`)
	if w.Code != http.StatusBadRequest || len(env.Details) != 1 || env.Details[0].Field != "password" {
		t.Fatalf("missing password: %d %+v", w.Code, env)
	}
}

func TestAuthHandler_VerifyAndMe(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{
		verifyFn: func(token string) (*auth.Claims, error) {
			if token != "good" {
				return nil, domain.Unauthorized("invalid token")
			}
			return &auth.Claims{UserID: 3, Email: "c@example.com", Role: domain.RoleUser}, nil
		},
		meFn: func(uid uint) (*domain.User, error) {
			return &domain.User{ID: uid, Email: "c@example.com"}, nil
		},
	})
	r := gin.New()
	e := ez.New(r.Group(""), zap.NewNop())
	ez.Register(e, ez.Action[struct{}, *auth.Claims]{Method: http.MethodGet, Path: "/auth/verify", Binder: ez.BindNone, Handler: h.Verify})
	ez.Register(e, ez.Action[struct{}, MeOut]{Method: http.MethodGet, Path: "/auth/me", Binder: ez.BindNone, Handler: h.Me})

	w, env := do(t, r, http.MethodGet, "/auth/verify", "", "Authorization", "Bearer good")
	if w.Code != http.StatusOK || !strings.Contains(string(env.Data), `"userId":3`) {
		t.Fatalf("verify: %d %s", w.Code, w.Body.String())
	}
	w, env = do(t, r, http.MethodGet, "/auth/verify", "", "Authorization", "Bearer bad")
	if w.Code != http.StatusUnauthorized || env.Error != "invalid token" {
		t.Fatalf("verify bad: %d %+v", w.Code, env)
	}
	w, env = do(t, r, http.MethodGet, "/auth/verify", "")
	if w.Code != http.StatusUnauthorized || env.Error != "missing token" {
		t.Fatalf("verify missing: %d %+v", w.Code, env)
	}

	// no AuthJWT in front, so there are no claims on the context
	w, _ = do(t, r, http.MethodGet, "/auth/me", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("me without claims: %d", w.Code)
	}
}

func TestAdminHandler_SetRole(t *testing.T) {
	h := NewAdminHandler(&fakeUsers{setRoleFn: func(id uint, role string) (*domain.User, error) {
		return &domain.User{ID: id, Role: role}, nil
	}})
	r := mount(ez.Action[domain.RoleInput, *domain.User]{Method: http.MethodPut, Path: "/users/:id/role", Binder: ez.BindJSON, Handler: h.SetRole})

	w, env := do(t, r, http.MethodPut, "/users/4/role", `{"role":" Admin "}`)
	if w.Code != http.StatusOK || !strings.Contains(string(env.Data), `"role":"admin"`) {
		t.Fatalf("set role: %d %s", w.Code, w.Body.String())
	}
	w, env = do(t, r, http.MethodPut, "/users/4/role", `{"role":"root"}`)
	if w.Code != http.StatusBadRequest || env.Details[0].Rule != "oneof" {
		t.Fatalf("bad role: %d %+v", w.Code, env)
	}
}

func TestSystemHandler(t *testing.T) {
	users := &fakeUsers{}
	sys := NewSystemHandler("users-api", users)
	r := gin.New()
	r.GET("/", sys.Index(r.Routes))
	r.GET("/health", sys.Health)

	w, env := do(t, r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || !strings.Contains(string(env.Data), `"db":"up"`) {
		t.Fatalf("health: %d %s", w.Code, w.Body.String())
	}

	users.pingErr = errors.New("dial tcp: refused")
	w, env = do(t, r, http.MethodGet, "/health", "")
	if w.Code != http.StatusServiceUnavailable || env.Success {
		t.Fatalf("health down: %d %s", w.Code, w.Body.String())
	}

	_, env = do(t, r, http.MethodGet, "/", "")
	if !strings.Contains(string(env.Data), `"GET /health"`) {
		t.Fatalf("index: %s", env.Data)
	}
}
