package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	resp "go-gin-gorm-users/internal/transport/http/response"
)

type Pinger interface{ Ping(ctx context.Context) error }

type SystemHandler struct {
	name string
	db   Pinger
}

func NewSystemHandler(name string, db Pinger) *SystemHandler {
	return &SystemHandler{name: name, db: db}
}

// Health pings the store with a short deadline; a failed ping is a 503.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		r := resp.Error(http.StatusServiceUnavailable, "")
		r.Data = gin.H{"status": "degraded", "db": "down"}
		resp.JSON(c, http.StatusServiceUnavailable, r)
		return
	}
	resp.JSON(c, http.StatusOK, resp.OK(gin.H{"status": "ok", "db": "up"}))
}

// Index lists the mounted routes; routes is read per request so it sees the final table.
func (h *SystemHandler) Index(routes func() gin.RoutesInfo) gin.HandlerFunc {
	return func(c *gin.Context) {
		eps := make([]string, 0)
		for _, r := range routes() {
			eps = append(eps, r.Method+" "+r.Path)
		}
		sort.Strings(eps)
		resp.JSON(c, http.StatusOK, resp.OKMsg(gin.H{"name": h.name, "endpoints": eps}, h.name+" is running"))
	}
}
