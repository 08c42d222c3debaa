package response

import "net/http"

// messages used when a handler supplies none
var statusText = map[int]string{
	http.StatusBadRequest:            "bad request",
	http.StatusUnauthorized:          "unauthorized",
	http.StatusForbidden:             "forbidden",
	http.StatusNotFound:              "not found",
	http.StatusConflict:              "conflict",
	http.StatusRequestEntityTooLarge: "request body too large",
	http.StatusTooManyRequests:       "too many requests",
	http.StatusInternalServerError:   "internal server error",
	http.StatusServiceUnavailable:    "service unavailable",
	http.StatusGatewayTimeout:        "timeout",
}

func StatusText(status int) string {
	if s, ok := statusText[status]; ok {
		return s
	}
	return http.StatusText(status)
}
