package routing

import (
	"encoding/json"
	"net/http"
	"strings"
)

// RouteClass tags a route surface so error envelopes stay uniform across
// the API. The permission engine only exposes JSON APIs.
type RouteClass string

const (
	RouteClassInternalAPI RouteClass = "internal_api"
	RouteClassPublicAPI   RouteClass = "public_api"
	RouteClassOps         RouteClass = "ops"
)

type ErrorEnvelope struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	TraceID string            `json:"trace_id"`
	Meta    ErrorEnvelopeMeta `json:"meta"`
}

type ErrorEnvelopeMeta struct {
	Path   string `json:"path"`
	Method string `json:"method"`
}

func WriteError(w http.ResponseWriter, r *http.Request, rc RouteClass, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorEnvelope{
		Code:    code,
		Message: message,
		TraceID: traceIDFromRequest(r),
		Meta: ErrorEnvelopeMeta{
			Path:   r.URL.Path,
			Method: r.Method,
		},
	})
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func traceIDFromRequest(r *http.Request) string {
	traceparent := strings.TrimSpace(r.Header.Get("traceparent"))
	if traceparent == "" {
		return ""
	}
	parts := strings.Split(traceparent, "-")
	if len(parts) != 4 {
		return ""
	}
	traceID := strings.ToLower(parts[1])
	if len(traceID) != 32 || traceID == strings.Repeat("0", 32) {
		return ""
	}
	for _, ch := range traceID {
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
			return ""
		}
	}
	return traceID
}
