package routing

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestWriteError_Envelope(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("POST", "/api/permissions/schemas/User/versions", nil)
	r.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	w := httptest.NewRecorder()

	WriteError(w, r, RouteClassInternalAPI, 409, "ACTIVE_POLICY_CONFLICT", "active policy conflict")

	if w.Code != 409 {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("content-type=%q", ct)
	}
	var env ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Code != "ACTIVE_POLICY_CONFLICT" {
		t.Fatalf("code=%q", env.Code)
	}
	if env.TraceID != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("trace_id=%q", env.TraceID)
	}
	if env.Meta.Path != "/api/permissions/schemas/User/versions" || env.Meta.Method != "POST" {
		t.Fatalf("meta=%+v", env.Meta)
	}
}

func TestTraceIDFromRequest_Invalid(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"not-a-traceparent",
		"00-zzzz-span-01",
		"00-00000000000000000000000000000000-00f067aa0ba902b7-01",
		"00-abc-def-01",
	}
	for _, tc := range cases {
		r := httptest.NewRequest("GET", "/", nil)
		if tc != "" {
			r.Header.Set("traceparent", tc)
		}
		if got := traceIDFromRequest(r); got != "" {
			t.Fatalf("traceparent=%q got=%q", tc, got)
		}
	}
}
