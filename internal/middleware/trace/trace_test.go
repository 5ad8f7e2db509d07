package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddleware(t *testing.T) {
	var seen string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	tests := []struct {
		name     string
		incoming string
		reuse    bool
	}{
		{"generated", "", false},
		{"reused", "abc-123", true},
		{"rejected", "bad id\n", false},
		{"too long", strings.Repeat("a", 65), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.incoming != "" {
				req.Header.Set(HeaderRequestID, tc.incoming)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if seen == "" || rr.Header().Get(HeaderRequestID) != seen {
				t.Fatalf("context id %q, header %q", seen, rr.Header().Get(HeaderRequestID))
			}
			if tc.reuse != (seen == tc.incoming) {
				t.Fatalf("id = %q, incoming %q, reuse %v", seen, tc.incoming, tc.reuse)
			}
			if !tc.reuse && !strings.HasPrefix(seen, "req_") {
				t.Fatalf("generated id %q lacks prefix", seen)
			}
		})
	}
}
