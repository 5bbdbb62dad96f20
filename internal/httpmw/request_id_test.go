package httpmw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc")
	if got := RequestIDFromContext(ctx); got != "abc" {
		t.Fatalf("got %q", got)
	}
	if WithRequestID(context.Background(), "") != context.Background() {
		t.Fatal("empty id should leave ctx untouched")
	}
	if RequestIDFromContext(context.Background()) != "" {
		t.Fatal("missing id should be empty")
	}
}

func serveRequestID(t *testing.T, header, incoming string) (ctxID, respID string) {
	t.Helper()
	h := RequestID(header)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = RequestIDFromContext(r.Context())
	}))
	name := header
	if name == "" {
		name = "X-Request-Id"
	}
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	if incoming != "" {
		req.Header.Set(name, incoming)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return ctxID, rec.Header().Get(name)
}

func TestRequestID_Generates(t *testing.T) {
	ctxID, respID := serveRequestID(t, "", "")
	if _, err := uuid.Parse(ctxID); err != nil {
		t.Fatalf("generated id %q is not a uuid: %v", ctxID, err)
	}
	if respID != ctxID {
		t.Fatalf("response id %q != context id %q", respID, ctxID)
	}
	other, _ := serveRequestID(t, "", "")
	if other == ctxID {
		t.Fatal("ids should be unique per request")
	}
}

func TestRequestID_Propagates(t *testing.T) {
	ctxID, respID := serveRequestID(t, "X-Correlation-Id", "upstream-123")
	if ctxID != "upstream-123" || respID != "upstream-123" {
		t.Fatalf("ctx=%q resp=%q", ctxID, respID)
	}
}

func TestRequestID_ReplacesMalformed(t *testing.T) {
	for _, bad := range []string{strings.Repeat("a", maxRequestIDLen+1), "has space", "tab\tid"} {
		ctxID, _ := serveRequestID(t, "", bad)
		if ctxID == bad {
			t.Errorf("malformed id %q should be replaced", bad)
		}
	}
}
