package health

import (
	"io"
	"net/http"
)

// HealthzHandler answers "ok" while p passes and 503 with the reason
// otherwise. A nil probe always passes.
func HealthzHandler(p Probe) http.HandlerFunc { return probeHandler(p, "ok\n") }

// ReadyzHandler is HealthzHandler with a "ready" body.
func ReadyzHandler(p Probe) http.HandlerFunc { return probeHandler(p, "ready\n") }

func probeHandler(p Probe, okBody string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cache-Control", "no-store")
		h.Set("Content-Type", "text/plain; charset=utf-8")

		body, code := okBody, http.StatusOK
		if p != nil {
			if err := p.Check(r.Context()); err != nil {
				body, code = err.Error()+"\n", http.StatusServiceUnavailable
			}
		}
		w.WriteHeader(code)
		if r.Method != http.MethodHead {
			_, _ = io.WriteString(w, body)
		}
	}
}
