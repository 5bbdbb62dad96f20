package httpmw

import (
	"net/http"
	"time"
)

// responseWriter records the status, body size and time to first byte of
// a response for AccessLog.
type responseWriter struct {
	http.ResponseWriter
	status int
	bytes  int64

	start time.Time
	ttfb  time.Duration
}

func (rw *responseWriter) firstByte() {
	if rw.status == 0 && !rw.start.IsZero() {
		rw.ttfb = time.Since(rw.start)
	}
}

func (rw *responseWriter) statusOrOK() int {
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.firstByte()
	if rw.status == 0 {
		rw.status = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.firstByte()
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }
