package httpmw

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ContentKindHeader is set by the site handler to the pipeline stage that
// produced the response.
const ContentKindHeader = "X-Content-Kind"

// AnnotateContentKind copies the content kind chosen by the handler onto
// the request span.
func AnnotateContentKind(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		kind := w.Header().Get(ContentKindHeader)
		if kind == "" {
			return
		}
		if span := trace.SpanFromContext(r.Context()); span.IsRecording() {
			span.SetAttributes(attribute.String("content.kind", kind))
		}
	})
}
