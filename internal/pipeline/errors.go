package pipeline

import "errors"

var (
	// ErrNotFound is bound as .error into the 404 template.
	ErrNotFound = errors.New("not found")

	// ErrDataAggregation wraps datactx.ErrLoad failures.
	ErrDataAggregation = errors.New("pipeline: data aggregation failed")
	// ErrRender covers template parse/execute and markdown conversion.
	ErrRender = errors.New("pipeline: render failed")
	// ErrMarkupRead is a read failure on a markup file that was opened.
	ErrMarkupRead = errors.New("pipeline: markup read failed")
	// ErrRead is a read failure on any other file that was opened.
	ErrRead = errors.New("pipeline: content read failed")

	ErrInvalidConfig = errors.New("pipeline: invalid config")
)

// errorType is the metrics label for err.
func errorType(err error) string {
	switch {
	case errors.Is(err, ErrDataAggregation):
		return "data_aggregation"
	case errors.Is(err, ErrMarkupRead):
		return "markup_read"
	case errors.Is(err, ErrRead):
		return "read"
	case errors.Is(err, ErrRender):
		return "render"
	default:
		return "other"
	}
}
