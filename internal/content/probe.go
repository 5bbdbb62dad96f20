package content

import (
	"context"

	"github.com/keithlinneman/sitepipe/internal/health"
)

// Probe reports readiness of the content root.
func (r *Root) Probe() health.CheckFunc {
	return func(context.Context) error { return r.ReadyErr() }
}
