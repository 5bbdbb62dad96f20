package pipeline

import (
	"fmt"

	"github.com/keithlinneman/sitepipe/internal/markup"
)

const (
	DefaultBase       = "public"
	DefaultLayoutFile = "_layout.tmpl"
)

// Config is fixed when the pipeline is built. Vars exposes it to templates.
type Config struct {
	// Base is the content root, relative to the working directory or absolute.
	Base string
	// LayoutFile is looked up from a page's directory towards the root.
	LayoutFile string
	// Marked is the markup options bag, see markup.ParseOptions.
	Marked map[string]any
	// Log enables per-stage diagnostics.
	Log bool

	// BaseDir and PublicDir are filled from the content root by New.
	BaseDir   string
	PublicDir string
}

func DefaultConfig() Config {
	return Config{
		Base:       DefaultBase,
		LayoutFile: DefaultLayoutFile,
		Marked:     map[string]any{},
	}
}

func (c *Config) setDefaults() {
	if c.Base == "" {
		c.Base = DefaultBase
	}
	if c.LayoutFile == "" {
		c.LayoutFile = DefaultLayoutFile
	}
	if c.Marked == nil {
		c.Marked = map[string]any{}
	}
}

// markupOptions returns the renderer options and any bag keys it ignored.
func (c *Config) markupOptions() (markup.Options, []string, error) {
	o, unknown, err := markup.ParseOptions(c.Marked)
	if err != nil {
		return markup.Options{}, nil, fmt.Errorf("%w: marked: %w", ErrInvalidConfig, err)
	}
	return o, unknown, nil
}

// Vars is the configuration as template variables. It is merged over the
// data context so these keys win.
func (c Config) Vars() map[string]any {
	marked := make(map[string]any, len(c.Marked))
	for k, v := range c.Marked {
		marked[k] = v
	}
	return map[string]any{
		"base":       c.Base,
		"layoutFile": c.LayoutFile,
		"marked":     marked,
		"log":        c.Log,
		"basedir":    c.BaseDir,
		"publicdir":  c.PublicDir,
	}
}
