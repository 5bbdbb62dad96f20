// Package cfg binds sitepipe's settings to command-line flags and
// SITEPIPE_* environment variables.
package cfg

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"

	"github.com/keithlinneman/sitepipe/internal/log"
)

// EnvPrefix is prepended to the upper-cased flag name to form its
// environment variable.
const EnvPrefix = "SITEPIPE_"

type App struct {
	// pipeline
	Base       string
	LayoutFile string
	Marked     string
	Log        bool

	// ambient
	LogJSON           bool
	LogLevel          string
	HTTPPort          int
	AdminPort         int
	EnablePprof       bool
	EnablePyroscope   bool
	EnableTracing     bool
	PyroServer        string
	PyroTenantID      string
	OTLPEndpoint      string
	TraceSample       float64
	StacktraceLevel   string
	IncludeErrorLinks bool
	MaxErrorLinks     int
	TrustedHops       int
	RateLimitRPS      float64
	RateLimitBurst    int
	DrainPeriod       time.Duration
}

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *pflag.FlagSet, c *App) {
	fs.StringVar(&c.Base, "base", "public", "content root directory; 404 views live in its parent")
	fs.StringVar(&c.LayoutFile, "layout-file", "_layout.tmpl", "layout template looked up from each page's directory upwards")
	fs.StringVar(&c.Marked, "marked", "{}", "markdown options as a JSON or YAML mapping (gfm, breaks, headerIds, xhtml, smartypants, sanitize)")
	fs.BoolVar(&c.Log, "log", false, "log every resolver decision")

	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.IntVar(&c.HTTPPort, "http-port", 8080, "listen TCP port (1..65535)")
	fs.IntVar(&c.AdminPort, "admin-port", 9000, "admin listen TCP port (1..65535)")
	fs.BoolVar(&c.EnablePprof, "enable-pprof", true, "Enable pprof profiling (on admin port only)")
	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Enable pushing Pyroscope data to server set in --pyro-server")
	fs.BoolVar(&c.IncludeErrorLinks, "include-error-links", true, "Include error links in log messages")
	fs.IntVar(&c.MaxErrorLinks, "max-error-links", 5, "max error chain depth (1..64)")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "debug|info|warn|error")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url to push to")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) to use for pyro-server")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")
	fs.IntVar(&c.TrustedHops, "trusted-hops", 1, "reverse proxies in front of the server whose X-Forwarded-For is trusted (0..8)")
	fs.Float64Var(&c.RateLimitRPS, "rate-limit-rps", 10, "requests per second per client IP, 0 disables limiting")
	fs.IntVar(&c.RateLimitBurst, "rate-limit-burst", 40, "burst size per client IP")
	fs.DurationVar(&c.DrainPeriod, "drain-period", 15*time.Second, "time between failing readiness and closing listeners on shutdown")
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *pflag.FlagSet, prefix string, logf func(string, ...any)) {
	fs.VisitAll(func(f *pflag.Flag) {
		key := prefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		envVal, envSet := os.LookupEnv(key)
		if !envSet {
			return
		}
		if f.Changed {
			if logf != nil {
				logf("flag --%s: cli value %q overrides env %s=%q", f.Name, f.Value.String(), key, envVal)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			_ = f.Value.Set(prev)
			f.Changed = false
			if logf != nil {
				logf("flag --%s: ignoring invalid env %s=%q: %v", f.Name, key, envVal, err)
			}
		}
	})
}

// MarkedOptions decodes the --marked mapping. An empty value is an empty
// mapping.
func (c App) MarkedOptions() (map[string]any, error) {
	out := map[string]any{}
	if strings.TrimSpace(c.Marked) == "" {
		return out, nil
	}
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(c.Marked), &raw); err != nil {
		return nil, err
	}
	for k, v := range raw {
		out[k] = v
	}
	return out, nil
}

// Validate checks that config values are within expected ranges and formats.
// Returns an error describing all invalid fields, or nil if all valid.
func Validate(c App) error {
	var errs []error

	// Pipeline
	if strings.TrimSpace(c.Base) == "" {
		errs = append(errs, fmt.Errorf("BASE is required"))
	}
	if c.LayoutFile == "" || strings.ContainsAny(c.LayoutFile, `/\`) {
		errs = append(errs, fmt.Errorf("invalid LAYOUT_FILE %q (must be a file name without directories)", c.LayoutFile))
	}
	if _, err := c.MarkedOptions(); err != nil {
		errs = append(errs, fmt.Errorf("invalid MARKED %q (must be a JSON or YAML mapping): %w", c.Marked, err))
	}

	// Ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.HTTPPort))
	}
	if c.AdminPort < 1 || c.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid ADMIN_PORT %d (must be 1..65535)", c.AdminPort))
	}
	if c.AdminPort == c.HTTPPort {
		errs = append(errs, fmt.Errorf("ADMIN_PORT and HTTP_PORT must differ (both %d)", c.HTTPPort))
	}

	// Log levels
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}
	if c.StacktraceLevel != "" {
		if _, err := log.ParseLevel(c.StacktraceLevel); err != nil {
			errs = append(errs, fmt.Errorf("invalid STACKTRACE_LEVEL %q: %w", c.StacktraceLevel, err))
		}
	}

	// Tracing sample
	if c.TraceSample < 0 || c.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample))
	}

	// Pyroscope (URL, scheme and tenant)
	if c.EnablePyroscope {
		if c.PyroServer == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER required when ENABLE_PYROSCOPE=true"))
		} else if u, err := url.Parse(c.PyroServer); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER must be a URL (got %q)", c.PyroServer))
		}
		if c.PyroTenantID == "" {
			errs = append(errs, fmt.Errorf("PYRO_TENANT required when ENABLE_PYROSCOPE=true"))
		}
	}

	// OTLP tracing (grpc exporter wants host:port, no scheme)
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err))
		}
	}

	// Error link limits
	if c.IncludeErrorLinks {
		if c.MaxErrorLinks < 1 || c.MaxErrorLinks > 64 {
			errs = append(errs, fmt.Errorf("MAX_ERROR_LINKS must be 1..64 (got %d)", c.MaxErrorLinks))
		}
	}

	// Client IP and rate limiting
	if c.TrustedHops < 0 || c.TrustedHops > 8 {
		errs = append(errs, fmt.Errorf("invalid TRUSTED_HOPS %d (must be 0..8)", c.TrustedHops))
	}
	if c.RateLimitRPS < 0 {
		errs = append(errs, fmt.Errorf("invalid RATE_LIMIT_RPS %.2f (must be >= 0)", c.RateLimitRPS))
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Errorf("invalid RATE_LIMIT_BURST %d (must be >= 1 when limiting)", c.RateLimitBurst))
	}

	if c.DrainPeriod < 0 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_PERIOD %s (must be >= 0)", c.DrainPeriod))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
