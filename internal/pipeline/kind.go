package pipeline

// Kind is the category of content chosen for a request.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindTemplate
	KindPrettyHTML
	KindMarkup
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindTemplate:
		return "template"
	case KindPrettyHTML:
		return "pretty_html"
	case KindMarkup:
		return "markup"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Target is the file a stage tried or served.
type Target struct {
	Kind Kind
	// Name is the slash-separated name inside the content FS.
	Name string
	// Path is the absolute filesystem path, for diagnostics only.
	Path string
}

// Result is a terminal answer for one request.
type Result struct {
	Kind   Kind
	Status int
	Target Target
	// ContentType is empty when Declined.
	ContentType string
	Body        []byte
	// Layout names the layout wrapping a template render, if any.
	Layout string
	// Declined means no not-found page exists; the host decides the body.
	Declined bool
	// Rejected is set when the privacy guard stopped the request.
	Rejected bool
}
