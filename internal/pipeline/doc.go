// Package pipeline resolves a request path to one piece of content.
//
// A request first passes the privacy guard, then each stage in order:
//
//	template     <path>.tmpl rendered with the data context and layout
//	pretty_html  <path>.html (or the path itself when it has an extension)
//	markup       <path>.md converted to HTML
//	not_found    404.tmpl or 404.html from the content root's parent
//
// The first stage to answer wins. The not_found stage always answers,
// possibly with a declined result that leaves the body to the host.
package pipeline
