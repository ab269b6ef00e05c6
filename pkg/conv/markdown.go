package conv

import (
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

var (
	extensions = parser.CommonExtensions | parser.NoEmptyLineBeforeBlock
	htmlFlags  = html.CommonFlags | html.HrefTargetBlank
	policy     = bluemonday.NewPolicy()
)

func init() {
	policy.AllowElements(
		"h1", "h2", "h3", "h4", "p", "br", "hr",
		"ul", "ol", "li",
		"b", "strong", "i", "em", "code", "pre", "blockquote",
	)
	policy.AllowAttrs("href").OnElements("a")
	policy.AllowStandardURLs()
}

// MarkdownToHTML renders md and strips everything but basic formatting.
func MarkdownToHTML(md []byte) string {
	p := parser.NewWithExtensions(extensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: htmlFlags})
	unsafeHTML := markdown.Render(p.Parse(md), renderer)

	return string(policy.SanitizeBytes(unsafeHTML))
}
