package tui

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma"
	"github.com/alecthomas/chroma/formatters"
	"github.com/alecthomas/chroma/lexers"
	"github.com/alecthomas/chroma/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

var (
	mdCodeBlockRe  = regexp.MustCompile(`(?s)<pre><code(?: class="language-([a-zA-Z0-9]+)")?>(.*?)</code></pre>`)
	mdHeadingRe    = regexp.MustCompile(`<h([1-6])[^>]*>(.*?)</h[1-6]>`)
	mdStrongRe     = regexp.MustCompile(`<strong>(.*?)</strong>`)
	mdEmRe         = regexp.MustCompile(`<em>(.*?)</em>`)
	mdInlineCodeRe = regexp.MustCompile(`<code>([^<]+)</code>`)
	mdListItemRe   = regexp.MustCompile(`<li>(.*?)</li>`)
	mdTagRe        = regexp.MustCompile(`<[^>]+>`)
	mdBlankRunsRe  = regexp.MustCompile(`\n{3,}`)
)

// MarkdownRenderer turns the agents' markdown answers into styled terminal
// text, with chroma highlighting for fenced code blocks.
type MarkdownRenderer struct {
	md        goldmark.Markdown
	formatter chroma.Formatter
	style     *chroma.Style
	bold      lipgloss.Style
	italic    lipgloss.Style
	heading   lipgloss.Style
	code      lipgloss.Style
}

func NewMarkdownRenderer(theme Theme) *MarkdownRenderer {
	return &MarkdownRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(htmlrenderer.WithHardWraps()),
		),
		formatter: formatters.Get("terminal256"),
		style:     styles.Get("friendly"),
		bold:      lipgloss.NewStyle().Bold(true),
		italic:    lipgloss.NewStyle().Italic(true),
		heading:   lipgloss.NewStyle().Bold(true).Foreground(theme.Accent),
		code:      lipgloss.NewStyle().Foreground(theme.Warn),
	}
}

// Render converts markdown to terminal output. On any conversion problem the
// raw content comes back unchanged; a final answer must never be lost to a
// rendering bug.
func (r *MarkdownRenderer) Render(content string, width int) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(content), &buf); err != nil {
		return content
	}
	out := buf.String()

	out = mdCodeBlockRe.ReplaceAllStringFunc(out, func(block string) string {
		parts := mdCodeBlockRe.FindStringSubmatch(block)
		return "\n" + r.highlight(html.UnescapeString(parts[2]), parts[1]) + "\n"
	})
	out = mdHeadingRe.ReplaceAllStringFunc(out, func(h string) string {
		parts := mdHeadingRe.FindStringSubmatch(h)
		return "\n" + r.heading.Render(parts[2]) + "\n"
	})
	out = mdStrongRe.ReplaceAllStringFunc(out, func(s string) string {
		return r.bold.Render(mdStrongRe.FindStringSubmatch(s)[1])
	})
	out = mdEmRe.ReplaceAllStringFunc(out, func(s string) string {
		return r.italic.Render(mdEmRe.FindStringSubmatch(s)[1])
	})
	out = mdInlineCodeRe.ReplaceAllStringFunc(out, func(s string) string {
		return r.code.Render(html.UnescapeString(mdInlineCodeRe.FindStringSubmatch(s)[1]))
	})
	out = mdListItemRe.ReplaceAllString(out, "  • $1\n")
	out = mdTagRe.ReplaceAllString(out, "")
	out = html.UnescapeString(out)
	out = mdBlankRunsRe.ReplaceAllString(out, "\n\n")
	out = strings.TrimSpace(out)

	if width > 0 {
		out = lipgloss.NewStyle().Width(width).Render(out)
	}
	return out
}

func (r *MarkdownRenderer) highlight(code, lang string) string {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf bytes.Buffer
	if err := r.formatter.Format(&buf, r.style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}

// truncateRunes shortens s to at most max runes with an ellipsis, safe for
// multi-byte text.
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max == 1 {
		return string(r[:1])
	}
	return string(r[:max-1]) + "…"
}

// oneLine flattens whitespace for compact trace rows.
func oneLine(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}

func fmtScore(score int) string {
	if score == 0 {
		return ""
	}
	return fmt.Sprintf("%d/10", score)
}
