package render

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// languageAliases maps the backend's script language codes to lexer names.
var languageAliases = map[string]string{
	"py": "python",
	"js": "javascript",
	"ts": "typescript",
	"sh": "bash",
}

// Highlight returns source with terminal syntax highlighting for language.
// Without color, or when highlighting fails, source is returned unchanged.
func (r *Renderer) Highlight(source, language string) string {
	if !r.color {
		return source
	}
	return highlight(source, language)
}

func highlight(source, language string) string {
	if alias, ok := languageAliases[strings.ToLower(language)]; ok {
		language = alias
	}
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(source)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return source
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return source
	}
	return buf.String()
}

// Markdown renders markdown for the terminal at the given wrap width.
// Without color, or when rendering fails, content is returned unchanged.
func (r *Renderer) Markdown(content string, width int) string {
	if !r.color {
		return content
	}
	return Markdown(content, width)
}

// Markdown renders markdown with glamour's auto style.
func Markdown(content string, width int) string {
	if width <= 0 {
		width = 80
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	out, err := tr.Render(content)
	if err != nil {
		return content
	}
	return out
}

var (
	stderrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

// LogLine styles a run log entry by its channel tag.
func (r *Renderer) LogLine(entry string) string {
	if !r.color {
		return entry
	}
	return StyleLogLine(entry)
}

// StyleLogLine colors stderr and status entries.
func StyleLogLine(entry string) string {
	switch {
	case strings.HasPrefix(entry, "[stderr] "):
		return stderrStyle.Render(entry)
	case strings.HasPrefix(entry, "[status] "):
		return statusStyle.Render(entry)
	default:
		return entry
	}
}
