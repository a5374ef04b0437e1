package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	timing "github.com/hanpama/fieldtimer/internal/timing"
)

// TextOption configures WriteText.
type TextOption func(*textOptions)

type textOptions struct {
	queries  bool
	renderer *lipgloss.Renderer
}

// WithQueries prints the derived query under each failed row.
func WithQueries(show bool) TextOption { return func(o *textOptions) { o.queries = show } }

// WithRenderer overrides the renderer, and with it the color profile,
// used for styling. By default one is created for the output writer.
func WithRenderer(r *lipgloss.Renderer) TextOption {
	return func(o *textOptions) { o.renderer = r }
}

type styles struct {
	header lipgloss.Style
	muted  lipgloss.Style
	badges map[timing.Outcome]lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	badge := r.NewStyle().Bold(true).Width(5)
	return styles{
		header: r.NewStyle().Bold(true).Underline(true),
		muted:  r.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		badges: map[timing.Outcome]lipgloss.Style{
			timing.Success:        badge.Foreground(lipgloss.Color("#A6E3A1")),
			timing.GraphQLError:   badge.Foreground(lipgloss.Color("#F9E2AF")),
			timing.TransportError: badge.Foreground(lipgloss.Color("#F38BA8")),
		},
	}
}

var badgeText = map[timing.Outcome]string{
	timing.Success:        "OK",
	timing.GraphQLError:   "GQL",
	timing.TransportError: "ERR",
}

// WriteText renders rows as an aligned table followed by a summary line.
// Styling degrades to plain text when w is not a terminal or NO_COLOR is set.
func WriteText(w io.Writer, rows []Row, opts ...TextOption) error {
	o := &textOptions{}
	for _, f := range opts {
		f(o)
	}
	if o.renderer == nil {
		o.renderer = lipgloss.NewRenderer(w)
	}
	st := newStyles(o.renderer)

	fieldWidth := len("FIELD")
	for _, r := range rows {
		fieldWidth = max(fieldWidth, len(r.Field.String()))
	}
	rankWidth := max(len("#"), len(strconv.Itoa(len(rows))))

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  %s  %s\n",
		st.header.Render(pad("#", rankWidth)),
		st.header.Render(pad("FIELD", fieldWidth)),
		st.header.Render(pad("DURATION", 9)),
		st.header.Render("RESULT"),
	)
	for _, r := range rows {
		fmt.Fprintf(&b, "%s  %s  %s  %s",
			pad(strconv.Itoa(r.Rank), rankWidth),
			pad(r.Field.String(), fieldWidth),
			pad(formatDuration(r), 9),
			st.badges[r.Outcome].Render(badgeText[r.Outcome]),
		)
		if r.Failed() && r.Message != "" {
			b.WriteString(" " + firstLine(r.Message))
		}
		b.WriteByte('\n')
		if o.queries && r.Failed() && r.Query != "" {
			for _, line := range strings.Split(strings.TrimRight(r.Query, "\n"), "\n") {
				b.WriteString(st.muted.Render("    | "+line) + "\n")
			}
		}
	}

	s := Summarize(rows)
	summary := fmt.Sprintf("%d fields: %d ok, %d graphql errors, %d transport errors",
		s.Fields, s.Succeeded, s.GraphQLErrors, s.TransportErrors)
	b.WriteString("\n" + st.muted.Render(summary) + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func formatDuration(r Row) string {
	if !r.Measured {
		return "-"
	}
	return fmt.Sprintf("%.3fs", r.Duration.Seconds())
}

func pad(s string, width int) string {
	if n := width - len(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
