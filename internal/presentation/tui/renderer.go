package tui

import (
	"fmt"
	"html"
	"io"
	"os"
	"strings"

	"github.com/aretw0/staffgate/pkg/adapters/memory"
	"github.com/aretw0/staffgate/pkg/domain"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// NewRenderer returns a function that renders markdown using glamour,
// wrapped at width columns.
func NewRenderer(width int) func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return r.Render
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Width returns the terminal width of f, or fallback when f is not a terminal.
func Width(f *os.File, fallback int) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}

var htmlToMarkdown = strings.NewReplacer(
	"<b>", "**", "</b>", "**",
	"<strong>", "**", "</strong>", "**",
	"<i>", "_", "</i>", "_",
	"<em>", "_", "</em>", "_",
	"<code>", "`", "</code>", "`",
	"<u>", "", "</u>", "",
)

// Markdown converts the Telegram HTML subset used by the catalog to markdown.
func Markdown(text string) string {
	return html.UnescapeString(htmlToMarkdown.Replace(text))
}

// ChatRenderer prints messenger deliveries as a chat transcript.
type ChatRenderer struct {
	out      io.Writer
	profile  termenv.Profile
	markdown func(string) (string, error)
	names    map[domain.Identity]string
}

// ChatOption configures a ChatRenderer.
type ChatOption func(*ChatRenderer)

// WithMarkdown renders message bodies through fn.
func WithMarkdown(fn func(string) (string, error)) ChatOption {
	return func(r *ChatRenderer) { r.markdown = fn }
}

// WithProfile sets the color profile. termenv.Ascii disables colors.
func WithProfile(p termenv.Profile) ChatOption {
	return func(r *ChatRenderer) { r.profile = p }
}

// NewChatRenderer labels recipients with names; unknown identities print
// as numbers. Bodies are plain text unless WithMarkdown is given.
func NewChatRenderer(out io.Writer, names map[domain.Identity]string, opts ...ChatOption) *ChatRenderer {
	r := &ChatRenderer{
		out:     out,
		profile: termenv.Ascii,
		names:   names,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *ChatRenderer) label(id domain.Identity) string {
	if name, ok := r.names[id]; ok {
		return name
	}
	return id.String()
}

func (r *ChatRenderer) header(d memory.Delivery, verb string) string {
	return r.profile.String(fmt.Sprintf("── %s #%d %s", r.label(d.To), d.Ref, verb)).
		Foreground(r.profile.Color("#38bdf8")).Bold().String()
}

// Render prints one delivery.
func (r *ChatRenderer) Render(d memory.Delivery) {
	switch d.Kind {
	case memory.DeliveryMessage, memory.DeliveryEdit:
		verb := "message"
		if d.Kind == memory.DeliveryEdit {
			verb = "edited"
		}
		fmt.Fprintln(r.out, r.header(d, verb))
		fmt.Fprintln(r.out, r.body(d.Prompt.Text))
		r.markup(d.Prompt.Markup)
	case memory.DeliveryDelete:
		fmt.Fprintln(r.out, r.profile.String(fmt.Sprintf("── %s #%d deleted", r.label(d.To), d.Ref)).Faint())
	case memory.DeliverySticker:
		fmt.Fprintln(r.out, r.header(d, "sticker"))
		fmt.Fprintf(r.out, "[sticker: %s]\n", d.Sticker)
	case memory.DeliveryForward:
		fmt.Fprintln(r.out, r.header(d, "forwarded"))
		fmt.Fprintf(r.out, "[contact of %s, protected]\n", r.label(d.From))
	}
}

func (r *ChatRenderer) body(text string) string {
	md := Markdown(text)
	if r.markdown == nil {
		return strings.ReplaceAll(md, "**", "")
	}
	out, err := r.markdown(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func (r *ChatRenderer) markup(m *domain.Markup) {
	if m == nil {
		return
	}
	switch m.Kind {
	case domain.MarkupInline:
		n := 0
		for _, row := range m.Rows {
			for _, b := range row {
				n++
				fmt.Fprintln(r.out, r.profile.String(fmt.Sprintf("  [%d] %s", n, b.Text)).Foreground(r.profile.Color("#a78bfa")))
			}
		}
	case domain.MarkupContactRequest:
		fmt.Fprintln(r.out, r.profile.String("  [share contact] "+m.Label).Foreground(r.profile.Color("#a78bfa")))
	}
}
