package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"moogla-chat/internal/domain"
)

// TerminalRenderer escribe la conversación en una terminal línea por línea.
// Sólo el último mensaje puede quedar "abierto" recibiendo texto en streaming.
type TerminalRenderer struct {
	mu      sync.Mutex
	out     io.Writer
	user    lipgloss.Style
	bot     lipgloss.Style
	errSt   lipgloss.Style
	dim     lipgloss.Style
	botName string

	printed  []string
	open     int
	loading  bool
	echoUser bool
}

func NewTerminalRenderer(out io.Writer, botName string) *TerminalRenderer {
	r := lipgloss.NewRenderer(out)
	if botName == "" {
		botName = "moogla"
	}
	return &TerminalRenderer{
		out:      out,
		user:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		bot:      r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		errSt:    r.NewStyle().Foreground(lipgloss.Color("9")),
		dim:      r.NewStyle().Faint(true),
		botName:  botName,
		open:     -1,
		echoUser: true,
	}
}

// SetUserEcho controla si los mensajes del usuario se imprimen. En modo
// interactivo el usuario ya ve lo que escribió tras el prompt.
func (t *TerminalRenderer) SetUserEcho(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.echoUser = on
}

func (t *TerminalRenderer) SetLoading(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if on {
		if t.open >= 0 || t.loading {
			return
		}
		fmt.Fprint(t.out, t.dim.Render("pensando..."))
		t.loading = true
		return
	}
	t.clearLoadingLocked()
	t.closeOpenLocked()
}

func (t *TerminalRenderer) AppendMessage(msg domain.Message) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearLoadingLocked()
	t.closeOpenLocked()

	idx := len(t.printed)
	t.printed = append(t.printed, msg.Content)
	if msg.Role == domain.RoleUser && !t.echoUser {
		return idx
	}
	fmt.Fprint(t.out, t.prefix(msg.Role)+t.body(msg))

	// Un placeholder vacío del asistente queda abierto para el streaming.
	if msg.Role == domain.RoleAssistant && msg.Content == "" {
		t.open = idx
		return idx
	}
	fmt.Fprintln(t.out)
	return idx
}

func (t *TerminalRenderer) UpdateMessage(index int, content string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.printed) {
		return
	}
	t.clearLoadingLocked()

	prev := t.printed[index]
	t.printed[index] = content
	msg := domain.AssistantMessage(content)
	if index == t.open {
		// Un placeholder vacío que pasa a ser error se cierra con su estilo.
		if prev == "" && msg.IsError() {
			fmt.Fprintln(t.out, t.body(msg))
			t.open = -1
			return
		}
		if strings.HasPrefix(content, prev) {
			fmt.Fprint(t.out, content[len(prev):])
			return
		}
	}

	// El contenido no extiende lo ya impreso: se reimprime completo.
	t.closeOpenLocked()
	fmt.Fprintln(t.out, t.prefix(msg.Role)+t.body(msg))
}

func (t *TerminalRenderer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearLoadingLocked()
	t.closeOpenLocked()
	t.printed = nil
	fmt.Fprintln(t.out, t.dim.Render("-- conversación borrada --"))
}

func (t *TerminalRenderer) prefix(role domain.Role) string {
	if role == domain.RoleUser {
		return t.user.Render("Tu") + " > "
	}
	return t.bot.Render(t.botName) + " > "
}

func (t *TerminalRenderer) body(msg domain.Message) string {
	if msg.IsError() {
		return t.errSt.Render(msg.Content)
	}
	return msg.Content
}

func (t *TerminalRenderer) closeOpenLocked() {
	if t.open < 0 {
		return
	}
	fmt.Fprintln(t.out)
	t.open = -1
}

// clearLoadingLocked borra el indicador "pensando..." de la línea actual.
func (t *TerminalRenderer) clearLoadingLocked() {
	if !t.loading {
		return
	}
	fmt.Fprint(t.out, "\r\033[K")
	t.loading = false
}
