// Package cli holds the interactive terminal front ends of staffgate.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/aretw0/staffgate/internal/presentation/tui"
	"github.com/aretw0/staffgate/pkg/adapters/memory"
	"github.com/aretw0/staffgate/pkg/domain"
	"github.com/aretw0/staffgate/pkg/ports"
)

const chatHelp = `Commands:
  as applicant | as superuser | as <identity>   switch the speaking party
  /start /help /staff                           send a command
  press <n>                                     press button n of the last prompt
  contact <phone> [name]                        share your own contact
  quit                                          leave
Anything else is sent as a text message.`

// firstUserMessage numbers the messages typed in the simulator apart from
// the ones the bot sends.
const firstUserMessage domain.MessageRef = 100000

type shownPrompt struct {
	ref    domain.MessageRef
	prompt domain.Prompt
}

// Simulator plays both parties of the membership procedure in one terminal.
// Bot output goes through a recording messenger and is printed as it arrives.
type Simulator struct {
	handler  ports.EventHandler
	renderer *tui.ChatRenderer
	out      io.Writer

	actors map[string]domain.Identity
	names  map[domain.Identity]string

	mu      sync.Mutex
	current domain.Identity
	prompts map[domain.Identity]shownPrompt
	nextRef domain.MessageRef
}

// NewSimulator binds the handler to messenger output. names labels known
// identities and doubles as the "as <name>" vocabulary.
func NewSimulator(handler ports.EventHandler, messenger *memory.Messenger, out io.Writer, names map[domain.Identity]string, opts ...tui.ChatOption) *Simulator {
	s := &Simulator{
		handler:  handler,
		renderer: tui.NewChatRenderer(out, names, opts...),
		out:      out,
		actors:   make(map[string]domain.Identity, len(names)),
		names:    names,
		prompts:  make(map[domain.Identity]shownPrompt),
		nextRef:  firstUserMessage,
	}
	for id, name := range names {
		s.actors[name] = id
		if s.current.IsZero() || id < s.current {
			s.current = id
		}
	}
	messenger.OnDelivery(s.observe)
	return s
}

// As switches the speaking party.
func (s *Simulator) As(id domain.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = id
}

func (s *Simulator) observe(d memory.Delivery) {
	s.mu.Lock()
	switch d.Kind {
	case memory.DeliveryMessage, memory.DeliveryEdit:
		s.prompts[d.To] = shownPrompt{ref: d.Ref, prompt: d.Prompt}
	case memory.DeliveryDelete:
		if p, ok := s.prompts[d.To]; ok && p.ref == d.Ref {
			delete(s.prompts, d.To)
		}
	}
	s.mu.Unlock()
	s.renderer.Render(d)
}

func (s *Simulator) label(id domain.Identity) string {
	if name, ok := s.names[id]; ok {
		return name
	}
	return id.String()
}

// Run reads lines from in until quit, EOF or ctx is done.
func (s *Simulator) Run(ctx context.Context, in io.Reader) error {
	printSystemMessage(s.out, "type 'help' for commands")
	lines := make(chan string)
	errs := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		errs <- scanner.Err()
		close(lines)
	}()

	for {
		fmt.Fprintf(s.out, "%s> ", s.label(s.speaker()))
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(s.out)
				if err := <-errs; err != nil && !isInterrupted(err) {
					return err
				}
				return nil
			}
			quit, err := s.Exec(ctx, line)
			if err != nil {
				printSystemMessage(s.out, "%v", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func (s *Simulator) speaker() domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Simulator) userMessage() domain.MessageRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRef++
	return s.nextRef
}

// Exec runs one input line. quit is true when the line ends the session.
func (s *Simulator) Exec(ctx context.Context, line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	from := s.speaker()
	fields := strings.Fields(line)

	switch {
	case line == "":
		return false, nil
	case line == "quit" || line == "exit":
		return true, nil
	case line == "help":
		fmt.Fprintln(s.out, chatHelp)
		return false, nil
	case fields[0] == "as" && len(fields) == 2:
		id, ok := s.actors[fields[1]]
		if !ok {
			parsed, err := domain.ParseIdentity(fields[1])
			if err != nil {
				return false, fmt.Errorf("unknown party %q", fields[1])
			}
			id = parsed
		}
		s.As(id)
		return false, nil
	case strings.HasPrefix(line, "/"):
		return false, s.send(ctx, domain.Event{
			From:    from,
			Kind:    domain.EventCommand,
			Data:    strings.TrimPrefix(fields[0], "/"),
			Message: s.userMessage(),
		})
	case fields[0] == "press" && len(fields) == 2:
		return false, s.press(ctx, from, fields[1])
	case fields[0] == "contact" && len(fields) >= 2:
		name := strings.Join(fields[2:], " ")
		if name == "" {
			name = s.label(from)
		}
		return false, s.send(ctx, domain.Event{
			From:    from,
			Kind:    domain.EventContact,
			Message: s.userMessage(),
			Contact: &domain.Contact{Identity: from, Name: name, Phone: fields[1]},
		})
	default:
		return false, s.send(ctx, domain.Event{
			From:    from,
			Kind:    domain.EventText,
			Data:    line,
			Message: s.userMessage(),
		})
	}
}

func (s *Simulator) press(ctx context.Context, from domain.Identity, arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return fmt.Errorf("press takes a button number, got %q", arg)
	}
	s.mu.Lock()
	shown, ok := s.prompts[from]
	s.mu.Unlock()
	if !ok {
		return errors.New("no prompt to answer")
	}
	buttons := shown.prompt.Buttons()
	if n > len(buttons) {
		return fmt.Errorf("the last prompt has %d buttons", len(buttons))
	}
	return s.send(ctx, domain.Event{
		From:    from,
		Kind:    domain.EventCallback,
		Data:    buttons[n-1].Data,
		Message: shown.ref,
	})
}

func (s *Simulator) send(ctx context.Context, ev domain.Event) error {
	ev.FromName = s.label(ev.From)
	return s.handler.Handle(ctx, ev)
}
