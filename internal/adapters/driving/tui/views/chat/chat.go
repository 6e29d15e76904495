// Package chat provides the question and answer view for the TUI.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// ErrNoChatService indicates that no language model is configured.
var ErrNoChatService = errors.New("chat is not configured")

// errStreamEnded is reported when a stream closes without a terminal event.
var errStreamEnded = errors.New("answer stream ended unexpectedly")

// maxSources bounds the citations listed under an answer.
const maxSources = 5

// exchange is one question with its answer.
type exchange struct {
	question string
	answer   strings.Builder
	sources  []domain.SearchResult
	stopped  bool
	err      error
}

// View asks grounded questions and streams the answers.
type View struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	input      *input.Input
	transcript viewport.Model
	statusbar  *status.Bar

	chatService driving.ChatService
	ctx         context.Context

	exchanges []*exchange
	stream    driving.AnswerStream
	cancel    context.CancelFunc

	width  int
	height int
	ready  bool
}

// NewView creates a new chat view.
func NewView(s *styles.Styles, km *keymap.KeyMap, chatService driving.ChatService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles:      s,
		keymap:      km,
		input:       input.NewQuestionInput(s),
		transcript:  viewport.New(80, 16),
		statusbar:   status.NewBar(s, km),
		chatService: chatService,
		ctx:         context.Background(),
		width:       80,
		height:      24,
	}
}

// WithContext sets the parent context of every answer stream.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerStarted:
		return v, v.handleStarted(msg)

	case messages.AnswerEvent:
		return v, v.handleEvent(msg)
	}

	var cmd tea.Cmd
	v.transcript, cmd = v.transcript.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		if v.Streaming() {
			v.stop()
			return v, nil
		}
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}

	case tea.KeyEnter:
		if v.Streaming() {
			return v, nil
		}
		question := strings.TrimSpace(v.input.Value())
		if question == "" {
			return v, nil
		}
		v.input.Reset()
		return v, v.ask(question)

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		v.transcript, cmd = v.transcript.Update(msg)
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// ask opens a stream for question. History is every completed exchange.
func (v *View) ask(question string) tea.Cmd {
	req := domain.ChatRequest{Message: question, History: v.history(), Stream: true}
	v.exchanges = append(v.exchanges, &exchange{question: question})
	v.refresh()

	if v.chatService == nil {
		v.fail(ErrNoChatService)
		return nil
	}

	ctx, cancel := context.WithCancel(v.ctx)
	v.cancel = cancel
	v.statusbar.SetState(status.StateStreaming)

	svc := v.chatService
	return func() tea.Msg {
		stream, err := svc.ChatStream(ctx, req)
		return messages.AnswerStarted{Question: question, Stream: stream, Err: err}
	}
}

func (v *View) handleStarted(msg messages.AnswerStarted) tea.Cmd {
	current := v.current()
	if current == nil || current.question != msg.Question || v.cancel == nil {
		// Stopped before the stream opened.
		if msg.Stream != nil {
			msg.Stream.Close()
		}
		return nil
	}
	if msg.Err != nil {
		v.fail(msg.Err)
		return nil
	}
	v.stream = msg.Stream
	return waitForEvent(msg.Question, msg.Stream)
}

func (v *View) handleEvent(msg messages.AnswerEvent) tea.Cmd {
	current := v.current()
	if current == nil || current.question != msg.Question || v.stream == nil {
		return nil
	}

	switch msg.Event.Type {
	case domain.StreamToken:
		current.answer.WriteString(msg.Event.Content)
		v.refresh()
		return waitForEvent(msg.Question, v.stream)
	case domain.StreamDone:
		current.sources = msg.Sources
		v.finish()
		v.statusbar.SetState(status.StateReady)
		v.statusbar.SetMessage(fmt.Sprintf("%d sources", len(msg.Sources)))
	case domain.StreamError:
		v.fail(errors.New(msg.Event.Content))
	}
	v.refresh()
	return nil
}

// waitForEvent reads the next event off stream. A closed channel without a
// terminal event is reported as an error.
func waitForEvent(question string, stream driving.AnswerStream) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-stream.Events()
		if !ok {
			ev = domain.StreamEvent{Type: domain.StreamError, Content: errStreamEnded.Error()}
		}
		msg := messages.AnswerEvent{Question: question, Event: ev}
		if ev.Type == domain.StreamDone {
			msg.Sources = stream.Sources()
		}
		return msg
	}
}

func (v *View) stop() {
	if current := v.current(); current != nil {
		current.stopped = true
	}
	v.finish()
	v.statusbar.SetState(status.StateReady)
	v.statusbar.SetMessage("Stopped")
	v.refresh()
}

func (v *View) fail(err error) {
	if current := v.current(); current != nil {
		current.err = err
	}
	v.finish()
	v.statusbar.Fail(err)
	v.refresh()
}

// finish releases the running stream, if any.
func (v *View) finish() {
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	if v.stream != nil {
		v.stream.Close()
		v.stream = nil
	}
}

func (v *View) current() *exchange {
	if len(v.exchanges) == 0 {
		return nil
	}
	return v.exchanges[len(v.exchanges)-1]
}

// history returns completed exchanges as conversation turns.
func (v *View) history() []domain.ConversationTurn {
	turns := make([]domain.ConversationTurn, 0, 2*len(v.exchanges))
	for _, ex := range v.exchanges {
		if ex.err != nil || ex.stopped || ex.answer.Len() == 0 {
			continue
		}
		turns = append(turns,
			domain.ConversationTurn{Role: domain.RoleUser, Content: ex.question},
			domain.ConversationTurn{Role: domain.RoleAssistant, Content: ex.answer.String()},
		)
	}
	return turns
}

func (v *View) refresh() {
	v.transcript.SetContent(v.renderTranscript())
	v.transcript.GotoBottom()
}

func (v *View) renderTranscript() string {
	if len(v.exchanges) == 0 {
		return v.styles.Muted.Render("Ask a question about your indexed documents.")
	}
	wrap := max(v.width-4, 20)
	var b strings.Builder
	for i, ex := range v.exchanges {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(v.styles.Subtitle.Render("> " + ex.question))
		b.WriteString("\n")
		if ex.answer.Len() > 0 {
			b.WriteString(v.styles.Answer.Render(wordwrap.String(ex.answer.String(), wrap)))
		}
		switch {
		case ex.err != nil:
			b.WriteString("\n" + v.styles.Error.Render("Error: "+ex.err.Error()))
		case ex.stopped:
			b.WriteString("\n" + v.styles.Muted.Render("(stopped)"))
		}
		for j, src := range ex.sources[:min(len(ex.sources), maxSources)] {
			title := src.Title
			if title == "" {
				title = src.DocumentID
			}
			b.WriteString("\n" + v.styles.Citation.Render(fmt.Sprintf("[%d] %s (%.2f)", j+1, title, src.Score)))
		}
	}
	return b.String()
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		v.styles.Title.Render("sercha-rag"),
		"",
		v.transcript.View(),
		"",
		v.input.View(),
		v.statusbar.View(),
	)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.transcript.Width = width
	v.transcript.Height = max(height-8, 3) // title, input and status bar
	v.refresh()
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Streaming reports whether an answer is in flight.
func (v *View) Streaming() bool {
	return v.cancel != nil
}

// Answer returns the latest answer text.
func (v *View) Answer() string {
	if current := v.current(); current != nil {
		return current.answer.String()
	}
	return ""
}

// Err returns the error of the latest exchange, if any.
func (v *View) Err() error {
	if current := v.current(); current != nil {
		return current.err
	}
	return nil
}

// Reset stops any stream and clears the conversation.
func (v *View) Reset() {
	v.finish()
	v.exchanges = nil
	v.input.Reset()
	v.statusbar.Clear()
	v.refresh()
}
