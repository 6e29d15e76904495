package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

type mockStream struct {
	events  chan domain.StreamEvent
	sources []domain.SearchResult
	closed  bool
}

func newMockStream(sources []domain.SearchResult, events ...domain.StreamEvent) *mockStream {
	ch := make(chan domain.StreamEvent, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return &mockStream{events: ch, sources: sources}
}

func (m *mockStream) Events() <-chan domain.StreamEvent { return m.events }
func (m *mockStream) Sources() []domain.SearchResult { return m.sources }
func (m *mockStream) Close() { m.closed = true }

type mockChatService struct {
	stream  *mockStream
	err     error
	lastReq domain.ChatRequest
	ctx     context.Context
}

func (m *mockChatService) Chat(context.Context, domain.ChatRequest) (*domain.Answer, error) {
	return nil, errors.New("not used")
}

func (m *mockChatService) ChatStream(ctx context.Context, req domain.ChatRequest) (driving.AnswerStream, error) {
	m.lastReq = req
	m.ctx = ctx
	if m.err != nil {
		return nil, m.err
	}
	return m.stream, nil
}

func (m *mockChatService) PlainChat(context.Context, domain.ChatRequest) (*domain.Answer, error) {
	return nil, errors.New("not used")
}

func token(s string) domain.StreamEvent {
	return domain.StreamEvent{Type: domain.StreamToken, Content: s}
}

var done = domain.StreamEvent{Type: domain.StreamDone}

func newReadyView(svc driving.ChatService) *View {
	v := NewView(nil, nil, svc)
	v.SetDimensions(100, 30)
	return v
}

func typeText(v *View, s string) *View {
	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return v
}

// drain feeds cmd results back into the view until no command remains.
func drain(t *testing.T, v *View, cmd tea.Cmd) *View {
	t.Helper()
	for i := 0; cmd != nil; i++ {
		require.Less(t, i, 100, "stream did not terminate")
		v, cmd = v.Update(cmd())
	}
	return v
}

func ask(t *testing.T, v *View, question string) (*View, tea.Cmd) {
	t.Helper()
	v = typeText(v, question)
	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	return v, cmd
}

func TestNewView(t *testing.T) {
	v := NewView(nil, nil, nil)

	require.NotNil(t, v)
	assert.False(t, v.Ready())
	assert.False(t, v.Streaming())
	assert.Equal(t, "Initialising...", v.View())
	assert.NotNil(t, v.Init())
}

func TestView_StreamsAnswer(t *testing.T) {
	sources := []domain.SearchResult{{Title: "Leave Policy", DocumentID: "doc-1", Score: 0.91}}
	svc := &mockChatService{stream: newMockStream(sources, token("Leave is "), token("30 days."), done)}
	v := newReadyView(svc)

	v, cmd := ask(t, v, "How much leave?")
	assert.True(t, v.Streaming())
	assert.Empty(t, v.input.Value(), "input clears on submit")

	v = drain(t, v, cmd)

	assert.False(t, v.Streaming())
	assert.Equal(t, "Leave is 30 days.", v.Answer())
	assert.NoError(t, v.Err())
	assert.True(t, svc.stream.closed)
	assert.Equal(t, "How much leave?", svc.lastReq.Message)
	assert.True(t, svc.lastReq.Stream)

	view := v.View()
	assert.Contains(t, view, "How much leave?")
	assert.Contains(t, view, "30 days.")
	assert.Contains(t, view, "[1] Leave Policy")
}

func TestView_HistoryCarriesCompletedExchanges(t *testing.T) {
	svc := &mockChatService{stream: newMockStream(nil, token("30 days."), done)}
	v := newReadyView(svc)
	v, cmd := ask(t, v, "How much leave?")
	v = drain(t, v, cmd)

	svc.stream = newMockStream(nil, token("Yes."), done)
	v, cmd = ask(t, v, "Does it carry over?")
	drain(t, v, cmd)

	assert.Equal(t, []domain.ConversationTurn{
		{Role: domain.RoleUser, Content: "How much leave?"},
		{Role: domain.RoleAssistant, Content: "30 days."},
	}, svc.lastReq.History)
}

func TestView_ErrorEvent(t *testing.T) {
	svc := &mockChatService{stream: newMockStream(nil,
		token("partial"), domain.StreamEvent{Type: domain.StreamError, Content: "provider failed"})}
	v := newReadyView(svc)

	v, cmd := ask(t, v, "question")
	v = drain(t, v, cmd)

	require.EqualError(t, v.Err(), "provider failed")
	assert.False(t, v.Streaming())
	assert.Contains(t, v.View(), "Error: provider failed")
	assert.Empty(t, v.history(), "failed exchanges are not replayed")
}

func TestView_StreamClosedWithoutTerminalEvent(t *testing.T) {
	svc := &mockChatService{stream: newMockStream(nil, token("cut"))}
	v := newReadyView(svc)

	v, cmd := ask(t, v, "question")
	v = drain(t, v, cmd)

	assert.EqualError(t, v.Err(), errStreamEnded.Error())
}

func TestView_StartFailure(t *testing.T) {
	svc := &mockChatService{err: domain.ErrLLMUnavailable}
	v := newReadyView(svc)

	v, cmd := ask(t, v, "question")
	v = drain(t, v, cmd)

	assert.ErrorIs(t, v.Err(), domain.ErrLLMUnavailable)
	assert.False(t, v.Streaming())
}

func TestView_NoChatService(t *testing.T) {
	v := newReadyView(nil)
	v = typeText(v, "question")

	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.ErrorIs(t, v.Err(), ErrNoChatService)
}

func TestView_EscStopsStream(t *testing.T) {
	stream := newMockStream(nil, token("Leave "), token("is "), done)
	svc := &mockChatService{stream: stream}
	v := newReadyView(svc)

	v, cmd := ask(t, v, "question")
	v, cmd = v.Update(cmd()) // stream opened
	v, cmd = v.Update(cmd()) // first token
	require.Equal(t, "Leave ", v.Answer())

	v, escCmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, escCmd, "esc while streaming stops rather than leaving")
	assert.False(t, v.Streaming())
	assert.True(t, stream.closed)
	assert.ErrorIs(t, svc.ctx.Err(), context.Canceled)

	// Events already in flight are dropped.
	v = drain(t, v, cmd)
	assert.Equal(t, "Leave ", v.Answer())
	assert.Contains(t, v.View(), "(stopped)")
	assert.Empty(t, v.history())
}

func TestView_EnterIgnoredWhileStreaming(t *testing.T) {
	svc := &mockChatService{stream: newMockStream(nil, done)}
	v := newReadyView(svc)
	v, _ = ask(t, v, "first")

	v = typeText(v, "second")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Equal(t, "first", svc.lastReq.Message)
}

func TestView_EmptyQuestionIgnored(t *testing.T) {
	v := newReadyView(&mockChatService{})
	v = typeText(v, "   ")

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
}

func TestView_EscLeavesWhenIdle(t *testing.T) {
	v := newReadyView(&mockChatService{})

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)

	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func TestView_Reset(t *testing.T) {
	svc := &mockChatService{stream: newMockStream(nil, token("x"), done)}
	v := newReadyView(svc)
	v, _ = ask(t, v, "question")

	v.Reset()

	assert.False(t, v.Streaming())
	assert.Empty(t, v.Answer())
	assert.Contains(t, v.View(), "Ask a question")
}

func TestView_WrapsLongAnswers(t *testing.T) {
	long := strings.Repeat("leave ", 40)
	svc := &mockChatService{stream: newMockStream(nil, token(long), done)}
	v := NewView(nil, nil, svc)
	v.SetDimensions(40, 30)

	v, cmd := ask(t, v, "question")
	v = drain(t, v, cmd)

	for _, line := range strings.Split(v.renderTranscript(), "\n") {
		assert.LessOrEqual(t, lipgloss.Width(line), 40)
	}
}
