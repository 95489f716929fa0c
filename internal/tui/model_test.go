package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tamil-assistant/internal/conversation"
	"tamil-assistant/internal/domain"
)

type fakeChat struct{ queries []string }

func (f *fakeChat) Respond(_ context.Context, q string) conversation.Reply {
	f.queries = append(f.queries, q)
	if q == "நிறுத்து" {
		return conversation.Reply{Text: "நன்றி", Outcome: conversation.AnsweredFromSpecialIntent, Intent: conversation.IntentExit}
	}
	return conversation.Reply{Text: "திருவிழா சனிக்கிழமை", Outcome: conversation.AnsweredFromRetrieval}
}

type fakeSearch struct{}

func (fakeSearch) Search(context.Context, string, int) ([]domain.SearchResult, error) {
	return []domain.SearchResult{
		{Content: "கோவில் திருவிழா சனிக்கிழமை.", Source: "plans.txt", ChunkNumber: 1, Score: 0.8},
		{Content: "பள்ளி கூட்டம்.", Source: "school.txt", ChunkNumber: 2, Score: 0.2},
	}, nil
}

type fakeSpeaker struct{ err error }

func (f fakeSpeaker) Speak(context.Context, string) (string, error) { return "", f.err }

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return next.(Model)
}

func typeAndEnter(t *testing.T, m Model, q string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(q)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func TestEnter_AppendsTurnAndLoadsSources(t *testing.T) {
	chat := &fakeChat{}
	m := sized(New(context.Background(), "உதவியாளர்", chat, fakeSearch{}, nil))

	m, cmd := typeAndEnter(t, m, "கோவில் எப்போது")
	assert.Nil(t, cmd)
	assert.Equal(t, []string{"கோவில் எப்போது"}, chat.queries)
	assert.Empty(t, m.input.Value())
	assert.Equal(t, "திருவிழா சனிக்கிழமை", m.lastAnswer)
	require.Len(t, m.results, 2)
	assert.Contains(t, m.View(), "plans.txt")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, 1, m.cursor)
	assert.Contains(t, m.renderCurrentSource(), "school.txt")
}

func TestEnter_IgnoresBlankInput(t *testing.T) {
	chat := &fakeChat{}
	m := sized(New(context.Background(), "t", chat, nil, nil))
	_, _ = typeAndEnter(t, m, "   ")
	assert.Empty(t, chat.queries)
}

func TestEnter_ExitIntentQuits(t *testing.T) {
	m := sized(New(context.Background(), "t", &fakeChat{}, nil, nil))
	_, cmd := typeAndEnter(t, m, "நிறுத்து")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestCtrlS_SpeaksLastAnswer(t *testing.T) {
	m := sized(New(context.Background(), "t", &fakeChat{}, nil, fakeSpeaker{err: errors.New("offline")}))
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Nil(t, cmd)
	assert.Equal(t, "பேச்சு இயக்கப்படவில்லை", next.(Model).status)

	m, _ = typeAndEnter(t, m, "கோவில்")
	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	next, _ = next.Update(cmd())
	assert.Contains(t, next.(Model).status, "offline")
}

func TestHighlightBestSentence(t *testing.T) {
	out := highlightBestSentence("பள்ளி கூட்டம். கோவில் திருவிழா.", "கோவில்")
	assert.Contains(t, out, "பள்ளி கூட்டம்.")
	assert.Contains(t, out, "கோவில் திருவிழா.")
	assert.Equal(t, "", highlightBestSentence("", "x"))

	out = highlightBestSentence("கோவில் திறப்பு. பள்ளி விடுமுறை நாளை", "பள்ளி")
	assert.Contains(t, out, "கோவில் திறப்பு.")
	assert.Contains(t, out, "பள்ளி விடுமுறை நாளை")
}
