package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tamil-assistant/internal/conversation"
	"tamil-assistant/internal/domain"
)

// ChatPort answers a user turn.
type ChatPort interface {
	Respond(ctx context.Context, query string) conversation.Reply
}

// SearchPort returns the passages behind an answer.
type SearchPort interface {
	Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error)
}

// SpeakPort speaks text aloud.
type SpeakPort interface {
	Speak(ctx context.Context, text string) (string, error)
}

type spokenMsg struct{ err error }

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx        context.Context
	title      string
	chat       ChatPort
	search     SearchPort
	speaker    SpeakPort
	input      textinput.Model
	viewport   viewport.Model
	transcript []string
	results    []domain.SearchResult
	cursor     int
	lastQuery  string
	lastAnswer string
	status     string
	ready      bool
}

// New creates a chat model. search and speaker may be nil.
func New(ctx context.Context, title string, chat ChatPort, search SearchPort, speaker SpeakPort) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "உங்கள் கேள்வியை தட்டச்சு செய்து Enter அழுத்தவும்"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	status := "தயார். ↑/↓ மூலங்கள், ctrl+s பேசு, ctrl+c வெளியேறு"
	return Model{ctx: ctx, title: title, chat: chat, search: search, speaker: speaker, input: ti, viewport: vp, status: status}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := chatBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 2 + 1 + qh + 1 // header, source lines, status, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-ch)
		m.refresh()
		return m, nil
	case spokenMsg:
		if msg.err != nil {
			m.status = "பேச முடியவில்லை: " + msg.err.Error()
		} else {
			m.status = "பேசப்பட்டது"
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				return m, nil
			}
			m.input.SetValue("")
			return m.ask(q)
		case "ctrl+s":
			if m.speaker == nil || m.lastAnswer == "" {
				m.status = "பேச்சு இயக்கப்படவில்லை"
				return m, nil
			}
			m.status = "பேசுகிறது..."
			return m, speakCmd(m.ctx, m.speaker, m.lastAnswer)
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(q string) (tea.Model, tea.Cmd) {
	reply := m.chat.Respond(m.ctx, q)
	m.transcript = append(m.transcript, userStyle.Render("நீங்கள்: ")+q, botStyle.Render("உதவியாளர்: ")+reply.Text, "")
	m.lastQuery, m.lastAnswer = q, reply.Text
	m.results, m.cursor = nil, 0
	if reply.Outcome == conversation.AnsweredFromRetrieval && m.search != nil {
		if res, err := m.search.Search(m.ctx, q, 3); err == nil {
			m.results = res
		}
	}
	m.status = fmt.Sprintf("பதில் வகை: %s", reply.Outcome)
	m.refresh()
	if reply.Intent == conversation.IntentExit {
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) refresh() {
	m.viewport.SetContent(strings.Join(m.transcript, "\n"))
	m.viewport.GotoBottom()
}

func speakCmd(ctx context.Context, s SpeakPort, text string) tea.Cmd {
	return func() tea.Msg {
		_, err := s.Speak(ctx, text)
		return spokenMsg{err: err}
	}
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render(m.title)
	chat := chatBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + chat + "\n" + m.renderCurrentSource() + "\n" + input + "\n" + status
}

func (m Model) renderCurrentSource() string {
	if len(m.results) == 0 {
		return sourceStyle.Render("மூலங்கள் இல்லை") + "\n"
	}
	r := m.results[m.cursor]
	title := fmt.Sprintf("மூலம் %d/%d  %s #%d  score=%.3f", m.cursor+1, len(m.results), r.Source, r.ChunkNumber, r.Score)
	return sourceStyle.Render(title) + "\n" + highlightBestSentence(r.Content, m.lastQuery)
}

var (
	chatBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`[\p{L}\p{M}]+(?:['’][\p{L}\p{M}]+)*`)
	sentenceRe     = regexp.MustCompile(`[^.!?।]+[.!?।]?`)
)

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	var sentences []string
	for _, s := range sentenceRe.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
