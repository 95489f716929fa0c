package conversation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tamil-assistant/internal/domain"
	"tamil-assistant/internal/knowledge"
)

type fakeKB struct {
	results []domain.SearchResult
	err     error
	stats   knowledge.Stats
	queries []string
}

func (f *fakeKB) Search(_ context.Context, query string, k int) ([]domain.SearchResult, error) {
	f.queries = append(f.queries, fmt.Sprintf("%s|%d", query, k))
	return f.results, f.err
}

func (f *fakeKB) Stats(context.Context) knowledge.Stats { return f.stats }

type recordingResponder struct {
	query, retrieved string
}

func (r *recordingResponder) Compose(_ context.Context, query, retrieved string) (string, error) {
	r.query, r.retrieved = query, retrieved
	return "answer", nil
}

func seeded(seed uint64) *rand.Rand { return rand.New(rand.NewPCG(seed, seed)) }

func newOrchestrator(kb KnowledgeBase, opts ...func(*Options)) *Orchestrator {
	o := Options{
		Rand:   seeded(7),
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
	}
	if kb != nil {
		o.Knowledge = kb
	}
	for _, fn := range opts {
		fn(&o)
	}
	return New(o)
}

const question = "கோவில் திருவிழா எப்போது?"

func TestRespond_GreetingWithoutKnowledgeBase(t *testing.T) {
	o := newOrchestrator(nil)
	reply := o.Respond(context.Background(), "வணக்கம்")
	assert.Contains(t, Greetings, reply.Text)
	assert.Equal(t, AnsweredFromSpecialIntent, reply.Outcome)
	assert.Equal(t, IntentGreeting, reply.Intent)
}

func TestRespond_IntentPriorityAndMatching(t *testing.T) {
	kb := &fakeKB{stats: knowledge.Stats{CorpusMetadata: domain.CorpusMetadata{DocumentCount: 4, ChunkCount: 9}}}
	tests := []struct {
		query  string
		intent Intent
	}{
		{"HELLO there", IntentGreeting},
		{"வணக்கம், உதவி வேண்டும்", IntentGreeting},
		{"உதவி", IntentHelp},
		{"Help me", IntentHelp},
		{"உனக்கு பற்றி சொல்", IntentAbout},
		{"ABOUT", IntentAbout},
		{"புள்ளிவிவரம்", IntentStats},
		{"show Stats", IntentStats},
		{"நிறுத்து", IntentExit},
		{"please STOP", IntentExit},
		{"exit", IntentExit},
	}
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			reply := newOrchestrator(kb).Respond(context.Background(), tc.query)
			assert.Equal(t, tc.intent, reply.Intent)
			assert.Equal(t, AnsweredFromSpecialIntent, reply.Outcome)
		})
	}
	assert.Empty(t, kb.queries)
}

func TestRespond_CustomExitWord(t *testing.T) {
	o := newOrchestrator(nil, func(opts *Options) { opts.ExitWord = "போதும்" })
	assert.Equal(t, IntentExit, o.Respond(context.Background(), "போதும்").Intent)
	assert.Contains(t, o.Respond(context.Background(), "உதவி").Text, `"போதும்"`)
	assert.True(t, o.IsExit("சரி போதும்"))
	assert.False(t, o.IsExit(question))
}

func TestRespond_AboutAndStatsText(t *testing.T) {
	updated := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	kb := &fakeKB{stats: knowledge.Stats{CorpusMetadata: domain.CorpusMetadata{
		DocumentCount: 2, ChunkCount: 8, LastUpdated: &updated,
	}}}
	o := newOrchestrator(kb, func(opts *Options) { opts.DocumentCount = func() int { return 5 } })

	about := o.Respond(context.Background(), "about")
	assert.Contains(t, about.Text, "ஆவணங்கள்: 5")
	assert.Contains(t, about.Text, "பதிப்பு: 1.0")

	stats := o.Respond(context.Background(), "stats")
	assert.Contains(t, stats.Text, "ஆவணங்கள்: 2")
	assert.Contains(t, stats.Text, "பகுதிகள்: 8")
	assert.Contains(t, stats.Text, "2024-02-03T04:05:06")
	assert.Contains(t, stats.Text, "உரையாடல் வரலாறு: 3")

	empty := newOrchestrator(&fakeKB{}).Respond(context.Background(), "stats")
	assert.Contains(t, empty.Text, "கடைசி புதுப்பிப்பு: இல்லை")

	assert.Equal(t, msgNotReady, newOrchestrator(nil).Respond(context.Background(), "stats").Text)
}

func TestRespond_NotReadyWithoutKnowledgeBase(t *testing.T) {
	reply := newOrchestrator(nil).Respond(context.Background(), question)
	assert.Equal(t, msgNotReady, reply.Text)
	assert.Equal(t, AnsweredFallback, reply.Outcome)
}

func TestRespond_SearchFailure(t *testing.T) {
	kb := &fakeKB{err: domain.E(domain.KindExternal, "search", errors.New("boom"))}
	reply := newOrchestrator(kb).Respond(context.Background(), question)
	assert.Equal(t, msgSearchFailed, reply.Text)
	assert.Equal(t, AnsweredFallback, reply.Outcome)
}

func TestRespond_NoResults(t *testing.T) {
	kb := &fakeKB{}
	reply := newOrchestrator(kb).Respond(context.Background(), question)
	assert.Equal(t, msgNoInfo, reply.Text)
	assert.Equal(t, []string{question + "|3"}, kb.queries)
}

func TestRespond_RetrievalUsesTopTwoResults(t *testing.T) {
	kb := &fakeKB{results: []domain.SearchResult{{Content: "முதல்"}, {Content: "இரண்டாம்"}, {Content: "மூன்றாம்"}}}
	rec := &recordingResponder{}
	o := newOrchestrator(kb, func(opts *Options) { opts.Responder = rec })

	reply := o.Respond(context.Background(), question)
	assert.Equal(t, "answer", reply.Text)
	assert.Equal(t, AnsweredFromRetrieval, reply.Outcome)
	assert.Equal(t, question, rec.query)
	assert.Equal(t, "முதல்\n\nஇரண்டாம்", rec.retrieved)
}

func TestRespond_TruncatesLongContext(t *testing.T) {
	kb := &fakeKB{results: []domain.SearchResult{{Content: strings.Repeat("க", 400)}, {Content: strings.Repeat("ம", 400)}}}
	rec := &recordingResponder{}
	o := newOrchestrator(kb, func(opts *Options) { opts.Responder = rec })
	o.Respond(context.Background(), question)

	assert.Equal(t, 500, utf8.RuneCountInString(rec.retrieved))
	assert.True(t, strings.HasSuffix(rec.retrieved, "..."))
}

func TestTemplateResponder_FillsKnownTemplate(t *testing.T) {
	r := NewTemplateResponder(seeded(1))
	out, err := r.Compose(context.Background(), question, "சூழல்")
	require.NoError(t, err)
	assert.Contains(t, out, "சூழல்")

	var matched bool
	for _, tpl := range answerTemplates {
		if out == strings.NewReplacer("{context}", "சூழல்", "{query}", question).Replace(tpl) {
			matched = true
		}
	}
	assert.True(t, matched)
}

func TestTemplateResponder_SeedIsDeterministic(t *testing.T) {
	a, b := NewTemplateResponder(seeded(42)), NewTemplateResponder(seeded(42))
	for i := 0; i < 10; i++ {
		x, _ := a.Compose(context.Background(), "q", "c")
		y, _ := b.Compose(context.Background(), "q", "c")
		assert.Equal(t, x, y)
	}
}

func TestRespond_HistoryKeepsLastTurns(t *testing.T) {
	o := newOrchestrator(nil, func(opts *Options) { opts.History = NewHistory(10, true) })
	for i := 1; i <= 15; i++ {
		o.Respond(context.Background(), fmt.Sprintf("கேள்வி %d", i))
	}
	turns := o.History()
	require.Len(t, turns, 10)
	assert.Equal(t, domain.RoleUser, turns[0].Role)
	assert.Equal(t, "கேள்வி 11", turns[0].Content)
	assert.Equal(t, domain.RoleAssistant, turns[9].Role)
	assert.Equal(t, "கேள்வி 15", turns[8].Content)

	o.ClearHistory()
	assert.Empty(t, o.History())
}

func TestRespond_HistoryDisabled(t *testing.T) {
	o := newOrchestrator(nil, func(opts *Options) { opts.History = NewHistory(10, false) })
	o.Respond(context.Background(), "வணக்கம்")
	assert.Empty(t, o.History())
}

func TestHistory_TurnsIsCopy(t *testing.T) {
	h := NewHistory(0, true)
	h.Append(domain.RoleUser, "a", time.Time{})
	turns := h.Turns()
	turns[0].Content = "changed"
	assert.Equal(t, "a", h.Turns()[0].Content)
}
