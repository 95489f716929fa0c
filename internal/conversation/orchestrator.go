// Package conversation routes a single user turn to a canned intent reply or
// to a retrieval-backed answer, and keeps the bounded turn history.
package conversation

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"tamil-assistant/internal/domain"
	"tamil-assistant/internal/knowledge"
)

// Outcome is the terminal state of a turn.
type Outcome int

const (
	AnsweredFromSpecialIntent Outcome = iota
	AnsweredFromRetrieval
	AnsweredFallback
)

func (o Outcome) String() string {
	switch o {
	case AnsweredFromSpecialIntent:
		return "intent"
	case AnsweredFromRetrieval:
		return "retrieval"
	default:
		return "fallback"
	}
}

// Intent names the special command a turn matched, if any.
type Intent string

const (
	IntentNone     Intent = ""
	IntentGreeting Intent = "greeting"
	IntentHelp     Intent = "help"
	IntentAbout    Intent = "about"
	IntentStats    Intent = "stats"
	IntentExit     Intent = "exit"
)

const (
	searchK         = 3
	contextResults  = 2
	maxContextRunes = 500
	DefaultVersion  = "1.0"
	DefaultExitWord = "நிறுத்து"
)

var greetingWords = []string{"வணக்கம்", "ஹலோ", "hello", "hi", "ஹாய்"}

// KnowledgeBase is the part of the knowledge store a conversation needs.
type KnowledgeBase interface {
	Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error)
	Stats(ctx context.Context) knowledge.Stats
}

// Reply is the answer to one turn.
type Reply struct {
	Text    string
	Outcome Outcome
	Intent  Intent
}

type Options struct {
	// Knowledge may be nil when no knowledge base is configured.
	Knowledge KnowledgeBase
	// Responder defaults to a TemplateResponder over Rand.
	Responder     Responder
	History       *History
	ExitWord      string
	Version       string
	DocumentCount func() int
	Rand          *rand.Rand
	Logger        zerolog.Logger
	Now           func() time.Time
}

// Orchestrator answers turns. It is not safe for concurrent use.
type Orchestrator struct {
	kb        KnowledgeBase
	responder Responder
	history   *History
	exitWord  string
	version   string
	docCount  func() int
	rng       *rand.Rand
	log       zerolog.Logger
	now       func() time.Time
}

func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		kb:        opts.Knowledge,
		responder: opts.Responder,
		history:   opts.History,
		exitWord:  opts.ExitWord,
		version:   opts.Version,
		docCount:  opts.DocumentCount,
		rng:       opts.Rand,
		log:       opts.Logger.With().Str("component", "conversation").Logger(),
		now:       opts.Now,
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if o.responder == nil {
		o.responder = NewTemplateResponder(o.rng)
	}
	if o.history == nil {
		o.history = NewHistory(DefaultMaxHistory, true)
	}
	if o.exitWord == "" {
		o.exitWord = DefaultExitWord
	}
	if o.version == "" {
		o.version = DefaultVersion
	}
	if o.docCount == nil {
		o.docCount = func() int { return 0 }
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// Respond answers query and records both sides of the turn in the history.
// It never fails; degraded paths produce a fixed apology.
func (o *Orchestrator) Respond(ctx context.Context, query string) Reply {
	o.log.Debug().Str("query", query).Msg("processing query")
	o.history.Append(domain.RoleUser, query, o.now())

	reply, ok := o.special(ctx, query)
	if !ok {
		reply = o.retrieve(ctx, query)
	}

	o.history.Append(domain.RoleAssistant, reply.Text, o.now())
	return reply
}

// special matches the fixed intents in priority order. Tamil keywords are
// tested against the raw query, English ones against its lowercase form.
func (o *Orchestrator) special(ctx context.Context, query string) (Reply, bool) {
	lower := strings.ToLower(query)
	intent := func(i Intent, text string) (Reply, bool) {
		return Reply{Text: text, Outcome: AnsweredFromSpecialIntent, Intent: i}, true
	}
	for _, g := range greetingWords {
		if strings.Contains(lower, g) {
			return intent(IntentGreeting, Greetings[o.rng.IntN(len(Greetings))])
		}
	}
	switch {
	case strings.Contains(query, "உதவி") || strings.Contains(lower, "help"):
		return intent(IntentHelp, helpMessage(o.exitWord))
	case strings.Contains(query, "உனக்கு பற்றி") || strings.Contains(lower, "about"):
		return intent(IntentAbout, aboutMessage(o.docCount(), o.version))
	case strings.Contains(query, "புள்ளிவிவரம்") || strings.Contains(lower, "stats"):
		return intent(IntentStats, o.statsText(ctx))
	case o.IsExit(query):
		return intent(IntentExit, msgGoodbye)
	}
	return Reply{}, false
}

// IsExit reports whether text contains the exit word or an English stop command.
func (o *Orchestrator) IsExit(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(text, o.exitWord) || strings.Contains(lower, "exit") || strings.Contains(lower, "stop")
}

func (o *Orchestrator) statsText(ctx context.Context) string {
	if o.kb == nil {
		return msgNotReady
	}
	st := o.kb.Stats(ctx)
	return statsMessage(st.DocumentCount, st.ChunkCount, st.LastUpdated, o.history.Len())
}

func (o *Orchestrator) retrieve(ctx context.Context, query string) Reply {
	fallback := func(text string) Reply {
		return Reply{Text: text, Outcome: AnsweredFallback}
	}
	if o.kb == nil {
		return fallback(msgNotReady)
	}
	results, err := o.kb.Search(ctx, query, searchK)
	if err != nil {
		o.log.Error().Err(err).Msg("knowledge search failed")
		return fallback(msgSearchFailed)
	}
	if len(results) == 0 {
		return fallback(msgNoInfo)
	}

	n := min(contextResults, len(results))
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = results[i].Content
	}
	retrieved := truncate(strings.Join(parts, "\n\n"), maxContextRunes)

	text, err := o.responder.Compose(ctx, query, retrieved)
	if err != nil {
		o.log.Error().Err(err).Msg("composing answer failed")
		return fallback(msgSearchFailed)
	}
	return Reply{Text: text, Outcome: AnsweredFromRetrieval}
}

// truncate shortens s to limit characters, ending in an ellipsis.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit-3]) + "..."
}

// History returns a copy of the recorded turns.
func (o *Orchestrator) History() []domain.Turn { return o.history.Turns() }

func (o *Orchestrator) ClearHistory() { o.history.Clear() }
