package speech

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tamil-assistant/internal/conversation"
)

const (
	WelcomeText  = "தமிழ் குரு உதவியாளர் தயார். உதவி என்று சொல்லுங்கள்."
	FarewellText = "நன்றி, பயன்பாட்டை மூடுகிறது."

	DefaultListenDuration = 5 * time.Second
	DefaultPause          = 500 * time.Millisecond
)

// Responder answers a transcribed query.
type Responder interface {
	Respond(ctx context.Context, query string) conversation.Reply
}

// ListenerConfig configures the voice loop.
type ListenerConfig struct {
	WakeWord string
	ExitWord string
	// RequireWakeWord ignores utterances that do not contain the wake word.
	RequireWakeWord bool
	Listen          time.Duration
	Pause           time.Duration
	// OnTurn, if set, observes every processed utterance.
	OnTurn func(heard string, reply conversation.Reply)
}

// Listener runs the sequential record, transcribe, respond, speak cycle.
type Listener struct {
	cfg       ListenerConfig
	recorder  Recorder
	stt       Transcriber
	responder Responder
	speaker   Speaker
	log       zerolog.Logger
}

func NewListener(cfg ListenerConfig, rec Recorder, stt Transcriber, responder Responder, spk Speaker, log zerolog.Logger) *Listener {
	if cfg.Listen <= 0 {
		cfg.Listen = DefaultListenDuration
	}
	if cfg.Pause <= 0 {
		cfg.Pause = DefaultPause
	}
	return &Listener{
		cfg:       cfg,
		recorder:  rec,
		stt:       stt,
		responder: responder,
		speaker:   spk,
		log:       log.With().Str("component", "listener").Logger(),
	}
}

// Run loops until the exit word is heard or ctx is cancelled. Cancellation is
// observed between cycles; a recording or transcription already under way
// runs to completion.
func (l *Listener) Run(ctx context.Context) error {
	l.log.Info().Str("wake_word", l.cfg.WakeWord).Str("exit_word", l.cfg.ExitWord).Msg("listening started")
	l.say(ctx, WelcomeText)

	for ctx.Err() == nil {
		if l.cycle(context.WithoutCancel(ctx)) {
			l.say(ctx, FarewellText)
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(l.cfg.Pause):
		}
	}
	l.log.Info().Msg("listening stopped")
	return nil
}

// cycle handles one utterance and reports whether the exit word was heard.
func (l *Listener) cycle(ctx context.Context) bool {
	samples, err := l.recorder.Record(ctx, l.cfg.Listen)
	if err != nil {
		l.log.Error().Err(err).Msg("recording failed")
		return false
	}
	text, err := l.stt.Transcribe(ctx, samples)
	if err != nil {
		l.log.Error().Err(err).Msg("transcription failed")
		return false
	}
	if text == "" {
		return false
	}
	l.log.Debug().Str("heard", text).Msg("transcribed")

	hasWake := l.cfg.WakeWord != "" && strings.Contains(text, l.cfg.WakeWord)
	if hasWake || !l.cfg.RequireWakeWord {
		query := text
		if l.cfg.WakeWord != "" {
			query = strings.ReplaceAll(query, l.cfg.WakeWord, "")
		}
		if query = strings.TrimSpace(query); query != "" {
			reply := l.responder.Respond(ctx, query)
			if l.cfg.OnTurn != nil {
				l.cfg.OnTurn(text, reply)
			}
			l.say(ctx, reply.Text)
		}
	}
	return l.cfg.ExitWord != "" && strings.Contains(text, l.cfg.ExitWord)
}

func (l *Listener) say(ctx context.Context, text string) {
	if l.speaker == nil {
		return
	}
	if _, err := l.speaker.Speak(context.WithoutCancel(ctx), text); err != nil {
		l.log.Warn().Err(err).Msg("speaking failed")
	}
}
