package speech

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"tamil-assistant/internal/domain"
)

// ApologyText is announced when Tamil speech cannot be produced.
const ApologyText = "Sorry, I cannot speak Tamil right now."

// CachedSpeaker keeps one MP3 per distinct text under the cache directory,
// named by the MD5 of the text's UTF-8 bytes. Entries never expire.
type CachedSpeaker struct {
	dir       string
	synth     Synthesizer
	player    Player
	announcer Announcer
	log       zerolog.Logger
}

var _ Speaker = (*CachedSpeaker)(nil)

func NewCachedSpeaker(dir string, synth Synthesizer, player Player, announcer Announcer, log zerolog.Logger) *CachedSpeaker {
	return &CachedSpeaker{
		dir:       dir,
		synth:     synth,
		player:    player,
		announcer: announcer,
		log:       log.With().Str("component", "speaker").Logger(),
	}
}

// CacheKey returns the cache file name for text.
func CacheKey(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:]) + ".mp3"
}

// CachePath returns where the audio for text is stored.
func (s *CachedSpeaker) CachePath(text string) string {
	return filepath.Join(s.dir, CacheKey(text))
}

// Speak plays text, synthesizing it on a cache miss. When synthesis fails an
// English apology is announced and "" is returned.
func (s *CachedSpeaker) Speak(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	path := s.CachePath(text)
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn().Err(err).Str("path", path).Msg("cache lookup failed")
		}
		if err := s.fill(ctx, text, path); err != nil {
			s.log.Error().Err(err).Msg("speech synthesis failed")
			if s.announcer != nil {
				if aerr := s.announcer.Announce(ctx, ApologyText); aerr != nil {
					s.log.Warn().Err(aerr).Msg("fallback announcement failed")
				}
			}
			return "", err
		}
	} else {
		s.log.Debug().Str("path", path).Msg("cache hit")
	}
	if s.player != nil {
		if err := s.player.Play(ctx, path); err != nil {
			return path, domain.E(domain.KindExternal, "play", err)
		}
	}
	return path, nil
}

func (s *CachedSpeaker) fill(ctx context.Context, text, path string) error {
	audio, err := s.synth.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return domain.E(domain.KindIO, "cache audio", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, audio, 0o644); err != nil {
		return domain.E(domain.KindIO, "cache audio", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return domain.E(domain.KindIO, "cache audio", err)
	}
	return nil
}

// CommandPlayer plays files with an external player such as mpg123.
type CommandPlayer struct {
	runner  CommandRunner
	command string
}

func NewCommandPlayer(runner CommandRunner, command string) *CommandPlayer {
	if command == "" {
		command = "mpg123"
	}
	return &CommandPlayer{runner: runner, command: command}
}

func (p *CommandPlayer) Play(ctx context.Context, path string) error {
	_, err := p.runner.Run(ctx, p.command, "-q", path)
	return err
}

// CommandAnnouncer speaks English text with an offline engine such as espeak.
type CommandAnnouncer struct {
	runner  CommandRunner
	command string
}

func NewCommandAnnouncer(runner CommandRunner, command string) *CommandAnnouncer {
	if command == "" {
		command = "espeak"
	}
	return &CommandAnnouncer{runner: runner, command: command}
}

func (a *CommandAnnouncer) Announce(ctx context.Context, text string) error {
	_, err := a.runner.Run(ctx, a.command, "-v", "en", text)
	return err
}
