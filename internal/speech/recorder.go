package speech

import (
	"context"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"time"

	"tamil-assistant/internal/domain"
)

// CommandRecorder captures raw 16 kHz mono PCM from an ALSA-style capture
// command such as arecord.
type CommandRecorder struct {
	runner  CommandRunner
	command string
}

var _ Recorder = (*CommandRecorder)(nil)

func NewCommandRecorder(runner CommandRunner, command string) *CommandRecorder {
	if command == "" {
		command = "arecord"
	}
	return &CommandRecorder{runner: runner, command: command}
}

func (r *CommandRecorder) args() []string {
	return []string{"-q", "-f", "S16_LE", "-c", "1", "-r", strconv.Itoa(SampleRate), "-t", "raw"}
}

// Record blocks for d and returns the captured samples.
func (r *CommandRecorder) Record(ctx context.Context, d time.Duration) ([]float32, error) {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	args := append(r.args(), "-d", strconv.Itoa(secs))
	raw, err := r.runner.Run(ctx, r.command, args...)
	if err != nil {
		return nil, domain.E(domain.KindExternal, "record", err)
	}
	return DecodePCM16(raw), nil
}

// Open starts an unbounded capture and returns its PCM stream. Closing the
// stream stops the capture command.
func (r *CommandRecorder) Open(ctx context.Context) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, r.command, r.args()...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, domain.E(domain.KindExternal, "record", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, domain.E(domain.KindExternal, "record", fmt.Errorf("starting %s: %w", r.command, err))
	}
	return &captureStream{ReadCloser: out, cmd: cmd}, nil
}

type captureStream struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (c *captureStream) Close() error {
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	_ = c.ReadCloser.Close()
	_ = c.cmd.Wait()
	return nil
}
