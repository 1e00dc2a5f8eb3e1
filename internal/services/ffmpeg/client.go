package ffmpeg

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strings"

	"clipforge/internal/audio"
	"clipforge/internal/services"
)

// Test hooks. Production code always goes through these.
var (
	commandContext = exec.CommandContext
	lookPath       = exec.LookPath
)

// Client drives the external FFmpeg binary.
type Client struct {
	binary string
}

// Option configures the client.
type Option func(*Client)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *Client) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// NewClient constructs a client using defaults.
func NewClient(opts ...Option) *Client {
	client := &Client{binary: "ffmpeg"}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Available reports whether the binary can be found on PATH.
func (c *Client) Available() bool {
	_, err := lookPath(c.binary)
	return err == nil
}

// EncodeSequence runs one image-sequence encode, streaming progress batches
// into the callback. Cancellation through ctx kills the subprocess; a
// non-zero exit returns ErrSubprocess with the captured stderr tail.
func (c *Client) EncodeSequence(ctx context.Context, req EncodeRequest, progress func(ProgressUpdate)) error {
	args, err := BuildEncodeArgs(req)
	if err != nil {
		return services.Wrap(services.ErrValidation, "ffmpeg", "build arguments", "invalid encode request", err)
	}

	cmd := commandContext(ctx, c.binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrSubprocess, "ffmpeg", "start encoder",
			"FFmpeg could not be started; check the binary path in config", err)
	}

	parseErr := parseProgress(stdout, progress)
	waitErr := cmd.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "ffmpeg", "run encoder",
				"FFmpeg exceeded the encode time budget and was terminated", ctxErr)
		}
		return services.Wrap(services.ErrCancelled, "ffmpeg", "run encoder", "encode cancelled", ctxErr)
	}
	if waitErr != nil {
		return services.Wrap(services.ErrSubprocess, "ffmpeg", "run encoder",
			fmt.Sprintf("FFmpeg exited non-zero: %s", stderrTail(stderr.String())), waitErr)
	}
	if parseErr != nil {
		return fmt.Errorf("read ffmpeg progress: %w", parseErr)
	}
	return nil
}

// DecodePCM decodes any audio-bearing media file into interleaved float32
// PCM at the requested layout.
func (c *Client) DecodePCM(ctx context.Context, path string, sampleRate, channels int) (*audio.Buffer, error) {
	args := []string{
		"-i", path,
		"-vn",
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ac", fmt.Sprintf("%d", channels),
		"-ar", fmt.Sprintf("%d", sampleRate),
		"pipe:1",
	}
	cmd := commandContext(ctx, c.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, services.Wrap(services.ErrTimeout, "ffmpeg", "decode audio",
				"audio decode exceeded its budget", ctx.Err())
		}
		return nil, services.Wrap(services.ErrSourceDecode, "ffmpeg", "decode audio",
			fmt.Sprintf("FFmpeg decode failed: %s", stderrTail(stderr.String())), err)
	}

	raw := stdout.Bytes()
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return &audio.Buffer{SampleRate: sampleRate, Channels: channels, Samples: samples}, nil
}

// stderrTail keeps the last few lines of stderr; FFmpeg prints the actual
// failure at the end after pages of banner output.
func stderrTail(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	const keep = 5
	if len(lines) > keep {
		lines = lines[len(lines)-keep:]
	}
	return strings.Join(lines, " | ")
}

// SetCommandContextForTests replaces the subprocess launcher, returning a
// restore function.
func SetCommandContextForTests(fn func(context.Context, string, ...string) *exec.Cmd) func() {
	prev := commandContext
	commandContext = fn
	return func() { commandContext = prev }
}

// SetLookPathForTests replaces binary discovery, returning a restore function.
func SetLookPathForTests(fn func(string) (string, error)) func() {
	prev := lookPath
	lookPath = fn
	return func() { lookPath = prev }
}
