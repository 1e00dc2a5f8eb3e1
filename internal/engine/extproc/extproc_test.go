package extproc

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/internal/audio"
	"clipforge/internal/engine"
	"clipforge/internal/render"
	"clipforge/internal/services"
	"clipforge/internal/services/ffmpeg"
)

type blackFrames struct{}

func (blackFrames) RenderFrame(float64, *render.FrameBuffer) {}

func silentMixer(t *testing.T, duration float64) *audio.Mixer {
	t.Helper()
	mixer := audio.NewMixer(audio.MixerOptions{
		SampleRate: 8000,
		Channels:   1,
		Duration:   duration,
	})
	if err := mixer.Prepare(context.Background(), nil); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	return mixer
}

func testSettings(outputPath string) engine.Settings {
	return engine.Settings{
		Width:      32,
		Height:     24,
		FPS:        4,
		Format:     "mp4",
		Quality:    "medium",
		Duration:   1,
		OutputPath: outputPath,
	}
}

// fakeFFmpeg swaps the subprocess for a shell script. The script receives
// the real ffmpeg arguments as positional parameters, so "$last" resolves
// to the output path.
func fakeFFmpeg(t *testing.T, script string) {
	t.Helper()
	restore := ffmpeg.SetCommandContextForTests(func(ctx context.Context, name string, args ...string) *exec.Cmd {
		shellArgs := append([]string{"-c", `for last; do :; done; ` + script, "ffmpeg"}, args...)
		return exec.CommandContext(ctx, "/bin/sh", shellArgs...)
	})
	t.Cleanup(restore)
}

func TestEncodeSuccessCleansStaging(t *testing.T) {
	staging := t.TempDir()
	out := filepath.Join(t.TempDir(), "out.mp4")
	fakeFFmpeg(t, `printf 'out_time_us=500000\nprogress=continue\nout_time_us=1000000\nprogress=end\n'; printf 'encoded' > "$last"`)

	eng := New(Options{StagingDir: staging, QualityPresets: map[string]string{"medium": "23"}})
	capture := &engine.Capture{Frames: blackFrames{}, Audio: silentMixer(t, 1)}

	var reported []float64
	result, err := eng.Encode(context.Background(), testSettings(out), capture, func(p float64) {
		reported = append(reported, p)
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if result.FramesEncoded != 4 {
		t.Fatalf("FramesEncoded = %d, want 4", result.FramesEncoded)
	}
	if result.Container != "mp4" {
		t.Fatalf("Container = %q, want mp4", result.Container)
	}

	if len(reported) == 0 || reported[len(reported)-1] != 1 {
		t.Fatalf("progress must finish at 1, got %v", reported)
	}
	for i := 1; i < len(reported); i++ {
		if reported[i] < reported[i-1] {
			t.Fatalf("progress regressed at %d: %v", i, reported)
		}
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output not published: %v", err)
	}
	if string(data) != "encoded" {
		t.Fatalf("output content = %q", data)
	}

	entries, err := os.ReadDir(staging)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("staging dir not cleaned: %v", entries)
	}
}

func TestEncodeSubprocessFailureKeepsStderrAndCleansUp(t *testing.T) {
	staging := t.TempDir()
	out := filepath.Join(t.TempDir(), "out.mp4")
	fakeFFmpeg(t, `echo "Conversion failed!" >&2; exit 1`)

	eng := New(Options{StagingDir: staging})
	capture := &engine.Capture{Frames: blackFrames{}, Audio: silentMixer(t, 1)}

	_, err := eng.Encode(context.Background(), testSettings(out), capture, nil)
	if !errors.Is(err, services.ErrSubprocess) {
		t.Fatalf("err = %v, want ErrSubprocess", err)
	}
	if !strings.Contains(err.Error(), "Conversion failed!") {
		t.Fatalf("error should carry stderr tail, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("failed encode must not publish an output, stat err = %v", statErr)
	}

	entries, _ := os.ReadDir(staging)
	if len(entries) != 0 {
		t.Fatalf("staging dir not cleaned after failure: %v", entries)
	}
}

func TestEncodeCancelledDuringStaging(t *testing.T) {
	staging := t.TempDir()
	eng := New(Options{StagingDir: staging})
	capture := &engine.Capture{Frames: blackFrames{}, Audio: silentMixer(t, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Encode(ctx, testSettings(filepath.Join(t.TempDir(), "out.mp4")), capture, nil)
	if !services.IsCancellation(err) {
		t.Fatalf("err = %v, want cancellation", err)
	}

	entries, _ := os.ReadDir(staging)
	if len(entries) != 0 {
		t.Fatalf("staging dir not cleaned after cancel: %v", entries)
	}
}

func TestSupportedFollowsProfile(t *testing.T) {
	eng := New(Options{})
	if eng.Supported(engine.CapabilityProfile{}) {
		t.Fatal("must be unsupported without a native encoder")
	}
	if !eng.Supported(engine.CapabilityProfile{HasNativeEncoder: true}) {
		t.Fatal("must be supported with a native encoder")
	}
}

func TestInitFailsWhenBinaryMissing(t *testing.T) {
	restore := ffmpeg.SetLookPathForTests(func(string) (string, error) {
		return "", exec.ErrNotFound
	})
	t.Cleanup(restore)

	eng := New(Options{})
	if err := eng.Init(context.Background()); !errors.Is(err, services.ErrEngineInit) {
		t.Fatalf("err = %v, want ErrEngineInit", err)
	}
}
