package ffmpeg

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"clipforge/internal/services"
)

func TestBuildEncodeArgsMP4(t *testing.T) {
	args, err := BuildEncodeArgs(EncodeRequest{
		FramePattern: "/staging/frames/frame_%05d.png",
		FPS:          30,
		AudioFiles:   []AudioInput{{Path: "/staging/mix.wav"}},
		Format:       "mp4",
		CRF:          "23",
		Duration:     5,
		OutputPath:   "/out/final.mp4",
	})
	if err != nil {
		t.Fatalf("BuildEncodeArgs: %v", err)
	}
	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-framerate 30",
		"-i /staging/frames/frame_%05d.png",
		"-c:v libx264",
		"-c:a aac",
		"-movflags +faststart",
		"-crf 23",
		"-t 5.000",
		"-progress pipe:1",
		"/out/final.mp4",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q in: %s", want, joined)
		}
	}
}

func TestBuildEncodeArgsWebM(t *testing.T) {
	args, err := BuildEncodeArgs(EncodeRequest{
		FramePattern: "f_%d.png",
		AudioFiles:   []AudioInput{{Path: "mix.wav"}},
		Format:       "webm",
		CRF:          "31",
		OutputPath:   "out.webm",
	})
	if err != nil {
		t.Fatalf("BuildEncodeArgs: %v", err)
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-c:v libvpx-vp9") || !strings.Contains(joined, "-c:a libopus") {
		t.Errorf("webm codecs missing: %s", joined)
	}
	if !strings.Contains(joined, "-b:v 0") {
		t.Errorf("vp9 crf mode needs -b:v 0: %s", joined)
	}
}

func TestBuildEncodeArgsMultipleAudioInputs(t *testing.T) {
	args, err := BuildEncodeArgs(EncodeRequest{
		FramePattern: "f_%d.png",
		AudioFiles: []AudioInput{
			{Path: "a.wav"},
			{Path: "b.wav", OffsetSeconds: 2.5},
		},
		Format:     "mp4",
		OutputPath: "out.mp4",
	})
	if err != nil {
		t.Fatalf("BuildEncodeArgs: %v", err)
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-itsoffset 2.500 -i b.wav") {
		t.Errorf("offset input missing: %s", joined)
	}
	if !strings.Contains(joined, "amix=inputs=2") {
		t.Errorf("amix filter missing: %s", joined)
	}
}

func TestBuildEncodeArgsRejectsUnknownFormat(t *testing.T) {
	_, err := BuildEncodeArgs(EncodeRequest{
		FramePattern: "f_%d.png",
		AudioFiles:   []AudioInput{{Path: "a.wav"}},
		Format:       "mov",
		OutputPath:   "out.mov",
	})
	if err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestParseProgressBatches(t *testing.T) {
	input := strings.Join([]string{
		"frame=10",
		"fps=29.5",
		"out_time_us=333333",
		"speed=1.1x",
		"progress=continue",
		"frame=100",
		"out_time_ms=2500000",
		"progress=continue",
		"frame=150",
		"out_time=00:00:05.000000",
		"progress=end",
	}, "\n")

	var updates []ProgressUpdate
	if err := parseProgress(strings.NewReader(input), func(u ProgressUpdate) {
		updates = append(updates, u)
	}); err != nil {
		t.Fatalf("parseProgress: %v", err)
	}
	if len(updates) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(updates))
	}
	if updates[0].Frame != 10 || updates[0].OutTimeSeconds < 0.33 || updates[0].OutTimeSeconds > 0.34 {
		t.Errorf("first batch = %+v", updates[0])
	}
	if updates[0].Done {
		t.Error("first batch must not be final")
	}
	// out_time_ms carries microseconds despite its name.
	if updates[1].OutTimeSeconds != 2.5 {
		t.Errorf("second batch = %+v", updates[1])
	}
	if !updates[2].Done || updates[2].OutTimeSeconds != 5 {
		t.Errorf("final batch = %+v", updates[2])
	}
}

func TestEncodeSequenceNonZeroExitIsSubprocessFailure(t *testing.T) {
	restore := SetCommandContextForTests(func(ctx context.Context, _ string, _ ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sh", "-c", "echo 'frame write error' >&2; exit 1")
	})
	defer restore()

	client := NewClient()
	err := client.EncodeSequence(context.Background(), EncodeRequest{
		FramePattern: "f_%d.png",
		AudioFiles:   []AudioInput{{Path: "a.wav"}},
		Format:       "mp4",
		OutputPath:   "out.mp4",
	}, nil)
	if !errors.Is(err, services.ErrSubprocess) {
		t.Fatalf("expected ErrSubprocess, got %v", err)
	}
	if !strings.Contains(err.Error(), "frame write error") {
		t.Errorf("stderr diagnostic missing from %v", err)
	}
}

func TestEncodeSequenceSuccessStreamsProgress(t *testing.T) {
	script := "printf 'frame=1\\nout_time_us=100000\\nprogress=continue\\nprogress=end\\n'"
	restore := SetCommandContextForTests(func(ctx context.Context, _ string, _ ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sh", "-c", script)
	})
	defer restore()

	var batches int
	client := NewClient()
	err := client.EncodeSequence(context.Background(), EncodeRequest{
		FramePattern: "f_%d.png",
		AudioFiles:   []AudioInput{{Path: "a.wav"}},
		Format:       "mp4",
		OutputPath:   "out.mp4",
	}, func(ProgressUpdate) { batches++ })
	if err != nil {
		t.Fatalf("EncodeSequence: %v", err)
	}
	if batches != 2 {
		t.Errorf("progress batches = %d, want 2", batches)
	}
}

func TestAvailableUsesLookPath(t *testing.T) {
	restore := SetLookPathForTests(func(string) (string, error) {
		return "", errors.New("not found")
	})
	defer restore()
	if NewClient().Available() {
		t.Fatal("expected unavailable")
	}
}

func TestStderrTailKeepsFinalLines(t *testing.T) {
	long := strings.Repeat("banner\n", 20) + "actual failure"
	tail := stderrTail(long)
	if !strings.Contains(tail, "actual failure") {
		t.Errorf("tail lost the failure: %q", tail)
	}
	if strings.Count(tail, "banner") > 4 {
		t.Errorf("tail kept too much banner: %q", tail)
	}
}
