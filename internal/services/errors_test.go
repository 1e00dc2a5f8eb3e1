package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestWrapPreservesSentinel(t *testing.T) {
	base := errors.New("exit status 1")
	err := Wrap(ErrSubprocess, "extproc", "run ffmpeg", "FFmpeg exited non-zero", base)
	if !errors.Is(err, ErrSubprocess) {
		t.Fatalf("expected ErrSubprocess, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause to survive, got %v", err)
	}
}

func TestFatalClassification(t *testing.T) {
	if Fatal(Wrap(ErrSourceDecode, "audio", "decode", "bad sample", nil)) {
		t.Fatal("source decode errors must not be fatal")
	}
	if !Fatal(Wrap(ErrTimeout, "extproc", "run ffmpeg", "exceeded budget", nil)) {
		t.Fatal("timeouts must be fatal")
	}
	if Fatal(nil) {
		t.Fatal("nil is not fatal")
	}
}

func TestIsCancellation(t *testing.T) {
	if !IsCancellation(ErrCancelled) {
		t.Fatal("expected ErrCancelled to classify as cancellation")
	}
	if !IsCancellation(fmt.Errorf("wrapped: %w", context.Canceled)) {
		t.Fatal("expected context.Canceled to classify as cancellation")
	}
	if IsCancellation(ErrSubprocess) {
		t.Fatal("subprocess failure is not cancellation")
	}
}

func TestMessageStripsSentinelPrefix(t *testing.T) {
	err := Wrap(ErrSubprocess, "extproc", "run ffmpeg", "FFmpeg exited non-zero", nil)
	want := "extproc: run ffmpeg: FFmpeg exited non-zero"
	if got := Message(err); got != want {
		t.Fatalf("Message = %q, want %q", got, want)
	}
}
