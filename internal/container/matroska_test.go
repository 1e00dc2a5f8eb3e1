package container

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestWriterProducesMatroskaFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.mkv")
	writer, err := NewWriter(path, VideoTrack{Width: 64, Height: 48, CodecID: CodecMJPEG},
		&AudioTrack{SampleRate: 48000, Channels: 2, CodecID: CodecPCMFloat})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	if err := writer.WriteVideo(true, 0, []byte{0xff, 0xd8, 0xff, 0xd9}); err != nil {
		t.Fatalf("WriteVideo: %v", err)
	}
	if err := writer.WriteAudio(0, PCMBytes([]float32{0, 0.5, -0.5, 1})); err != nil {
		t.Fatalf("WriteAudio: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("second Close must be a no-op, got %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0x1a, 0x45, 0xdf, 0xa3}) {
		t.Fatal("output missing EBML magic")
	}
	if !bytes.Contains(data, []byte("matroska")) {
		t.Fatal("output missing matroska doctype")
	}
	if !bytes.Contains(data, []byte("clipforge")) {
		t.Fatal("output missing writing app from segment info")
	}
	if !bytes.Contains(data, []byte(CodecMJPEG)) || !bytes.Contains(data, []byte(CodecPCMFloat)) {
		t.Fatal("output missing codec IDs")
	}
}

func TestWriterVideoOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "silent.mkv")
	writer, err := NewWriter(path, VideoTrack{Width: 16, Height: 16, CodecID: CodecMJPEG}, nil)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := writer.WriteAudio(0, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("WriteAudio without track should be a no-op, got %v", err)
	}
	if err := writer.WriteVideo(true, 0, []byte{0xff, 0xd8}); err != nil {
		t.Fatalf("WriteVideo: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestPCMBytes(t *testing.T) {
	out := PCMBytes([]float32{1})
	if len(out) != 4 {
		t.Fatalf("len = %d, want 4", len(out))
	}
	bits := uint32(out[0]) | uint32(out[1])<<8 | uint32(out[2])<<16 | uint32(out[3])<<24
	if math.Float32frombits(bits) != 1 {
		t.Fatalf("round trip = %v, want 1", math.Float32frombits(bits))
	}
}
