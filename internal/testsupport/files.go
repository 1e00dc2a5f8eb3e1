package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"clipforge/internal/audio"
)

// WriteMediaWAV writes a mono PCM16 WAV holding a constant sample value, for
// tests that need a decodable media file under the configured media
// directory. Returns the file name to use as a timeline sourceRef.
func WriteMediaWAV(t testing.TB, dir, name string, value float32, seconds float64, sampleRate int) string {
	t.Helper()

	frames := int(seconds * float64(sampleRate))
	if frames <= 0 {
		frames = 1
	}
	buf := &audio.Buffer{SampleRate: sampleRate, Channels: 1, Samples: make([]float32, frames)}
	for i := range buf.Samples {
		buf.Samples[i] = value
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer file.Close()
	if err := audio.EncodeWAV(file, buf); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	return name
}
