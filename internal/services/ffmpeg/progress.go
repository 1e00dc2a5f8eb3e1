package ffmpeg

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// ProgressUpdate captures one -progress batch from FFmpeg.
type ProgressUpdate struct {
	OutTimeSeconds float64
	Frame          int64
	FPS            float64
	Speed          string
	Done           bool
}

// parseProgress reads FFmpeg's -progress key=value output, invoking callback
// once per batch. Batches end with a "progress=continue" or "progress=end"
// marker line.
func parseProgress(r io.Reader, callback func(ProgressUpdate)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var batch ProgressUpdate
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "progress=") {
			batch.Done = line == "progress=end"
			if callback != nil {
				callback(batch)
			}
			batch = ProgressUpdate{}
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "frame":
			if frame, err := strconv.ParseInt(value, 10, 64); err == nil && frame >= 0 {
				batch.Frame = frame
			}
		case "fps":
			if fps, err := strconv.ParseFloat(value, 64); err == nil && fps >= 0 {
				batch.FPS = fps
			}
		case "out_time_us":
			if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
				batch.OutTimeSeconds = float64(us) / 1e6
			}
		case "out_time_ms":
			// Despite the name, ffmpeg emits microseconds under this key.
			if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
				batch.OutTimeSeconds = float64(us) / 1e6
			}
		case "out_time":
			if seconds, ok := parseClockTime(value); ok {
				batch.OutTimeSeconds = seconds
			}
		case "speed":
			if value != "N/A" {
				batch.Speed = value
			}
		}
	}
	return scanner.Err()
}

// parseClockTime parses FFmpeg's HH:MM:SS.micros clock format.
func parseClockTime(value string) (float64, bool) {
	if value == "" || value == "N/A" {
		return 0, false
	}
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, false
	}
	hours, err1 := strconv.ParseFloat(parts[0], 64)
	minutes, err2 := strconv.ParseFloat(parts[1], 64)
	seconds, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return hours*3600 + minutes*60 + seconds, true
}
