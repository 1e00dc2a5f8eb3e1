package logs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// pollInterval is how often follow mode re-checks the file for new lines.
const pollInterval = 250 * time.Millisecond

// Options controls one Tail call against the daemon log.
type Options struct {
	// Offset is the byte position to resume from. A negative offset reads
	// the trailing Limit lines instead.
	Offset int64
	// Limit bounds how many trailing lines a negative-offset read returns.
	Limit int
	// JobID, when set, restricts the result to lines carrying that export
	// job's id in their structured fields.
	JobID string
	// Follow keeps polling for up to Wait when a read returns no lines.
	Follow bool
	Wait   time.Duration
}

// Batch is one chunk of log lines plus the offset to resume from.
type Batch struct {
	Lines  []string
	Offset int64
}

// Tail reads daemon log lines from path. A missing file is not an error;
// it returns an empty batch at offset zero so a fresh daemon can be
// followed before its first write.
func Tail(ctx context.Context, path string, opts Options) (Batch, error) {
	if opts.Wait < 0 {
		opts.Wait = 0
	}

	batch, err := collect(path, opts)
	if err != nil || len(batch.Lines) > 0 || !opts.Follow || opts.Wait <= 0 {
		return batch, err
	}

	deadline := time.Now().Add(opts.Wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if time.Now().After(deadline) {
			return batch, nil
		}
		select {
		case <-ctx.Done():
			return batch, ctx.Err()
		case <-ticker.C:
		}

		next := opts
		next.Offset = batch.Offset
		batch, err = collect(path, next)
		if err != nil || len(batch.Lines) > 0 {
			return batch, err
		}
	}
}

func collect(path string, opts Options) (Batch, error) {
	batch := Batch{Offset: opts.Offset}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			batch.Offset = 0
			return batch, nil
		}
		return batch, fmt.Errorf("open daemon log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return batch, fmt.Errorf("stat daemon log: %w", err)
	}
	if info.IsDir() {
		return batch, fmt.Errorf("daemon log path %q is a directory", path)
	}

	tailing := opts.Offset < 0
	if !tailing {
		start := opts.Offset
		if start > info.Size() {
			// The daemon rotated or truncated the log; restart from the top.
			start = 0
		}
		if _, err := file.Seek(start, io.SeekStart); err != nil {
			return batch, fmt.Errorf("seek daemon log: %w", err)
		}
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !lineMatchesJob(line, opts.JobID) {
			continue
		}
		batch.Lines = append(batch.Lines, line)
		if tailing && opts.Limit > 0 && len(batch.Lines) > opts.Limit {
			batch.Lines = batch.Lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return batch, fmt.Errorf("read daemon log: %w", err)
	}
	if tailing && opts.Limit <= 0 {
		batch.Lines = nil
	}

	offset, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return batch, fmt.Errorf("resolve daemon log offset: %w", err)
	}
	batch.Offset = offset
	return batch, nil
}

// lineMatchesJob reports whether a structured log line belongs to the given
// export job. With no filter every line matches; with a filter, lines that
// are not JSON or carry a different job id are dropped.
func lineMatchesJob(line, jobID string) bool {
	if jobID == "" {
		return true
	}
	var fields struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return false
	}
	return fields.JobID == jobID
}
