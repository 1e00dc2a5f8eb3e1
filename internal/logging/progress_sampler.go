package logging

import "strings"

// ProgressSampler decides which progress updates of a running export are
// worth a log line. It always emits when the job enters a new stage and
// otherwise only when completion has advanced by at least the configured
// step, so a chatty encoder cannot flood the daemon log.
type ProgressSampler struct {
	step     float64
	stage    string
	lastDone float64
}

// NewProgressSampler returns a sampler emitting every stepPercent of
// completion (default 5).
func NewProgressSampler(stepPercent float64) *ProgressSampler {
	if stepPercent <= 0 {
		stepPercent = 5
	}
	return &ProgressSampler{step: stepPercent, lastDone: -1}
}

// ShouldLog reports whether to log an update at percent completion for the
// given stage. A negative percent means completion is unknown; only stage
// changes emit then.
func (s *ProgressSampler) ShouldLog(percent float64, stage string) bool {
	if s == nil {
		return true
	}
	if percent > 100 {
		percent = 100
	}
	if stage = strings.TrimSpace(stage); stage != "" && stage != s.stage {
		s.stage = stage
		s.lastDone = percent
		return true
	}
	if percent < 0 {
		return false
	}
	if s.lastDone >= 0 {
		if percent == 100 {
			if s.lastDone == 100 {
				return false
			}
		} else if percent-s.lastDone < s.step {
			return false
		}
	}
	s.lastDone = percent
	return true
}

// Reset clears the sampler when a new job starts.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.stage = ""
	s.lastDone = -1
}
