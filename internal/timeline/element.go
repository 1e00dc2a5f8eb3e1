package timeline

import (
	"fmt"
	"strings"
)

// Kind describes which streams an element contributes to the export.
type Kind string

const (
	KindVisual Kind = "visual"
	KindAudio  Kind = "audio"
	KindBoth   Kind = "both"
)

// Transform positions a visual element on the output canvas. Zero value means
// full-canvas, fully opaque.
type Transform struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Scale   float64 `json:"scale"`
	Opacity float64 `json:"opacity"`
}

// EffectiveScale returns the scale factor, treating the zero value as 1.
func (t Transform) EffectiveScale() float64 {
	if t.Scale <= 0 {
		return 1
	}
	return t.Scale
}

// EffectiveOpacity returns the opacity clamped to [0,1], treating the zero
// value as fully opaque.
func (t Transform) EffectiveOpacity() float64 {
	if t.Opacity <= 0 {
		return 1
	}
	if t.Opacity > 1 {
		return 1
	}
	return t.Opacity
}

// Element is one placed clip on the edit timeline. All times are seconds.
type Element struct {
	ID             string    `json:"id"`
	Kind           Kind      `json:"kind"`
	SourceRef      string    `json:"source_ref"`
	TrackIndex     int       `json:"track_index"`
	StartTime      float64   `json:"start_time"`
	Duration       float64   `json:"duration"`
	TrimIn         float64   `json:"trim_in"`
	TrimOut        float64   `json:"trim_out"`
	SourceDuration float64   `json:"source_duration"`
	Volume         float64   `json:"volume"`
	Transform      Transform `json:"transform"`
}

// EndTime returns the exclusive end of the element's timeline interval.
func (e Element) EndTime() float64 {
	return e.StartTime + e.Duration
}

// ContainsTime reports whether t falls inside [StartTime, EndTime).
func (e Element) ContainsTime(t float64) bool {
	return t >= e.StartTime && t < e.EndTime()
}

// SourceTime maps a timeline timestamp into the element's media time,
// honoring the trim-in offset. Caller must ensure ContainsTime(t).
func (e Element) SourceTime(t float64) float64 {
	return e.TrimIn + (t - e.StartTime)
}

// HasAudio reports whether the element contributes to the audio mix.
func (e Element) HasAudio() bool {
	return e.Kind == KindAudio || e.Kind == KindBoth
}

// HasVisual reports whether the element contributes to the composited frame.
func (e Element) HasVisual() bool {
	return e.Kind == KindVisual || e.Kind == KindBoth
}

// EffectiveVolume returns the gain applied to the element's samples, treating
// the zero value as unity.
func (e Element) EffectiveVolume() float64 {
	if e.Volume <= 0 {
		return 1
	}
	return e.Volume
}

// Validate checks the invariants the editing collaborator promises.
func (e Element) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("element id must not be empty")
	}
	switch e.Kind {
	case KindVisual, KindAudio, KindBoth:
	default:
		return fmt.Errorf("element %s: unknown kind %q", e.ID, e.Kind)
	}
	if e.Duration <= 0 {
		return fmt.Errorf("element %s: duration must be positive", e.ID)
	}
	if e.StartTime < 0 {
		return fmt.Errorf("element %s: start time must not be negative", e.ID)
	}
	if e.TrimIn < 0 || e.TrimOut < 0 {
		return fmt.Errorf("element %s: trim values must not be negative", e.ID)
	}
	if e.SourceDuration > 0 && e.TrimIn+e.Duration > e.SourceDuration+timeEpsilon {
		return fmt.Errorf("element %s: trim_in %.3f + duration %.3f exceeds source duration %.3f",
			e.ID, e.TrimIn, e.Duration, e.SourceDuration)
	}
	return nil
}

const timeEpsilon = 1e-9
