package timeline

import (
	"fmt"
	"sort"
)

// Snapshot is an immutable, validated copy of the timeline taken when an
// export job is created. Mutating the original slice after Freeze has no
// effect on the snapshot, which keeps frame rendering deterministic.
type Snapshot struct {
	elements []Element
}

// Freeze validates and copies elements into a Snapshot. Elements are kept in
// ascending track order so ActiveAt callers composite bottom-up without
// re-sorting per frame.
func Freeze(elements []Element) (*Snapshot, error) {
	copied := make([]Element, len(elements))
	copy(copied, elements)
	for _, element := range copied {
		if err := element.Validate(); err != nil {
			return nil, fmt.Errorf("freeze timeline: %w", err)
		}
	}
	sort.SliceStable(copied, func(i, j int) bool {
		return copied[i].TrackIndex < copied[j].TrackIndex
	})
	return &Snapshot{elements: copied}, nil
}

// Len returns the number of elements in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.elements)
}

// Elements returns a copy of all elements in ascending track order.
func (s *Snapshot) Elements() []Element {
	if s == nil {
		return nil
	}
	out := make([]Element, len(s.elements))
	copy(out, s.elements)
	return out
}

// ActiveAt appends the elements whose interval contains t to dst, ascending
// by track index (higher tracks later, drawn on top). Passing a reused dst
// slice avoids per-frame allocation.
func (s *Snapshot) ActiveAt(t float64, dst []Element) []Element {
	dst = dst[:0]
	if s == nil {
		return dst
	}
	for _, element := range s.elements {
		if element.ContainsTime(t) {
			dst = append(dst, element)
		}
	}
	return dst
}

// AudioElements returns the audio-bearing elements in track order.
func (s *Snapshot) AudioElements() []Element {
	if s == nil {
		return nil
	}
	out := make([]Element, 0, len(s.elements))
	for _, element := range s.elements {
		if element.HasAudio() {
			out = append(out, element)
		}
	}
	return out
}

// VisualEnd returns the latest end time over visual elements, zero when none.
func (s *Snapshot) VisualEnd() float64 {
	var end float64
	if s == nil {
		return end
	}
	for _, element := range s.elements {
		if element.HasVisual() && element.EndTime() > end {
			end = element.EndTime()
		}
	}
	return end
}

// AudioEnd returns the latest end time over audio elements, zero when none.
func (s *Snapshot) AudioEnd() float64 {
	var end float64
	if s == nil {
		return end
	}
	for _, element := range s.elements {
		if element.HasAudio() && element.EndTime() > end {
			end = element.EndTime()
		}
	}
	return end
}
