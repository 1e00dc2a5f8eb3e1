package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"clipforge/internal/logging"
	"clipforge/internal/services"
)

// DefaultOrder returns the backend preference order for a capability profile.
// The stream recorder closes every order because it is the guaranteed
// lowest-common-denominator baseline.
func DefaultOrder(profile CapabilityProfile) []Kind {
	if profile.HasNativeEncoder {
		return []Kind{KindExternalProcess, KindSoftwareEncoder, KindStreamRecorder}
	}
	return []Kind{KindStreamRecorder, KindSoftwareEncoder}
}

// OrderFromNames converts configured backend names into a preference order.
// Unknown names are rejected so a typo in config fails loudly instead of
// silently narrowing the candidate set.
func OrderFromNames(names []string) ([]Kind, error) {
	order := make([]Kind, 0, len(names))
	for _, name := range names {
		kind := Kind(name)
		switch kind {
		case KindExternalProcess, KindSoftwareEncoder, KindStreamRecorder:
			order = append(order, kind)
		default:
			return nil, services.Wrap(services.ErrValidation, "engine", "order", fmt.Sprintf("unknown backend %q", name), nil)
		}
	}
	return order, nil
}

// Selector picks one engine from a preference order. Selection is performed
// at most once; repeated Select calls return the same engine without
// re-initialising it.
type Selector struct {
	mu       sync.Mutex
	logger   *slog.Logger
	profile  CapabilityProfile
	order    []Kind
	engines  map[Kind]Engine
	selected Engine
	warnings []string
	done     bool
}

// NewSelector builds a selector over the given candidates. The stream
// recorder baseline is appended to the order if the caller left it out.
func NewSelector(profile CapabilityProfile, order []Kind, candidates []Engine, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = logging.NewNop()
	}
	engines := make(map[Kind]Engine, len(candidates))
	for _, candidate := range candidates {
		engines[candidate.Kind()] = candidate
	}
	normalized := make([]Kind, 0, len(order)+1)
	sawBaseline := false
	for _, kind := range order {
		if kind == KindStreamRecorder {
			sawBaseline = true
		}
		normalized = append(normalized, kind)
	}
	if !sawBaseline {
		normalized = append(normalized, KindStreamRecorder)
	}
	return &Selector{
		logger:  logger,
		profile: profile,
		order:   normalized,
		engines: engines,
	}
}

// Select walks the preference order and returns the first candidate that is
// both supported and initialises cleanly. Skipped candidates ahead of the
// chosen one produce degraded-mode warnings. When no candidate survives the
// walk the error wraps services.ErrEngineInit.
func (s *Selector) Select(ctx context.Context) (Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		if s.selected == nil {
			return nil, services.Wrap(services.ErrEngineInit, "engine", "select", "no usable export backend", nil)
		}
		return s.selected, nil
	}
	s.done = true

	preferred := true
	for _, kind := range s.order {
		candidate, ok := s.engines[kind]
		if !ok {
			continue
		}
		if !candidate.Supported(s.profile) {
			s.logger.Debug("backend unsupported in this environment",
				logging.Backend(string(kind)))
			s.warnings = append(s.warnings, fmt.Sprintf("backend %s skipped: unsupported", kind))
			preferred = false
			continue
		}
		if err := candidate.Init(ctx); err != nil {
			if services.IsCancellation(err) {
				s.done = false
				return nil, err
			}
			s.logger.Warn("backend failed to initialise, advancing",
				logging.Backend(string(kind)),
				logging.Error(err))
			s.warnings = append(s.warnings, fmt.Sprintf("backend %s skipped: init failed: %s", kind, services.Message(err)))
			preferred = false
			continue
		}
		if !preferred {
			s.warnings = append(s.warnings, fmt.Sprintf("export degraded to %s backend", kind))
		}
		s.logger.Info("export backend selected",
			logging.Backend(string(kind)))
		s.selected = candidate
		return candidate, nil
	}
	return nil, services.Wrap(services.ErrEngineInit, "engine", "select", "no usable export backend", nil)
}

// Selected returns the chosen engine, or nil before Select succeeds.
func (s *Selector) Selected() Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Warnings returns degradation warnings gathered during selection.
func (s *Selector) Warnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.warnings))
	copy(out, s.warnings)
	return out
}
