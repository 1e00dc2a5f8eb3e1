package export

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipforge/internal/engine"
)

// State is one node of the job state machine.
type State string

const (
	StateQueued    State = "queued"
	StatePreparing State = "preparing"
	StateEncoding  State = "encoding"
	StateMuxing    State = "muxing"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// Job is one export run. The coordinator is the only writer; everyone else
// reads through View.
type Job struct {
	id        string
	settings  engine.Settings
	createdAt time.Time

	mu         sync.Mutex
	state      State
	progress   float64
	backend    engine.Kind
	warnings   []string
	outputPath string
	err        error
	cancelled  bool
	cancel     context.CancelFunc

	done     chan struct{}
	doneOnce sync.Once
}

// NewJob creates a job in the Queued state.
func NewJob(settings engine.Settings) *Job {
	return NewJobWithID(uuid.NewString(), settings)
}

// NewJobWithID creates a queued job carrying an identifier assigned
// elsewhere, such as a persisted queue row.
func NewJobWithID(id string, settings engine.Settings) *Job {
	return &Job{
		id:        id,
		settings:  settings,
		createdAt: time.Now().UTC(),
		state:     StateQueued,
		done:      make(chan struct{}),
	}
}

// ID returns the job's unique identifier.
func (j *Job) ID() string { return j.id }

// Settings returns the export parameters the job was created with.
func (j *Job) Settings() engine.Settings { return j.settings }

// Done is closed once the job reaches a terminal state and all resources
// are released.
func (j *Job) Done() <-chan struct{} { return j.done }

// View is a read-only snapshot of a job.
type View struct {
	ID         string
	Settings   engine.Settings
	State      State
	Progress   float64
	Backend    engine.Kind
	Warnings   []string
	OutputPath string
	Error      string
	CreatedAt  time.Time
}

// View returns a consistent snapshot of the job.
func (j *Job) View() View {
	j.mu.Lock()
	defer j.mu.Unlock()
	view := View{
		ID:         j.id,
		Settings:   j.settings,
		State:      j.state,
		Progress:   j.progress,
		Backend:    j.backend,
		OutputPath: j.outputPath,
		CreatedAt:  j.createdAt,
	}
	if j.err != nil {
		view.Error = j.err.Error()
	}
	view.Warnings = make([]string, len(j.warnings))
	copy(view.Warnings, j.warnings)
	return view
}

// Cancel requests cancellation and waits until the job has fully torn down
// or ctx expires. Idempotent; cancelling a terminal job is a no-op.
func (j *Job) Cancel(ctx context.Context) error {
	j.mu.Lock()
	if j.state.Terminal() {
		j.mu.Unlock()
		return nil
	}
	j.cancelled = true
	cancel := j.cancel
	if cancel == nil {
		// Not yet picked up by the coordinator; settle it here.
		j.state = StateCancelled
		j.mu.Unlock()
		j.closeDone()
		return nil
	}
	j.mu.Unlock()

	cancel()
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// bind attaches the coordinator's cancel func. Returns false when the job
// was cancelled before it started running.
func (j *Job) bind(cancel context.CancelFunc) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() {
		return false
	}
	j.cancel = cancel
	return true
}

func (j *Job) setState(state State) {
	j.mu.Lock()
	j.state = state
	j.mu.Unlock()
}

func (j *Job) setBackend(kind engine.Kind) {
	j.mu.Lock()
	j.backend = kind
	j.mu.Unlock()
}

func (j *Job) setProgress(progress float64) {
	j.mu.Lock()
	if progress > j.progress {
		j.progress = progress
	}
	j.mu.Unlock()
}

func (j *Job) addWarnings(warnings []string) {
	if len(warnings) == 0 {
		return
	}
	j.mu.Lock()
	j.warnings = append(j.warnings, warnings...)
	j.mu.Unlock()
}

func (j *Job) cancelRequested() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cancelled
}

func (j *Job) complete(outputPath string) {
	j.mu.Lock()
	j.state = StateCompleted
	j.progress = 1
	j.outputPath = outputPath
	j.mu.Unlock()
}

func (j *Job) fail(err error) {
	j.mu.Lock()
	j.state = StateFailed
	j.err = err
	j.mu.Unlock()
}

func (j *Job) markCancelled() {
	j.mu.Lock()
	j.state = StateCancelled
	j.mu.Unlock()
}

func (j *Job) closeDone() {
	j.doneOnce.Do(func() { close(j.done) })
}
