package ipc

import "time"

// JobSummary is the wire representation of a persisted export job.
type JobSummary struct {
	ID         int64
	JobID      string
	Title      string
	Status     string
	Progress   float64
	Backend    string
	OutputPath string
	Error      string
	Warnings   []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// StatusRequest asks for daemon runtime information.
type StatusRequest struct{}

// StatusResponse reports daemon health, queue statistics, and the detected
// encode capabilities.
type StatusResponse struct {
	Running          bool
	PID              int
	QueueDBPath      string
	LockPath         string
	QueueStats       map[string]int
	Active           *JobSummary
	LastError        string
	HasNativeEncoder bool
	EstimatedRAMMiB  int
	BackendOrder     []string
}

// ExportRequest enqueues a new export job. TimelineJSON carries the placed
// elements as produced by the editing frontend.
type ExportRequest struct {
	Title        string
	TimelineJSON string
	Width        int
	Height       int
	FPS          int
	Format       string
	Quality      string
	Duration     float64
	OutputPath   string
}

// ExportResponse returns the persisted job.
type ExportResponse struct {
	Job JobSummary
}

// JobListRequest filters jobs by optional status names.
type JobListRequest struct {
	Statuses []string
}

// JobListResponse lists persisted jobs oldest first.
type JobListResponse struct {
	Jobs []JobSummary
}

// JobDescribeRequest fetches one job by UUID.
type JobDescribeRequest struct {
	JobID string
}

// JobDescribeResponse returns the matched job.
type JobDescribeResponse struct {
	Job JobSummary
}

// CancelRequest cancels a queued or running job by UUID.
type CancelRequest struct {
	JobID string
}

// CancelResponse reports whether anything was cancelled.
type CancelResponse struct {
	Cancelled bool
	Message   string
}

// ClearCompletedRequest removes completed jobs.
type ClearCompletedRequest struct{}

// ClearCompletedResponse reports how many rows were removed.
type ClearCompletedResponse struct {
	Removed int64
}

// ClearFailedRequest removes failed jobs.
type ClearFailedRequest struct{}

// ClearFailedResponse reports how many rows were removed.
type ClearFailedResponse struct {
	Removed int64
}

// StopRequest asks the daemon to shut down its worker loop.
type StopRequest struct{}

// StopResponse acknowledges the stop.
type StopResponse struct {
	Stopped bool
}

// EncodeAudioInput schedules one audio file at an offset within an encode
// session.
type EncodeAudioInput struct {
	Path          string
	OffsetSeconds float64
}

// EncodeSessionRequest runs one external encode over a frame directory the
// caller staged. Sessions serialize inside the daemon.
type EncodeSessionRequest struct {
	SessionID     string
	FrameDir      string
	AudioFiles    []EncodeAudioInput
	Width         int
	Height        int
	FPS           int
	QualityPreset string
	Format        string
	Duration      float64
	OutputPath    string
}

// EncodeSessionResponse returns the encoded file location.
type EncodeSessionResponse struct {
	OutputPath string
}
