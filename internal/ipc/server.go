package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"

	"log/slog"

	"clipforge/internal/daemon"
	"clipforge/internal/engine"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/timeline"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Clipforge", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.EventType("ipc_accept_failed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	return logging.NewComponentLogger(s.logger, "ipc")
}

func summarize(item *queue.Item) JobSummary {
	return JobSummary{
		ID:         item.ID,
		JobID:      item.JobID,
		Title:      item.Title,
		Status:     string(item.Status),
		Progress:   item.Progress,
		Backend:    item.Backend,
		OutputPath: item.OutputPath,
		Error:      item.ErrorMessage,
		Warnings:   item.Warnings(),
		CreatedAt:  item.CreatedAt,
		UpdatedAt:  item.UpdatedAt,
	}
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.QueueDBPath = status.QueueDBPath
	resp.LockPath = status.LockFilePath
	resp.QueueStats = make(map[string]int, len(status.QueueStats))
	for k, v := range status.QueueStats {
		resp.QueueStats[string(k)] = v
	}
	if status.Active != nil {
		active := summarize(status.Active)
		resp.Active = &active
	}
	resp.LastError = status.LastError

	caps := s.daemon.Capabilities()
	resp.HasNativeEncoder = caps.HasNativeEncoder
	resp.EstimatedRAMMiB = caps.EstimatedRAMMiB
	resp.BackendOrder = caps.BackendOrder
	return nil
}

func (s *service) Export(req ExportRequest, resp *ExportResponse) error {
	var elements []timeline.Element
	if strings.TrimSpace(req.TimelineJSON) != "" {
		if err := json.Unmarshal([]byte(req.TimelineJSON), &elements); err != nil {
			return fmt.Errorf("decode timeline: %w", err)
		}
	}
	settings := engine.Settings{
		Width:      req.Width,
		Height:     req.Height,
		FPS:        req.FPS,
		Format:     req.Format,
		Quality:    req.Quality,
		Duration:   req.Duration,
		OutputPath: req.OutputPath,
	}
	item, err := s.daemon.Enqueue(s.ctx, req.Title, elements, settings)
	if err != nil {
		return err
	}
	resp.Job = summarize(item)
	s.log().Info("export enqueued via IPC",
		logging.JobID(item.JobID),
		logging.EventType("export_enqueued"))
	return nil
}

func (s *service) JobList(req JobListRequest, resp *JobListResponse) error {
	statuses := make([]queue.Status, 0, len(req.Statuses))
	for _, raw := range req.Statuses {
		parsed, ok := queue.ParseStatus(raw)
		if !ok {
			return fmt.Errorf("unknown status %q", raw)
		}
		statuses = append(statuses, parsed)
	}
	items, err := s.daemon.ListJobs(s.ctx, statuses)
	if err != nil {
		return err
	}
	resp.Jobs = make([]JobSummary, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		resp.Jobs = append(resp.Jobs, summarize(item))
	}
	return nil
}

func (s *service) JobDescribe(req JobDescribeRequest, resp *JobDescribeResponse) error {
	if strings.TrimSpace(req.JobID) == "" {
		return errors.New("job id required")
	}
	item, err := s.daemon.GetJob(s.ctx, req.JobID)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("job %s not found", req.JobID)
	}
	resp.Job = summarize(item)
	return nil
}

func (s *service) Cancel(req CancelRequest, resp *CancelResponse) error {
	if strings.TrimSpace(req.JobID) == "" {
		return errors.New("job id required")
	}
	cancelled, err := s.daemon.CancelJob(s.ctx, req.JobID)
	if err != nil {
		return err
	}
	resp.Cancelled = cancelled
	if cancelled {
		resp.Message = "job cancelled"
		s.log().Info("job cancelled via IPC",
			logging.JobID(req.JobID),
			logging.EventType("job_cancelled"))
	} else {
		resp.Message = "job already finished or unknown"
	}
	return nil
}

func (s *service) ClearCompleted(_ ClearCompletedRequest, resp *ClearCompletedResponse) error {
	removed, err := s.daemon.ClearCompleted(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	return nil
}

func (s *service) ClearFailed(_ ClearFailedRequest, resp *ClearFailedResponse) error {
	removed, err := s.daemon.ClearFailed(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC",
		logging.EventType("daemon_stop"))
	return nil
}

func (s *service) EncodeSession(req EncodeSessionRequest, resp *EncodeSessionResponse) error {
	if strings.TrimSpace(req.FrameDir) == "" {
		return errors.New("frame directory required")
	}
	audioFiles := make([]daemon.EncodeAudioInput, 0, len(req.AudioFiles))
	for _, input := range req.AudioFiles {
		audioFiles = append(audioFiles, daemon.EncodeAudioInput{
			Path:          input.Path,
			OffsetSeconds: input.OffsetSeconds,
		})
	}
	output, err := s.daemon.EncodeSession(s.ctx, daemon.EncodeSessionRequest{
		SessionID:     req.SessionID,
		FrameDir:      req.FrameDir,
		AudioFiles:    audioFiles,
		Width:         req.Width,
		Height:        req.Height,
		FPS:           req.FPS,
		QualityPreset: req.QualityPreset,
		Format:        req.Format,
		Duration:      req.Duration,
		OutputPath:    req.OutputPath,
	})
	if err != nil {
		return err
	}
	resp.OutputPath = output
	return nil
}
