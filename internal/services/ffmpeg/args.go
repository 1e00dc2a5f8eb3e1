package ffmpeg

import (
	"fmt"
	"strings"
)

// AudioInput is one audio file scheduled at an offset on the output timeline.
type AudioInput struct {
	Path          string
	OffsetSeconds float64
}

// EncodeRequest describes one image-sequence encode.
type EncodeRequest struct {
	FramePattern string // e.g. /staging/job/frames/frame_%05d.png
	FPS          int
	Width        int
	Height       int
	AudioFiles   []AudioInput
	Format       string // "mp4" or "webm"
	CRF          string
	Duration     float64
	OutputPath   string
}

// BuildEncodeArgs constructs the full FFmpeg argument list for req. The
// output always carries exactly one video and one audio stream; multiple
// audio inputs are delayed onto the shared timeline and mixed in-filter.
func BuildEncodeArgs(req EncodeRequest) ([]string, error) {
	if req.FramePattern == "" {
		return nil, fmt.Errorf("ffmpeg args: frame pattern required")
	}
	if req.OutputPath == "" {
		return nil, fmt.Errorf("ffmpeg args: output path required")
	}
	if len(req.AudioFiles) == 0 {
		return nil, fmt.Errorf("ffmpeg args: at least one audio input required")
	}
	fps := req.FPS
	if fps <= 0 {
		fps = 30
	}

	args := []string{
		"-y",
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", req.FramePattern,
	}
	for _, input := range req.AudioFiles {
		if input.OffsetSeconds > 0 {
			args = append(args, "-itsoffset", fmt.Sprintf("%.3f", input.OffsetSeconds))
		}
		args = append(args, "-i", input.Path)
	}

	videoCodec, audioCodec, err := codecsForFormat(req.Format)
	if err != nil {
		return nil, err
	}

	if len(req.AudioFiles) == 1 {
		args = append(args, "-map", "0:v", "-map", "1:a")
	} else {
		var filter strings.Builder
		for i := range req.AudioFiles {
			fmt.Fprintf(&filter, "[%d:a]", i+1)
		}
		fmt.Fprintf(&filter, "amix=inputs=%d:normalize=0[aout]", len(req.AudioFiles))
		args = append(args, "-filter_complex", filter.String(), "-map", "0:v", "-map", "[aout]")
	}

	args = append(args, "-c:v", videoCodec, "-pix_fmt", "yuv420p")
	if req.CRF != "" {
		args = append(args, "-crf", req.CRF)
	}
	if videoCodec == "libvpx-vp9" {
		// CRF mode for VP9 needs an explicit zero bitrate.
		args = append(args, "-b:v", "0")
	}
	args = append(args, "-c:a", audioCodec)
	if req.Format == "mp4" {
		args = append(args, "-movflags", "+faststart")
	}
	if req.Duration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.3f", req.Duration))
	}
	args = append(args,
		"-progress", "pipe:1",
		"-nostats",
		req.OutputPath,
	)
	return args, nil
}

func codecsForFormat(format string) (video, audio string, err error) {
	switch format {
	case "mp4":
		return "libx264", "aac", nil
	case "webm":
		return "libvpx-vp9", "libopus", nil
	default:
		return "", "", fmt.Errorf("ffmpeg args: unsupported format %q (want mp4 or webm)", format)
	}
}
