package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"clipforge/internal/ipc"
)

// newEncodeSessionCommand is the CLI surface for frontends that stage frames
// themselves and only need the daemon's encoder.
func newEncodeSessionCommand(ctx *commandContext) *cobra.Command {
	var (
		width    int
		height   int
		fps      int
		quality  string
		format   string
		duration float64
		output   string
		audio    []string
	)

	cmd := &cobra.Command{
		Use:   "encode <frame-dir>",
		Short: "Encode a staged frame sequence through the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			audioFiles, err := parseAudioInputs(audio)
			if err != nil {
				return err
			}
			req := ipc.EncodeSessionRequest{
				SessionID:     uuid.NewString(),
				FrameDir:      args[0],
				AudioFiles:    audioFiles,
				Width:         width,
				Height:        height,
				FPS:           fps,
				QualityPreset: quality,
				Format:        format,
				Duration:      duration,
				OutputPath:    output,
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.EncodeSession(req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Encoded to %s\n", resp.OutputPath)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&width, "width", 1920, "Frame width in pixels")
	cmd.Flags().IntVar(&height, "height", 1080, "Frame height in pixels")
	cmd.Flags().IntVar(&fps, "fps", 30, "Frame rate of the sequence")
	cmd.Flags().StringVar(&quality, "quality", "medium", "Quality preset")
	cmd.Flags().StringVar(&format, "format", "mp4", "Container format (mp4 or webm)")
	cmd.Flags().Float64Var(&duration, "duration", 0, "Sequence duration in seconds")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	cmd.Flags().StringArrayVar(&audio, "audio", nil, "Audio file with offset as path=offset_seconds (repeatable)")
	_ = cmd.MarkFlagRequired("duration")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func parseAudioInputs(specs []string) ([]ipc.EncodeAudioInput, error) {
	inputs := make([]ipc.EncodeAudioInput, 0, len(specs))
	for _, spec := range specs {
		path := spec
		offset := 0.0
		if idx := strings.LastIndexByte(spec, '='); idx >= 0 {
			parsed, err := strconv.ParseFloat(spec[idx+1:], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid audio offset in %q: %w", spec, err)
			}
			path = spec[:idx]
			offset = parsed
		}
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("audio spec %q has no file path", spec)
		}
		inputs = append(inputs, ipc.EncodeAudioInput{Path: path, OffsetSeconds: offset})
	}
	return inputs, nil
}
