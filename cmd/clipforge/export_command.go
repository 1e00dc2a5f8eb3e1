package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/ipc"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var (
		title    string
		width    int
		height   int
		fps      int
		format   string
		quality  string
		duration float64
		output   string
	)

	cmd := &cobra.Command{
		Use:   "export <timeline.json>",
		Short: "Enqueue an export job from a timeline file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timelinePath := args[0]
			data, err := os.ReadFile(timelinePath)
			if err != nil {
				return fmt.Errorf("read timeline: %w", err)
			}

			if strings.TrimSpace(title) == "" {
				title = strings.TrimSuffix(filepath.Base(timelinePath), filepath.Ext(timelinePath))
			}
			if strings.TrimSpace(output) == "" {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				output = filepath.Join(cfg.Paths.OutputDir, title+"."+format)
			}

			req := ipc.ExportRequest{
				Title:        title,
				TimelineJSON: string(data),
				Width:        width,
				Height:       height,
				FPS:          fps,
				Format:       format,
				Quality:      quality,
				Duration:     duration,
				OutputPath:   output,
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Export(req)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Enqueued job %s\n", resp.Job.JobID)
				fmt.Fprintf(out, "Output: %s\n", output)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Job title (defaults to the timeline file name)")
	cmd.Flags().IntVar(&width, "width", 1920, "Output width in pixels")
	cmd.Flags().IntVar(&height, "height", 1080, "Output height in pixels")
	cmd.Flags().IntVar(&fps, "fps", 30, "Output frame rate")
	cmd.Flags().StringVar(&format, "format", "mp4", "Container format (mp4 or webm)")
	cmd.Flags().StringVar(&quality, "quality", "medium", "Quality preset (low, medium, high)")
	cmd.Flags().Float64Var(&duration, "duration", 0, "Export duration in seconds")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	_ = cmd.MarkFlagRequired("duration")
	return cmd
}
