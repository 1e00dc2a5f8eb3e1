package preflight

import (
	"context"
	"fmt"
	"strings"

	"clipforge/internal/config"
	"clipforge/internal/deps"
	"clipforge/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes all preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDiskSpace(cfg.Paths.StagingDir, float64(cfg.Export.MinFreeGiB)),
	}

	// FFmpeg is optional: without it the selector falls back to the
	// in-process engines instead of failing the job.
	results = append(results, CheckEncoder(cfg.FFmpeg.Binary))
	return results
}

// Gate converts check results into a go/no-go decision. Optional failures
// never block.
func Gate(results []Result) error {
	var failed []string
	for _, result := range results {
		if !result.Passed && !result.Optional {
			failed = append(failed, fmt.Sprintf("%s: %s", result.Name, result.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return services.Wrap(services.ErrValidation, "preflight", "gate",
		strings.Join(failed, "; "), nil)
}

// CheckEncoder reports whether the external encoder binary is reachable.
func CheckEncoder(binary string) Result {
	statuses := deps.CheckBinaries(deps.DefaultRequirements(binary))
	status := statuses[0]
	if !status.Available {
		return Result{
			Name:     status.Name,
			Optional: true,
			Detail:   status.Detail + "; exports will use in-process backends",
		}
	}
	return Result{
		Name:     status.Name,
		Passed:   true,
		Optional: true,
		Detail:   "available at " + status.Command,
	}
}
