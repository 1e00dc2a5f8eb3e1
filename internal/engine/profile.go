package engine

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// CapabilityProfile is a read-only snapshot of what the current runtime can
// do, computed once per job and fed to the pure Supported predicates.
type CapabilityProfile struct {
	HasNativeEncoder  bool // external encoder binary reachable
	HasSharedMemory   bool
	HasHardwareDecode bool
	EstimatedRAMMiB   int
	PerformanceScore  float64
}

var sysinfo = unix.Sysinfo

// DetectProfile probes the runtime once. hasNativeEncoder is supplied by the
// caller because binary discovery is config-dependent.
func DetectProfile(hasNativeEncoder bool) CapabilityProfile {
	profile := CapabilityProfile{
		HasNativeEncoder: hasNativeEncoder,
		HasSharedMemory:  true,
	}

	var info unix.Sysinfo_t
	if err := sysinfo(&info); err == nil {
		totalMiB := int(uint64(info.Totalram) * uint64(info.Unit) / (1024 * 1024))
		profile.EstimatedRAMMiB = totalMiB
	}

	// Coarse score: CPU parallelism weighted by available memory headroom.
	score := float64(runtime.NumCPU())
	if profile.EstimatedRAMMiB >= 8192 {
		score *= 2
	} else if profile.EstimatedRAMMiB > 0 && profile.EstimatedRAMMiB < 2048 {
		score /= 2
	}
	profile.PerformanceScore = score
	return profile
}
