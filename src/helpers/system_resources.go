package helpers

import (
	"os"
	"runtime/debug"

	"option-guide/src/logger"
)

const fallbackMemoryMB = 512

// RecommendedMemoryLimitMB is 75% of physical memory (or of the cgroup
// limit when lower), never below 512MB unless the machine is smaller.
func RecommendedMemoryLimitMB() int {
	totalMB := totalSystemMemoryMB()
	if totalMB == 0 {
		return fallbackMemoryMB
	}
	return memoryLimitFor(totalMB)
}

func memoryLimitFor(totalMB int) int {
	limit := int(float64(totalMB) * 0.75)
	if limit < fallbackMemoryMB {
		if totalMB < fallbackMemoryMB {
			return totalMB
		}
		return fallbackMemoryMB
	}
	return limit
}

// -----------------------------------------------------------------------------

// ApplyMemoryLimit sets the runtime soft memory limit. An explicit
// GOMEMLIMIT wins and is left untouched. It returns the limit in MB, or 0
// when the environment decided.
func ApplyMemoryLimit(l *logger.Logger) int {
	if os.Getenv("GOMEMLIMIT") != "" {
		l.Info("GOMEMLIMIT set, keeping runtime memory limit")
		return 0
	}
	limitMB := RecommendedMemoryLimitMB()
	debug.SetMemoryLimit(int64(limitMB) << 20)
	l.Info("Memory limit set to: %d MB", limitMB)
	return limitMB
}
