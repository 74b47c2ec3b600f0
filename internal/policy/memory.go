package policy

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultMemoryLimitBytes is used when a policy declares no memory limit.
	DefaultMemoryLimitBytes uint64 = 256 * 1024 * 1024 // 256 MiB

	minMemoryLimitBytes uint64 = 1 * 1024 * 1024 // 1 MiB clamp floor
	maxMemoryLimitBytes uint64 = 1 << 40          // 1 TiB clamp ceiling, stands in for "the host's addressable ceiling"
)

// MemoryLimitBytes parses a Kubernetes-style quantity ("512Mi", "1Gi") into
// bytes and clamps it to [1 MiB, host ceiling]. An empty quantity yields
// DefaultMemoryLimitBytes.
func MemoryLimitBytes(quantity string) (uint64, error) {
	if quantity == "" {
		return DefaultMemoryLimitBytes, nil
	}

	unit := uint64(1)
	numPart := quantity
	switch {
	case strings.HasSuffix(quantity, "Ki"):
		unit = 1024
		numPart = strings.TrimSuffix(quantity, "Ki")
	case strings.HasSuffix(quantity, "Mi"):
		unit = 1024 * 1024
		numPart = strings.TrimSuffix(quantity, "Mi")
	case strings.HasSuffix(quantity, "Gi"):
		unit = 1024 * 1024 * 1024
		numPart = strings.TrimSuffix(quantity, "Gi")
	}

	n, err := strconv.ParseUint(numPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid memory quantity %q: %w", quantity, err)
	}

	bytes := n * unit
	return clampMemory(bytes), nil
}

func clampMemory(bytes uint64) uint64 {
	if bytes < minMemoryLimitBytes {
		return minMemoryLimitBytes
	}
	if bytes > maxMemoryLimitBytes {
		return maxMemoryLimitBytes
	}
	return bytes
}
