// Package sysinfo samples the process memory footprint shown in the
// viewer's debug footer. Page bitmaps dominate the heap, so RSS is the
// number that shows whether the page window is doing its job.
package sysinfo

import (
	"context"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// Memory is one sample of process and host memory, in bytes.
type Memory struct {
	RSS       uint64
	Total     uint64
	Available uint64
}

// Share is RSS as a fraction of host memory, or 0 if the total is unknown.
func (m Memory) Share() float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.RSS) / float64(m.Total)
}

// ProcessRSS returns the resident set size of the current process.
func ProcessRSS(ctx context.Context) (uint64, error) {
	p, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return 0, fmt.Errorf("sysinfo: self process: %w", err)
	}
	info, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("sysinfo: memory info: %w", err)
	}
	return info.RSS, nil
}

// Sample reads process RSS and host memory together. Host figures are
// left at zero when they cannot be read; only an RSS failure is an error.
func Sample(ctx context.Context) (Memory, error) {
	rss, err := ProcessRSS(ctx)
	if err != nil {
		return Memory{}, err
	}
	m := Memory{RSS: rss}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		m.Total = vm.Total
		m.Available = vm.Available
	}
	return m, nil
}

// HumanBytes formats n with a binary unit, e.g. "12.3 MiB".
func HumanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
