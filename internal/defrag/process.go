package defrag

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"

	"github.com/runnerr0/browser-defrag/internal/logging"
)

// ProcessLister reports the names of running processes.
type ProcessLister interface {
	Names(ctx context.Context) ([]string, error)
}

// GopsutilLister reads the process table through gopsutil.
type GopsutilLister struct{}

// Names returns the name of every process that could be inspected.
// Processes that exit or deny access while being listed are skipped.
func (GopsutilLister) Names(ctx context.Context) ([]string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	names := make([]string, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			logging.L().Debug("skipping process", zap.Int32("pid", p.Pid), zap.Error(err))
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
