package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// ErrEnumeration is returned when the process table cannot be listed.
var ErrEnumeration = errors.New("process enumeration failed")

// Process is a raw record from the last refresh.
type Process struct {
	PID         int32
	Name        string
	CPUPercent  float64
	RSS         uint64
	VMS         uint64
	StartTime   time.Time
	RunTimeSecs uint64
}

// Provider abstracts the host process table.
//
// CPUPercent is only meaningful after the second RefreshAll, since it is
// measured against the previous refresh.
type Provider interface {
	RefreshAll(ctx context.Context) error
	Lookup(pid int32) (Process, bool)
	List() []Process
}

// ProviderFactory builds a fresh, unshared Provider.
type ProviderFactory func() Provider

// HostProvider reads the live process table through gopsutil.
type HostProvider struct {
	logger  *slog.Logger
	now     func() time.Time
	handles map[int32]*process.Process
	records map[int32]Process
	order   []int32
}

func NewHostProvider(logger *slog.Logger) *HostProvider {
	return &HostProvider{
		logger:  logger,
		now:     time.Now,
		handles: make(map[int32]*process.Process),
		records: make(map[int32]Process),
	}
}

// NewHostProviderFactory returns a factory handing out one HostProvider per call.
func NewHostProviderFactory(logger *slog.Logger) ProviderFactory {
	return func() Provider {
		return NewHostProvider(logger)
	}
}

// RefreshAll re-reads every process. Handles of processes seen before are
// reused so gopsutil can compute CPU usage against the previous call, unless
// the pid was recycled in between.
func (h *HostProvider) RefreshAll(ctx context.Context) error {
	pids, err := process.PidsWithContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEnumeration, err)
	}

	now := h.now()
	handles := make(map[int32]*process.Process, len(pids))
	records := make(map[int32]Process, len(pids))
	order := make([]int32, 0, len(pids))

	for _, pid := range pids {
		if err := ctx.Err(); err != nil {
			return err
		}

		fresh, err := process.NewProcessWithContext(ctx, pid)
		if err != nil {
			// exited between listing and opening
			continue
		}
		p := currentHandle(ctx, h.handles[pid], fresh)

		rec, err := readProcess(ctx, p, now)
		if err != nil {
			h.logger.Debug("skipping process", "pid", pid, "error", err)
			continue
		}

		handles[pid] = p
		records[pid] = rec
		order = append(order, pid)
	}

	h.handles = handles
	h.records = records
	h.order = order
	return nil
}

// currentHandle keeps the cached handle, and with it the CPU baseline, only
// while the pid still belongs to the same process. gopsutil caches name and
// create time per handle, so a reused pid needs the fresh one.
func currentHandle(ctx context.Context, cached, fresh *process.Process) *process.Process {
	if cached == nil {
		return fresh
	}
	was, err := cached.CreateTimeWithContext(ctx)
	if err != nil {
		return fresh
	}
	now, err := fresh.CreateTimeWithContext(ctx)
	if err != nil || now != was {
		return fresh
	}
	return cached
}

func (h *HostProvider) Lookup(pid int32) (Process, bool) {
	rec, ok := h.records[pid]
	return rec, ok
}

func (h *HostProvider) List() []Process {
	out := make([]Process, 0, len(h.order))
	for _, pid := range h.order {
		out = append(out, h.records[pid])
	}
	return out
}

func readProcess(ctx context.Context, p *process.Process, now time.Time) (Process, error) {
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return Process{}, err
	}

	// Percent(0) stores the sample and returns 0 on the first call
	cpu, err := p.PercentWithContext(ctx, 0)
	if err != nil {
		cpu = 0
	}

	var rss, vms uint64
	if mem, err := p.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		rss = mem.RSS
		vms = mem.VMS
	}

	rec := Process{
		PID:        p.Pid,
		Name:       name,
		CPUPercent: cpu,
		RSS:        rss,
		VMS:        vms,
	}

	if created, err := p.CreateTimeWithContext(ctx); err == nil {
		rec.StartTime = time.UnixMilli(created)
		rec.RunTimeSecs = runTimeSecs(rec.StartTime, now)
	}

	return rec, nil
}

// runTimeSecs returns whole seconds between start and now, never negative.
func runTimeSecs(start, now time.Time) uint64 {
	if start.IsZero() || now.Before(start) {
		return 0
	}
	return uint64(now.Sub(start) / time.Second)
}
