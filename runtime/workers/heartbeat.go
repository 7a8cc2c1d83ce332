package workers

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/process"
)

type PresenceGauge interface {
	OnlineUsers() []string
}

// QueueGauge reads the delivery queue. len and cap of a channel never block.
type QueueGauge interface {
	Pending() int
	Capacity() int
}

// Snapshot is one sample of the process and of the realtime layer.
type Snapshot struct {
	At            time.Time
	OnlineUsers   int
	QueuePending  int
	QueueCapacity int
	RSSBytes      uint64
	CPUPercent    float64
	Goroutines    int
}

func (s Snapshot) Map() map[string]any {
	return map[string]any{
		"at":             s.At.Format(time.RFC3339),
		"online_users":   s.OnlineUsers,
		"queue_pending":  s.QueuePending,
		"queue_capacity": s.QueueCapacity,
		"rss_bytes":      s.RSSBytes,
		"cpu_percent":    s.CPUPercent,
		"goroutines":     s.Goroutines,
	}
}

// HeartbeatWorker samples the process every interval and warns when the
// delivery queue fills past lowCapacityPercent.
type HeartbeatWorker struct {
	log                *slog.Logger
	presence           PresenceGauge
	queue              QueueGauge
	interval           time.Duration
	lowCapacityPercent int

	mu     sync.RWMutex
	latest Snapshot
}

func NewHeartbeatWorker(log *slog.Logger, presence PresenceGauge, queue QueueGauge,
	interval time.Duration, lowCapacityPercent int) *HeartbeatWorker {
	return &HeartbeatWorker{
		log:                log,
		presence:           presence,
		queue:              queue,
		interval:           interval,
		lowCapacityPercent: lowCapacityPercent,
	}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping heartbeat")
			return nil
		case <-ticker.C:
			snapshot := w.sample(p)
			w.mu.Lock()
			w.latest = snapshot
			w.mu.Unlock()

			w.log.Debug("Heartbeat",
				"online", snapshot.OnlineUsers,
				"queue", snapshot.QueuePending,
				"rss", snapshot.RSSBytes,
				"cpu", snapshot.CPUPercent)
			if w.saturated(snapshot) {
				w.log.Warn("Delivery queue is filling up",
					"pending", snapshot.QueuePending,
					"capacity", snapshot.QueueCapacity)
			}
		}
	}
}

// Latest returns the last sample taken by Run, or a fresh one when Run has
// not ticked yet.
func (w *HeartbeatWorker) Latest() Snapshot {
	w.mu.RLock()
	latest := w.latest
	w.mu.RUnlock()
	if !latest.At.IsZero() {
		return latest
	}
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return w.sample(nil)
	}
	return w.sample(p)
}

func (w *HeartbeatWorker) saturated(s Snapshot) bool {
	if s.QueueCapacity == 0 || w.lowCapacityPercent <= 0 {
		return false
	}
	return s.QueuePending*100 >= s.QueueCapacity*w.lowCapacityPercent
}

// sample never fails: process metrics that cannot be read are left at zero.
func (w *HeartbeatWorker) sample(p *process.Process) Snapshot {
	s := Snapshot{
		At:            time.Now().UTC(),
		OnlineUsers:   len(w.presence.OnlineUsers()),
		QueuePending:  w.queue.Pending(),
		QueueCapacity: w.queue.Capacity(),
		Goroutines:    runtime.NumGoroutine(),
	}
	if p == nil {
		return s
	}
	if memInfo, err := p.MemoryInfo(); err == nil {
		s.RSSBytes = memInfo.RSS
	} else {
		w.log.Debug("Failed to read memory info", "error", err)
	}
	if cpu, err := p.CPUPercent(); err == nil {
		s.CPUPercent = cpu
	}
	return s
}
