package guard

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/huber0203/shioaji-gateway/internal/broker"
)

var (
	// ErrTrafficLimit means the daily API traffic quota is nearly exhausted.
	ErrTrafficLimit = errors.New("approaching traffic limit")
	// ErrMemoryLimit means the process resident memory is above the ceiling.
	ErrMemoryLimit = errors.New("high memory usage")
)

const (
	DefaultTrafficRatio = 0.8
	DefaultMemoryLimit  = 12 << 30 // bytes
)

// Guard gates bulk operations on two external signals: the brokerage traffic
// quota and the process resident memory. Both gates run on every bulk
// request, warm cache included.
type Guard struct {
	trafficRatio float64
	memoryLimit  uint64
	residentMem  func() (uint64, error)
}

// Option configures a Guard.
type Option func(*Guard)

func New(trafficRatio float64, memoryLimit uint64, opts ...Option) *Guard {
	if trafficRatio <= 0 {
		trafficRatio = DefaultTrafficRatio
	}
	if memoryLimit == 0 {
		memoryLimit = DefaultMemoryLimit
	}
	g := &Guard{
		trafficRatio: trafficRatio,
		memoryLimit:  memoryLimit,
		residentMem:  processRSS,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// WithMemoryReader overrides the resident-memory source.
func WithMemoryReader(fn func() (uint64, error)) Option {
	return func(g *Guard) {
		g.residentMem = fn
	}
}

// CheckTraffic rejects when usage exceeds the configured share of the daily
// limit.
func (g *Guard) CheckTraffic(u broker.Usage) error {
	log.Printf("guard: usage %d / %d bytes", u.Bytes, u.LimitBytes)
	if u.LimitBytes > 0 && float64(u.Bytes) > g.trafficRatio*float64(u.LimitBytes) {
		return ErrTrafficLimit
	}
	return nil
}

// CheckMemory rejects when the process resident memory exceeds the ceiling.
// A failed memory read is not a rejection; the gate only acts on a positive
// signal.
func (g *Guard) CheckMemory() error {
	rss, err := g.residentMem()
	if err != nil {
		log.Printf("guard: memory read failed: %v", err)
		return nil
	}
	log.Printf("guard: memory usage %.2f MB", float64(rss)/(1<<20))
	if rss > g.memoryLimit {
		return ErrMemoryLimit
	}
	return nil
}

func processRSS() (uint64, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, fmt.Errorf("open process: %w", err)
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		return 0, fmt.Errorf("read memory info: %w", err)
	}
	return mem.RSS, nil
}
