// Package ranging shares one rangefinder between callers and streams
// periodic samples to subscribers.
package ranging

import (
	"context"
	"io"
	"sync"
	"time"

	"robotcode-go/drivers/tof"
	"robotcode-go/drivers/vl53lx"
	"robotcode-go/errcode"
	"robotcode-go/x/timex"
)

// Sensor is the part of *tof.Sensor the service uses.
type Sensor interface {
	ReadDistanceContext(ctx context.Context) (int, error)
	ReadMeasurementContext(ctx context.Context, out *tof.RangingResult) error
	ShowMeasurementTo(ctx context.Context, w io.Writer) error
	Restart() error
}

type Config struct {
	// ReadTimeout bounds every sensor read. Default 2 s.
	ReadTimeout time.Duration
	// QueueLen is the per-subscriber buffer. Default 8.
	QueueLen int
}

// Sample is one streamed reading.
type Sample struct {
	TimeMs     int64                    `json:"ts_ms"`
	DistanceMM int                      `json:"distance_mm"`
	Objects    []vl53lx.TargetRangeData `json:"objects"`
	Error      string                   `json:"error,omitempty"`
}

// Service serialises access to a Sensor.
type Service struct {
	sensor Sensor
	cfg    Config

	mu sync.Mutex // sensor

	subMu  sync.Mutex
	subs   map[*Subscription]struct{}
	last   *Sample
	closed bool
}

func New(s Sensor, cfg Config) *Service {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 2 * time.Second
	}
	if cfg.QueueLen <= 0 {
		cfg.QueueLen = 8
	}
	return &Service{sensor: s, cfg: cfg, subs: make(map[*Subscription]struct{})}
}

// Distance returns the first object's range in mm, or tof.NoObject.
func (s *Service) Distance(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sensor.ReadDistanceContext(ctx)
}

// Measurement returns a full ranging result and re-arms the sensor.
func (s *Service) Measurement(ctx context.Context) (tof.RangingResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	var m tof.RangingResult
	if err := s.sensor.ReadMeasurementContext(ctx, &m); err != nil {
		return m, err
	}
	return m, s.sensor.Restart()
}

// Show runs the sensor's show-measurement cycle, writing the report line
// to w.
func (s *Service) Show(ctx context.Context, w io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sensor.ShowMeasurementTo(ctx, w)
}

// Run samples every interval until ctx is done, publishing each Sample to
// subscribers. Failed reads are published with Error set. All
// subscriptions are closed when Run returns.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return &errcode.E{C: errcode.InvalidParams, Op: "ranging.run", Msg: "interval must be positive"}
	}
	defer s.closeAll()
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			s.publish(s.sample(ctx))
		}
	}
}

func (s *Service) sample(ctx context.Context) Sample {
	m, err := s.Measurement(ctx)
	smp := Sample{TimeMs: timex.NowMs(), DistanceMM: tof.NoObject}
	if err != nil {
		smp.Error = err.Error()
		return smp
	}
	objs := m.Objects()
	smp.Objects = append(make([]vl53lx.TargetRangeData, 0, len(objs)), objs...)
	if len(objs) > 0 {
		smp.DistanceMM = int(objs[0].RangeMilliMeter)
	}
	return smp
}

// Latest returns the most recent published sample.
func (s *Service) Latest() (Sample, bool) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.last == nil {
		return Sample{}, false
	}
	return *s.last, true
}

// ---- subscriptions ----

// Subscription receives samples. A slow reader loses the oldest queued
// samples, never blocks the publisher.
type Subscription struct {
	ch   chan Sample
	svc  *Service
	once sync.Once
}

func (sub *Subscription) C() <-chan Sample { return sub.ch }

// Close unsubscribes and closes C. It is safe to call more than once.
func (sub *Subscription) Close() {
	sub.svc.subMu.Lock()
	defer sub.svc.subMu.Unlock()
	if _, ok := sub.svc.subs[sub]; ok {
		delete(sub.svc.subs, sub)
		sub.once.Do(func() { close(sub.ch) })
	}
}

// Subscribe registers a new subscriber. The latest sample, if any, is
// delivered first.
func (s *Service) Subscribe() *Subscription {
	sub := &Subscription{ch: make(chan Sample, s.cfg.QueueLen), svc: s}
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.closed {
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}
	s.subs[sub] = struct{}{}
	if s.last != nil {
		sub.ch <- *s.last
	}
	return sub
}

func (s *Service) publish(smp Sample) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.last = &smp
	for sub := range s.subs {
		select {
		case sub.ch <- smp:
		default:
			// drop oldest if queue full
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- smp:
			default:
			}
		}
	}
}

func (s *Service) closeAll() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for sub := range s.subs {
		delete(s.subs, sub)
		sub.once.Do(func() { close(sub.ch) })
	}
	s.closed = true
}
