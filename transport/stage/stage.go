// Package stage implements the per-(host, shard) connection lifecycle: it
// supervises one Sender, one Receiver, and a pool of Reporters over a single
// CQL connection, reconnecting on disconnect at a rate bounded by a
// token-bucket limiter (one attempt per second by default, no jitter).
package stage

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cqlshard/driver/cql/frame"
	"github.com/cqlshard/driver/driver/prepcache"
	"github.com/cqlshard/driver/driver/werror"
	"github.com/cqlshard/driver/internal/log"
	"github.com/cqlshard/driver/transport/conn"
	"github.com/cqlshard/driver/transport/receiver"
	"github.com/cqlshard/driver/transport/reporter"
	"github.com/cqlshard/driver/transport/sender"
)

// State is the stage's connection lifecycle state.
type State int

const (
	StateInitializing State = iota
	StateMaintenance
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateMaintenance:
		return "maintenance"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Config parameterizes one Stage.
type Config struct {
	Host          string
	Shard         int
	ShardCount    int
	CommonPort    int
	ShardPort     int
	AppendsNum    int // stream ids per reporter
	ReporterCount int
	Compression   string
	Authenticator conn.Authenticator
	DialTimeout   time.Duration

	// ReconnectRate bounds reconnect attempts per second; defaults to 1/sec
	// with a burst of 1 when zero.
	ReconnectRate rate.Limit

	// Metrics, if set, receives stage-state and per-reporter free-stream
	// gauge updates. Nil is a valid no-op.
	Metrics MetricsSink

	// Logger, if set, receives connect/disconnect/reconnect events with
	// host/shard fields attached. Nil is a valid no-op.
	Logger *log.Logger
}

// MetricsSink is the subset of metrics.Registry this package reports to,
// kept as a small local interface so transport/stage doesn't import the
// metrics package directly.
type MetricsSink interface {
	SetStageState(host, shard string, state int)
	SetFreeStreams(host, shard, reporter string, n int)
}

// reporterObserver adapts a MetricsSink to reporter.Observer for one
// reporter slot of one stage.
type reporterObserver struct {
	sink        MetricsSink
	host, shard string
	reporterID  string
}

func (o reporterObserver) SetFreeStreams(n int) {
	o.sink.SetFreeStreams(o.host, o.shard, o.reporterID, n)
}

// Stage supervises sender+receiver+reporters for one (host, shard).
type Stage struct {
	cfg     Config
	prep    *prepcache.Cache
	payload *reporter.Payload

	mu        sync.Mutex
	state     State
	session   int
	reporters []*reporter.Reporter

	disconnect chan error
}

// New validates the stream-id block layout and builds a Stage. Returns
// werror.ErrStreamSpaceExhausted if AppendsNum*ReporterCount would overflow
// the int16 stream id space the protocol allows.
func New(cfg Config, prep *prepcache.Cache) (*Stage, error) {
	total := cfg.AppendsNum * cfg.ReporterCount
	if total <= 0 || total > math.MaxInt16 {
		return nil, werror.ErrStreamSpaceExhausted
	}
	return &Stage{
		cfg:        cfg,
		prep:       prep,
		payload:    reporter.NewPayload(total),
		state:      StateInitializing,
		disconnect: make(chan error, 1),
	}, nil
}

// State returns the stage's current lifecycle state.
func (s *Stage) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ReporterCount returns the number of reporters this stage's connection is
// split across, so a caller picking a reporter index (e.g. the request
// router) knows the valid range.
func (s *Stage) ReporterCount() int {
	return s.cfg.ReporterCount
}

// Reporter returns the reporter owning stream ids for id, or nil before the
// first successful connect.
func (s *Stage) Reporter(id int) *reporter.Reporter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 0 || id >= len(s.reporters) {
		return nil
	}
	return s.reporters[id]
}

// SetRunningForTest force-sets the stage into StateRunning with reporters
// attached, bypassing the connection handshake Run would normally perform.
// Exposed for callers (e.g. the request router's tests) that need a
// dispatchable Stage without a live server.
func (s *Stage) SetRunningForTest(reporters []*reporter.Reporter) {
	s.mu.Lock()
	s.state = StateRunning
	s.reporters = reporters
	s.mu.Unlock()
}

// Run drives the stage's reconnect loop until ctx is canceled.
func (s *Stage) Run(ctx context.Context) {
	limit := s.cfg.ReconnectRate
	if limit == 0 {
		limit = rate.Limit(1)
	}
	limiter := rate.NewLimiter(limit, 1)

	s.setState(StateMaintenance)
	for {
		if ctx.Err() != nil {
			s.setState(StateStopping)
			s.shutdownReporters()
			return
		}
		if err := limiter.Wait(ctx); err != nil {
			s.setState(StateStopping)
			s.shutdownReporters()
			return
		}

		stageCtx, cancel := context.WithCancel(ctx)
		if err := s.connectAndRun(stageCtx); err != nil {
			cancel()
			s.logf().Warn("stage: connect failed, retrying", zap.Error(err))
			s.setState(StateMaintenance)
			continue
		}

		s.setState(StateRunning)
		select {
		case <-ctx.Done():
			cancel()
			s.setState(StateStopping)
			s.shutdownReporters()
			return
		case err := <-s.disconnect:
			cancel()
			s.logf().Warn("stage: disconnected, reconnecting", zap.Error(err))
			s.shutdownReporters()
			s.setState(StateMaintenance)
		}
	}
}

// connectAndRun opens the connection and spawns sender/receiver/reporters,
// wiring the reporter/sender cycle via Reporter.AnnounceSender.
func (s *Stage) connectAndRun(ctx context.Context) error {
	c, err := conn.Open(ctx, conn.Options{
		Host:          s.cfg.Host,
		CommonPort:    s.cfg.CommonPort,
		ShardPort:     s.cfg.ShardPort,
		ShardCount:    s.cfg.ShardCount,
		TargetShard:   s.cfg.Shard,
		Compression:   s.cfg.Compression,
		Authenticator: s.cfg.Authenticator,
		DialTimeout:   s.cfg.DialTimeout,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.session++
	session := s.session
	reporters := make([]*reporter.Reporter, s.cfg.ReporterCount)
	reporterHandles := make([]sender.ReporterHandle, s.cfg.ReporterCount)
	receiverHandles := make([]receiver.ReporterHandle, s.cfg.ReporterCount)
	for i := 0; i < s.cfg.ReporterCount; i++ {
		base := frame.StreamID(i * s.cfg.AppendsNum)
		rcfg := reporter.Config{Base: base, Count: s.cfg.AppendsNum}
		if s.cfg.Metrics != nil {
			rcfg.Obs = reporterObserver{
				sink:       s.cfg.Metrics,
				host:       s.cfg.Host,
				shard:      strconv.Itoa(s.cfg.Shard),
				reporterID: strconv.Itoa(i),
			}
		}
		r := reporter.New(i, rcfg, s.payload, s.prep)
		reporters[i] = r
		reporterHandles[i] = r
		receiverHandles[i] = r
	}
	s.reporters = reporters
	s.mu.Unlock()

	snd := sender.New(c.TCP, s.payload, s.cfg.AppendsNum, reporterHandles)
	rcv := receiver.New(c.TCP, c.Compression, s.cfg.AppendsNum, receiverHandles, s.payload, func(err error) {
		s.reportDisconnect(session, err)
	})

	for _, r := range reporters {
		r.AnnounceSender(snd.Inbox())
		go r.Run(ctx)
	}
	go snd.Run(ctx)
	go rcv.Run(ctx)

	return nil
}

// reportDisconnect drops a disconnect notification from a stale session
// (one superseded by a later reconnect) on the floor, so the stage doesn't
// churn through a reconnect triggered by a connection it already replaced.
func (s *Stage) reportDisconnect(session int, err error) {
	s.mu.Lock()
	current := s.session
	s.mu.Unlock()
	if session != current {
		return
	}
	select {
	case s.disconnect <- err:
	default:
	}
}

func (s *Stage) shutdownReporters() {
	s.mu.Lock()
	reporters := s.reporters
	s.mu.Unlock()
	for _, r := range reporters {
		r.Shutdown()
	}
}

func (s *Stage) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.SetStageState(s.cfg.Host, strconv.Itoa(s.cfg.Shard), int(st))
	}
}

// logf returns a no-op logger when none is configured, so call sites never
// need a nil check.
func (s *Stage) logf() *log.Logger {
	if s.cfg.Logger == nil {
		return log.Nop()
	}
	return s.cfg.Logger.WithHost(s.cfg.Host).WithShard(s.cfg.Shard)
}
