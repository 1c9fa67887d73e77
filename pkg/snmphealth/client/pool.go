package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"
)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("session pool closed")

// ─────────────────────────────────────────────────────────────────────────────
// Configuration
// ─────────────────────────────────────────────────────────────────────────────

// PoolOptions configures the session pool.
type PoolOptions struct {
	// MaxIdlePerTarget caps the sessions parked per target (default 2).
	MaxIdlePerTarget int

	// MaxInFlightPerTarget caps the leases outstanding against one target
	// (default 4). Further Acquire calls wait for a lease to end.
	MaxInFlightPerTarget int

	// IdleTimeout drops parked sessions older than this. Zero keeps them.
	IdleTimeout time.Duration

	// Dial opens a new session. Defaults to NewSession.
	Dial func(Target) (*gosnmp.GoSNMP, error)
}

func (o *PoolOptions) defaults() {
	if o.MaxIdlePerTarget <= 0 {
		o.MaxIdlePerTarget = 2
	}
	if o.MaxInFlightPerTarget <= 0 {
		o.MaxInFlightPerTarget = 4
	}
	if o.Dial == nil {
		o.Dial = NewSession
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Lease
// ─────────────────────────────────────────────────────────────────────────────

// Lease is exclusive use of one session against one target. It holds one of
// the target's in-flight slots until Release or Discard is called; calling
// either more than once is a no-op.
type Lease struct {
	Session *gosnmp.GoSNMP

	slot *slot
	once sync.Once
}

// Release parks the session for reuse and frees the slot.
func (l *Lease) Release() {
	l.once.Do(func() { l.slot.park(l.Session) })
}

// Discard closes the session and frees the slot.
func (l *Lease) Discard() {
	l.once.Do(func() { l.slot.drop(l.Session) })
}

// ─────────────────────────────────────────────────────────────────────────────
// Session pool
// ─────────────────────────────────────────────────────────────────────────────

type parked struct {
	conn  *gosnmp.GoSNMP
	since time.Time
}

// slot is the per-target state: a semaphore bounding leases and a LIFO of
// parked sessions.
type slot struct {
	pool  *SessionPool
	sem   chan struct{}
	mu    sync.Mutex
	stack []parked
}

// SessionPool hands out leases on gosnmp sessions keyed by Target.Key.
type SessionPool struct {
	opts   PoolOptions
	logger *slog.Logger

	mu    sync.Mutex
	slots map[string]*slot

	closeOnce sync.Once
	closed    chan struct{}
}

// NewSessionPool creates a ready-to-use pool.
func NewSessionPool(opts PoolOptions, logger *slog.Logger) *SessionPool {
	opts.defaults()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &SessionPool{
		opts:   opts,
		logger: logger,
		slots:  make(map[string]*slot),
		closed: make(chan struct{}),
	}
}

// Acquire waits for a free slot on t, bounded by ctx, and returns a lease on
// a parked or freshly dialled session.
func (p *SessionPool) Acquire(ctx context.Context, t Target) (*Lease, error) {
	if p.isClosed() {
		return nil, ErrPoolClosed
	}
	s := p.slotFor(t.Key())

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.closed:
		return nil, ErrPoolClosed
	}

	if conn := s.pop(p.opts.IdleTimeout); conn != nil {
		return &Lease{Session: conn, slot: s}, nil
	}
	conn, err := p.opts.Dial(t)
	if err != nil {
		<-s.sem
		return nil, err
	}
	p.logger.Debug("client: dialled session", "target", t.String())
	return &Lease{Session: conn, slot: s}, nil
}

// Close closes every parked session. Later Acquire calls fail with
// ErrPoolClosed and sessions released afterwards are closed, not parked.
func (p *SessionPool) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.slots {
		s.mu.Lock()
		for _, e := range s.stack {
			closeSession(e.conn)
		}
		s.stack = nil
		s.mu.Unlock()
	}
	return nil
}

// Idle reports how many sessions are parked for t.
func (p *SessionPool) Idle(t Target) int {
	p.mu.Lock()
	s := p.slots[t.Key()]
	p.mu.Unlock()
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stack)
}

func (p *SessionPool) isClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

func (p *SessionPool) slotFor(key string) *slot {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.slots[key]
	if !ok {
		s = &slot{
			pool:  p,
			sem:   make(chan struct{}, p.opts.MaxInFlightPerTarget),
			stack: make([]parked, 0, p.opts.MaxIdlePerTarget),
		}
		p.slots[key] = s
	}
	return s
}

// ─────────────────────────────────────────────────────────────────────────────
// slot
// ─────────────────────────────────────────────────────────────────────────────

func (s *slot) pop(maxAge time.Duration) *gosnmp.GoSNMP {
	s.mu.Lock()
	defer s.mu.Unlock()
	for n := len(s.stack); n > 0; n = len(s.stack) {
		e := s.stack[n-1]
		s.stack = s.stack[:n-1]
		if maxAge > 0 && time.Since(e.since) > maxAge {
			closeSession(e.conn)
			continue
		}
		return e.conn
	}
	return nil
}

func (s *slot) park(conn *gosnmp.GoSNMP) {
	s.mu.Lock()
	if s.pool.isClosed() || len(s.stack) >= s.pool.opts.MaxIdlePerTarget {
		closeSession(conn)
	} else {
		s.stack = append(s.stack, parked{conn: conn, since: time.Now()})
	}
	s.mu.Unlock()
	<-s.sem
}

func (s *slot) drop(conn *gosnmp.GoSNMP) {
	closeSession(conn)
	<-s.sem
}

func closeSession(conn *gosnmp.GoSNMP) {
	if conn != nil && conn.Conn != nil {
		_ = conn.Conn.Close()
	}
}

// noopWriter discards log output.
type noopWriter struct{}

func (noopWriter) Write(b []byte) (int, error) { return len(b), nil }
