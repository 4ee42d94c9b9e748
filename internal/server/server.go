// Package server accepts client connections and feeds their commands to
// the registry from a single event loop.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/encoding/unicode"

	"github.com/mcoot/wishlist/internal/model"
	"github.com/mcoot/wishlist/internal/registry"
)

var (
	// ErrBind is returned when the listening socket cannot be bound
	ErrBind = errors.New("bind failed")
	// ErrStopped is returned by Stats once the event loop has exited
	ErrStopped = errors.New("server stopped")
)

// Server multiplexes client connections onto one Registry.
//
// Every connection gets a goroutine that blocks on reads and writes and
// does the password hashing; the registry tables are only touched by the
// event loop in run.
type Server struct {
	cfg      Config
	registry *registry.Registry
	logger   *slog.Logger

	mu       sync.Mutex
	listener net.Listener

	events  chan event
	stopped chan struct{}
	wg      sync.WaitGroup
}

// New creates a new Server
func New(cfg Config, reg *registry.Registry, logger *slog.Logger) *Server {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	return &Server{
		cfg:      cfg,
		registry: reg,
		logger:   logger.With(slog.String("component", "server")),
		events:   make(chan event),
		stopped:  make(chan struct{}),
	}
}

// Listen binds the listening socket. Serve calls it if needed.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBind, addr, err)
	}
	s.listener = ln
	s.logger.Info("listening", slog.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or the configured one before Listen
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Serve accepts connections until ctx is cancelled, then closes every open
// connection and returns. It may only be called once per Server.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopDone := make(chan struct{})
	go func() {
		s.run(ctx)
		close(s.stopped)
		close(loopDone)
	}()

	go func() {
		<-ctx.Done()
		_ = s.listener.Close()
	}()

	s.acceptLoop(ctx)

	cancel()
	<-loopDone
	s.wg.Wait()

	s.logger.Info("server stopped")
	return nil
}

// acceptLoop runs until the listener is closed. Other accept errors only
// delay the next attempt.
func (s *Server) acceptLoop(ctx context.Context) {
	var backoff time.Duration
	for {
		nc, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			backoff = nextBackoff(backoff)
			s.logger.Warn("accept failed",
				slog.String("error", err.Error()),
				slog.Duration("backoff", backoff))
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		s.wg.Add(1)
		go s.handleConn(ctx, nc)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		d = time.Second
	}
	return d
}

// run owns the connection table and is the only caller of Registry.Execute
func (s *Server) run(ctx context.Context) {
	conns := make(map[model.ConnID]net.Conn)

	for {
		select {
		case ev := <-s.events:
			switch ev.kind {
			case eventOpen:
				conns[ev.conn] = ev.netConn
				s.logger.Debug("connection registered", slog.Int("total_connections", len(conns)))

			case eventCommand:
				ev.response <- s.registry.Execute(ctx, ev.cmd, ev.conn)

			case eventClose:
				delete(conns, ev.conn)
				s.registry.Drop(ev.conn)
				s.logger.Debug("connection deregistered", slog.Int("total_connections", len(conns)))

			case eventStats:
				stats, err := s.registry.Stats(ctx)
				stats.Connections = len(conns)
				ev.stats <- statsResult{stats: stats, err: err}
			}

		case <-ctx.Done():
			for _, nc := range conns {
				_ = nc.Close()
			}
			s.logger.Info("event loop stopped", slog.Int("closed_connections", len(conns)))
			return
		}
	}
}

// submit hands ev to the event loop; false means the server is stopping
func (s *Server) submit(ctx context.Context, ev event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	case <-s.stopped:
		return false
	}
}

func (s *Server) handleConn(ctx context.Context, nc net.Conn) {
	defer s.wg.Done()

	id := model.NewConnID()
	logger := s.logger.With(
		slog.String("conn", id.String()),
		slog.String("remote", nc.RemoteAddr().String()))
	connectedAt := time.Now()

	if !s.submit(ctx, event{kind: eventOpen, conn: id, netConn: nc}) {
		_ = nc.Close()
		return
	}
	logger.Info("client connected")

	defer func() {
		_ = nc.Close()
		s.submit(ctx, event{kind: eventClose, conn: id})
		logger.Info("client disconnected", slog.Duration("connection_duration", time.Since(connectedAt)))
	}()

	buf := make([]byte, s.cfg.BufferSize)
	for {
		n, err := nc.Read(buf)
		if n == 0 {
			if err != nil && !errors.Is(err, io.EOF) && ctx.Err() == nil {
				logger.Warn("read failed", slog.String("error", err.Error()))
			}
			return
		}

		resp := make(chan registry.Response, 1)
		cmd := s.registry.Prepare(ctx, decode(buf[:n]))
		if !s.submit(ctx, event{kind: eventCommand, conn: id, cmd: cmd, response: resp}) {
			return
		}
		r := <-resp

		if _, werr := io.WriteString(nc, r.String()); werr != nil {
			logger.Warn("write failed", slog.String("error", werr.Error()))
			return
		}
		if r.Disconnect || err != nil {
			return
		}
	}
}

// Stats returns registry counts and the number of open connections.
// It blocks until Serve is running.
func (s *Server) Stats(ctx context.Context) (model.Stats, error) {
	result := make(chan statsResult, 1)
	if !s.submit(ctx, event{kind: eventStats, stats: result}) {
		if ctx.Err() != nil {
			return model.Stats{}, ctx.Err()
		}
		return model.Stats{}, ErrStopped
	}
	select {
	case r := <-result:
		return r.stats, r.err
	case <-ctx.Done():
		return model.Stats{}, ctx.Err()
	}
}

// decode reads b as UTF-8, replacing invalid sequences with U+FFFD
func decode(b []byte) string {
	out, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "\uFFFD")
	}
	return string(out)
}
