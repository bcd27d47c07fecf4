package server

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mnohosten/keyra-db/pkg/kv"
	"github.com/mnohosten/keyra-db/pkg/metrics"
	"github.com/mnohosten/keyra-db/pkg/protocol"
)

// Server owns the shared store and serves the text command protocol over
// TCP, one goroutine per accepted connection. Each connection gets its own
// session handle at accept time; the handle (and any transaction it still
// holds) is released when the connection ends, so transactions never leak
// across clients.
type Server struct {
	config    *Config
	store     *kv.Store
	collector *metrics.Collector
	exporter  *metrics.PrometheusExporter
	startTime time.Time

	listener net.Listener
	admin    *adminServer

	mu       sync.Mutex
	started  bool
	closing  bool
	conns    map[net.Conn]struct{}
	connWG   sync.WaitGroup
	shutdown chan struct{}
}

// New creates a new server instance with an empty store.
func New(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	collector := metrics.NewCollector()

	s := &Server{
		config:    config,
		store:     kv.New(),
		collector: collector,
		exporter:  metrics.NewPrometheusExporter(collector),
		startTime: time.Now(),
		conns:     make(map[net.Conn]struct{}),
		shutdown:  make(chan struct{}),
	}

	if config.EnableAdmin {
		s.admin = newAdminServer(s)
	}

	return s
}

// Store returns the server's store instance.
func (s *Server) Store() *kv.Store {
	return s.store
}

// Collector returns the server's metrics collector.
func (s *Server) Collector() *metrics.Collector {
	return s.collector
}

// Start binds the TCP listener (and the HTTP admin listener when enabled)
// and begins accepting connections. It does not block; use WaitForShutdown
// to wait and Shutdown to stop.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("server already started")
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	if s.admin != nil {
		if err := s.admin.start(); err != nil {
			listener.Close()
			return fmt.Errorf("failed to start admin server: %w", err)
		}
	}

	go s.acceptLoop()

	s.started = true
	log.Info().Str("addr", listener.Addr().String()).Msg("server: listening")
	return nil
}

// Addr returns the command listener's address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// AdminAddr returns the admin listener's address, or nil when the admin
// surface is disabled or the server has not started.
func (s *Server) AdminAddr() net.Addr {
	if s.admin == nil {
		return nil
	}
	return s.admin.addr()
}

// WaitForShutdown blocks until Shutdown completes.
func (s *Server) WaitForShutdown() {
	<-s.shutdown
}

// Shutdown stops accepting connections, closes every open connection, and
// waits for the per-connection goroutines to finish.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	if !s.started || s.closing {
		s.mu.Unlock()
		return fmt.Errorf("server not running")
	}
	s.closing = true

	s.listener.Close()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.connWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.config.ShutdownTimeout):
		log.Warn().Msg("server: shutdown timed out waiting for connections")
	}

	var adminErr error
	if s.admin != nil {
		adminErr = s.admin.stop(s.config.ShutdownTimeout)
	}

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
	close(s.shutdown)

	log.Info().Msg("server: shutdown complete")
	return adminErr
}

// acceptLoop accepts connections until the listener closes.
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn().Err(err).Msg("server: accept failed")
			continue
		}

		s.mu.Lock()
		if s.closing {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.connWG.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection runs the per-connection serve loop: one command line in,
// one JSON envelope out, until the peer closes or the transport fails. A
// command failure never ends the loop.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.connWG.Done()

	remote := conn.RemoteAddr().String()
	s.collector.ConnectionOpened()
	session := s.store.OpenSession()
	log.Debug().Str("remote", remote).Str("session", string(session)).Msg("server: connection opened")

	defer func() {
		s.store.CloseSession(session)
		s.collector.ConnectionClosed()
		conn.Close()

		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()

		log.Debug().Str("remote", remote).Msg("server: connection closed")
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), s.config.MaxCommandSize)

	for scanner.Scan() {
		line := scanner.Text()

		response, ok := s.Execute(session, line)
		if !ok {
			// Blank input gets no envelope
			continue
		}

		data, err := response.Encode()
		if err != nil {
			log.Error().Err(err).Msg("server: failed to encode response")
			continue
		}
		if _, err := conn.Write(append(data, '\n')); err != nil {
			log.Warn().Str("remote", remote).Err(err).Msg("server: write failed")
			return
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Warn().Str("remote", remote).Err(err).Msg("server: read failed")
	}
}

// Execute runs one command line against the store on behalf of a session
// and returns the response envelope. The second return value is false when
// the line was blank and no response should be sent. Shared by the TCP and
// WebSocket transports.
func (s *Server) Execute(session kv.SessionID, line string) (protocol.Response, bool) {
	cmd, err := protocol.Parse(line)
	if err != nil {
		if errors.Is(err, protocol.ErrEmptyCommand) {
			return protocol.Response{}, false
		}
		s.collector.RecordCommandError()
		if errors.Is(err, protocol.ErrUnknownCommand) {
			return protocol.Error("Unknown command."), true
		}
		return protocol.Error(err.Error()), true
	}

	switch cmd.Type {
	case protocol.CommandPut:
		if err := s.store.Put(session, cmd.Key, cmd.Value); err != nil {
			return s.errorResponse(err, cmd.Key), true
		}
		s.collector.RecordPut()
		return protocol.Ok(), true

	case protocol.CommandGet:
		value, err := s.store.Get(session, cmd.Key)
		s.collector.RecordGet(errors.Is(err, kv.ErrKeyNotFound))
		if err != nil {
			return s.errorResponse(err, cmd.Key), true
		}
		return protocol.OkResult(value), true

	case protocol.CommandDel:
		if err := s.store.Delete(session, cmd.Key); err != nil {
			return s.errorResponse(err, cmd.Key), true
		}
		s.collector.RecordDelete()
		return protocol.Ok(), true

	case protocol.CommandStart:
		if err := s.store.Begin(session); err != nil {
			return s.errorResponse(err, ""), true
		}
		s.collector.RecordTxnStarted()
		return protocol.Ok(), true

	case protocol.CommandCommit:
		if err := s.store.Commit(session); err != nil {
			return s.errorResponse(err, ""), true
		}
		s.collector.RecordTxnCommitted()
		return protocol.Ok(), true

	case protocol.CommandRollback:
		if err := s.store.Rollback(session); err != nil {
			return s.errorResponse(err, ""), true
		}
		s.collector.RecordTxnRolledBack()
		return protocol.Ok(), true

	default:
		s.collector.RecordCommandError()
		return protocol.Error("Unknown command."), true
	}
}

// errorResponse maps a store error to its wire message.
func (s *Server) errorResponse(err error, key string) protocol.Response {
	s.collector.RecordCommandError()

	switch {
	case errors.Is(err, kv.ErrKeyNotFound):
		return protocol.Error(fmt.Sprintf("Key '%s' not found.", key))
	case errors.Is(err, kv.ErrTxnActive):
		return protocol.Error("Transaction already active.")
	case errors.Is(err, kv.ErrNoTxn):
		return protocol.Error("No active transaction.")
	default:
		return protocol.Error(err.Error())
	}
}
