package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mnohosten/keyra-db/pkg/compression"
)

// adminServer is the HTTP surface next to the TCP protocol: health, stats,
// Prometheus metrics, a compressed export of the committed store, and a
// WebSocket channel speaking the same command grammar.
type adminServer struct {
	server  *Server
	httpSrv *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// WebSocket upgrader with default settings
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins (can be restricted in production)
		return true
	},
}

func newAdminServer(s *Server) *adminServer {
	a := &adminServer{server: s}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Get("/_health", a.handleHealth)
	router.Get("/_stats", a.handleStats)
	router.Get("/_metrics", a.handleMetrics)
	router.Get("/_export", a.handleExport)
	router.Get("/_ws", a.handleWebSocket)

	a.httpSrv = &http.Server{
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return a
}

func (a *adminServer) start() error {
	addr := fmt.Sprintf("%s:%d", a.server.config.Host, a.server.config.AdminPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.listener = listener
	a.mu.Unlock()

	go func() {
		if err := a.httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("admin: serve failed")
		}
	}()

	log.Info().Str("addr", listener.Addr().String()).Msg("admin: listening")
	return nil
}

func (a *adminServer) stop(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return a.httpSrv.Shutdown(ctx)
}

func (a *adminServer) addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.listener != nil {
		return a.listener.Addr()
	}
	return nil
}

// handleHealth reports liveness and uptime.
func (a *adminServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": time.Since(a.server.startTime).Seconds(),
	})
}

// handleStats reports operation counters and store size.
func (a *adminServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := a.server.collector.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"counters":            stats,
		"store_keys":          a.server.store.Len(),
		"active_transactions": a.server.store.ActiveTransactions(),
	})
}

// handleMetrics serves Prometheus text format.
func (a *adminServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	if err := a.server.exporter.WriteMetrics(w); err != nil {
		http.Error(w, fmt.Sprintf("Error writing metrics: %v", err), http.StatusInternalServerError)
	}
}

// handleExport streams a JSON dump of the committed store. The overlay's
// uncommitted writes are never included. ?compression=snappy|zstd|gzip
// compresses the payload.
func (a *adminServer) handleExport(w http.ResponseWriter, r *http.Request) {
	algorithm, err := compression.ParseAlgorithm(r.URL.Query().Get("compression"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snapshot := a.server.store.Snapshot()
	payload, err := json.Marshal(snapshot)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to encode export: %v", err))
		return
	}

	compressor, err := compression.NewCompressor(algorithm)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer compressor.Close()

	compressed, err := compressor.Compress(payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to compress export: %v", err))
		return
	}

	if algorithm == compression.AlgorithmNone {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("X-Compression", algorithm.String())
		if enc := compressor.ContentEncoding(); enc != "" {
			w.Header().Set("Content-Encoding", enc)
		}
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(compressed); err != nil {
		log.Warn().Err(err).Msg("admin: export write failed")
	}
}

// handleWebSocket upgrades the connection and speaks the text command
// grammar over it: one text message in, one envelope out. The WebSocket
// connection gets its own session, released when it closes.
func (a *adminServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("admin: websocket upgrade failed")
		return
	}
	defer conn.Close()

	a.server.collector.ConnectionOpened()
	session := a.server.store.OpenSession()
	defer func() {
		a.server.store.CloseSession(session)
		a.server.collector.ConnectionClosed()
	}()

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		response, ok := a.server.Execute(session, string(message))
		if !ok {
			continue
		}
		data, err := response.Encode()
		if err != nil {
			log.Error().Err(err).Msg("admin: failed to encode websocket response")
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("admin: failed to encode response")
	}
}

// writeError writes an error response
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]interface{}{
		"ok":      false,
		"message": message,
		"code":    statusCode,
	})
}
