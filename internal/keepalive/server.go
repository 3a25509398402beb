// Package keepalive serves the liveness endpoint some hosting platforms poll
// to decide whether the process is up. It shares nothing with the bot.
package keepalive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/net/netutil"

	"github.com/m3rciful/notesbot/core/logger"
)

// RunningText is the body returned by GET /.
const RunningText = "Bot is running"

const (
	readHeaderTimeout = 5 * time.Second
	// maxConns caps concurrent connections; requests beyond it wait in accept.
	maxConns = 16
)

// Server is the keep-alive HTTP responder.
type Server struct {
	addr string
	srv  *http.Server

	mu   sync.Mutex
	ln   net.Listener
	done chan struct{}
}

// New returns a server for listen:port. An empty listen binds all interfaces.
func New(listen string, port int) *Server {
	addr := net.JoinHostPort(listen, strconv.Itoa(port))
	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           Handler(),
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}
}

// Handler answers GET / with RunningText and GET /healthz with "ok".
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(RunningText))
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return errors.New("keepalive: already started")
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		logger.LogEvent(ctx, logger.KA, slog.LevelError, "keepalive.start",
			slog.String("status", "fail"),
			slog.String("listen", s.addr),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("keepalive: listen %s: %w", s.addr, err)
	}
	s.ln = netutil.LimitListener(ln, maxConns)
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.LogEvent(context.Background(), logger.KA, slog.LevelError, "keepalive.serve",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}(s.done)

	logger.LogEvent(ctx, logger.KA, slog.LevelInfo, "keepalive.start",
		slog.String("status", "ok"),
		slog.String("listen", ln.Addr().String()),
	)
	return nil
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done. Calling it on a server that never started is a no-op.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	started := s.ln != nil
	s.mu.Unlock()
	if !started {
		return nil
	}
	err := s.srv.Shutdown(ctx)
	select {
	case <-done:
	case <-ctx.Done():
	}
	logger.LogEvent(ctx, logger.KA, slog.LevelInfo, "keepalive.stop",
		slog.String("status", statusOf(err)),
	)
	if err != nil {
		return fmt.Errorf("keepalive: shutdown: %w", err)
	}
	return nil
}

func statusOf(err error) string {
	if err != nil {
		return "fail"
	}
	return "ok"
}
