// Package server accepts protocol connections over TCP.
//
// Protocol: each connection carries one newline-terminated request line. The
// server writes the response, ending with a sentinel line, and closes the
// connection.
//
// Example session:
//
//	$ printf -- '-> 1 cat\n' | nc localhost 4000
//	the cat sat
//	o gato sentou
//	** DONE **
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/metrics"
)

// LineHandler answers one request line.
type LineHandler interface {
	Handle(ctx context.Context, line string, w io.Writer) error
}

type Server struct {
	cfg      config.ServerConfig
	handler  LineHandler
	metrics  *metrics.Metrics
	listener net.Listener
	slots    chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *slog.Logger
	mu       sync.Mutex
	wg       sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a server. At most cfg.MaxConcurrentConns connections are
// served at once; the rest wait in the listen backlog. m may be nil.
func New(cfg config.ServerConfig, h LineHandler, m *metrics.Metrics) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:     cfg,
		handler: h,
		metrics: m,
		slots:   make(chan struct{}, max(1, cfg.MaxConcurrentConns)),
		ctx:     ctx,
		cancel:  cancel,
		logger:  slog.Default().With("component", "protocol-server"),
		done:    make(chan struct{}),
	}
}

// ListenAndServe listens on addr and serves until Stop is called.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln. It blocks until Stop is called.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.logger.Info("protocol server listening", "addr", ln.Addr().String(), "max_conns", cap(s.slots))

	for {
		select {
		case s.slots <- struct{}{}:
		case <-s.done:
			return nil
		}
		conn, err := ln.Accept()
		if err != nil {
			<-s.slots
			select {
			case <-s.done:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error("accept error", "error", err)
			continue
		}
		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() { <-s.slots }()
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.ConnectionsTotal.Inc()
		s.metrics.ConnectionsActive.Inc()
		defer s.metrics.ConnectionsActive.Dec()
	}

	requestID := uuid.NewString()
	ctx := logger.WithRequestID(s.ctx, requestID)
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ConnTimeout)
	defer cancel()
	if err := conn.SetDeadline(time.Now().Add(s.cfg.ConnTimeout)); err != nil {
		s.logger.Warn("setting connection deadline", "error", err)
	}
	log := logger.FromContext(ctx)

	line, err := readLine(conn, s.cfg.MaxRequestBytes)
	if err != nil {
		log.Debug("reading request", "remote", conn.RemoteAddr().String(), "error", err)
		if errors.Is(err, apperrors.ErrSyntax) {
			io.WriteString(conn, apperrors.SyntaxErrorMarker+"\n")
		}
		return
	}
	if err := s.handler.Handle(ctx, line, conn); err != nil {
		log.Debug("writing response", "remote", conn.RemoteAddr().String(), "error", err)
	}
}

// readLine reads one request line of at most limit bytes. A connection
// closed without a newline still yields what was sent.
func readLine(r io.Reader, limit int) (string, error) {
	br := bufio.NewReader(io.LimitReader(r, int64(limit)+1))
	line, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if line == "" && errors.Is(err, io.EOF) {
		return "", io.EOF
	}
	line = strings.TrimRight(line, "\r\n")
	if len(line) > limit {
		return "", apperrors.Newf(apperrors.ErrSyntax, "request longer than %d bytes", limit)
	}
	return line, nil
}

// Addr returns the listening address once Serve has started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and waits for in-flight connections until ctx
// expires, then cancels their queries and waits for them to return.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Unlock()
	})

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	var err error
	select {
	case <-finished:
	case <-ctx.Done():
		err = fmt.Errorf("waiting for connections: %w", ctx.Err())
		s.cancel()
		<-finished
	}
	s.cancel()
	s.logger.Info("protocol server stopped")
	return err
}
