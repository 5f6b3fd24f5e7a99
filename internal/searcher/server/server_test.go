package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/logger"
)

type echoHandler struct {
	mu    sync.Mutex
	ids   []string
	delay time.Duration
}

func (h *echoHandler) Handle(ctx context.Context, line string, w io.Writer) error {
	h.mu.Lock()
	h.ids = append(h.ids, logger.RequestID(ctx))
	h.mu.Unlock()
	if h.delay > 0 {
		select {
		case <-time.After(h.delay):
		case <-ctx.Done():
			_, err := fmt.Fprintf(w, "%s\n", apperrors.SyntaxErrorMarker)
			return err
		}
	}
	_, err := fmt.Fprintf(w, "echo %s\n%s\n", line, apperrors.DoneMarker)
	return err
}

func testConfig() config.ServerConfig {
	cfg := config.Default().Server
	cfg.ConnTimeout = 2 * time.Second
	cfg.MaxRequestBytes = 64
	return cfg
}

func start(t *testing.T, cfg config.ServerConfig, h LineHandler) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := New(cfg, h, nil)
	served := make(chan error, 1)
	go func() { served <- s.Serve(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, s.Stop(ctx))
		require.NoError(t, <-served)
	})
	require.Eventually(t, func() bool { return s.Addr() != nil }, time.Second, 5*time.Millisecond)
	return s
}

func roundTrip(t *testing.T, addr net.Addr, request string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()
	_, err = io.WriteString(conn, request)
	require.NoError(t, err)
	out, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(out)
}

func TestOneRequestPerConnection(t *testing.T) {
	h := &echoHandler{}
	s := start(t, testConfig(), h)

	assert.Equal(t, "echo LIST\n** DONE **\n", roundTrip(t, s.Addr(), "LIST\r\n"))
	assert.Equal(t, "echo -> 1 cat\n** DONE **\n", roundTrip(t, s.Addr(), "-> 1 cat\n"))

	h.mu.Lock()
	defer h.mu.Unlock()
	require.Len(t, h.ids, 2)
	assert.NotEmpty(t, h.ids[0])
	assert.NotEqual(t, h.ids[0], h.ids[1])
}

func TestRequestWithoutNewline(t *testing.T) {
	s := start(t, testConfig(), &echoHandler{})
	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	_, err = io.WriteString(conn, "LIST")
	require.NoError(t, err)
	require.NoError(t, conn.(*net.TCPConn).CloseWrite())
	out, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, "echo LIST\n** DONE **\n", string(out))
}

func TestOverlongRequest(t *testing.T) {
	s := start(t, testConfig(), &echoHandler{})
	out := roundTrip(t, s.Addr(), strings.Repeat("x", 65))
	assert.Equal(t, apperrors.SyntaxErrorMarker+"\n", out)
}

func TestConnTimeoutCancelsRequest(t *testing.T) {
	cfg := testConfig()
	cfg.ConnTimeout = 100 * time.Millisecond
	s := start(t, cfg, &echoHandler{delay: 5 * time.Second})

	begin := time.Now()
	out := roundTrip(t, s.Addr(), "-> 1 cat\n")
	assert.Less(t, time.Since(begin), 3*time.Second)
	// The socket deadline may already have passed when the handler writes.
	if out != "" {
		assert.Equal(t, apperrors.SyntaxErrorMarker+"\n", out)
	}
}

type countingHandler struct {
	active, peak atomic.Int32
}

func (h *countingHandler) Handle(_ context.Context, _ string, w io.Writer) error {
	n := h.active.Add(1)
	defer h.active.Add(-1)
	for {
		p := h.peak.Load()
		if n <= p || h.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	_, err := io.WriteString(w, apperrors.DoneMarker+"\n")
	return err
}

func TestConnectionsServedOneAtATime(t *testing.T) {
	h := &countingHandler{}
	s := start(t, testConfig(), h)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			roundTrip(t, s.Addr(), "LIST\n")
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), h.peak.Load())
}

func TestStopWithoutConnections(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := New(testConfig(), &echoHandler{}, nil)
	served := make(chan error, 1)
	go func() { served <- s.Serve(ln) }()
	require.Eventually(t, func() bool { return s.Addr() != nil }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop(context.Background()))
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Stop")
	}
}
