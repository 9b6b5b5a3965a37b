// Package proxyobs is the forward proxy the monitored browser points at.
//
// CONNECT tunnels are passed through untouched; the proxy only notes which
// host the tunnel was opened to. Plain HTTP requests are forwarded upstream
// and their URLs and responses are checked against the login heuristics.
// Nothing is decrypted and no request is ever blocked on detection work.
package proxyobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dalemusser/stratawatch/internal/app/system/detector"
	"github.com/dalemusser/stratawatch/internal/app/system/metrics"
	"github.com/dalemusser/stratawatch/internal/app/system/tracker"
	"github.com/dalemusser/stratawatch/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	dialTimeout = 10 * time.Second
)

// hop-by-hop headers are stripped before forwarding (RFC 7230 §6.1).
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Server is the observing forward proxy.
type Server struct {
	addr      string
	det       *detector.Detector
	trk       *tracker.Tracker
	logger    *zap.Logger
	transport http.RoundTripper

	mu  sync.Mutex
	srv *http.Server
}

// New creates a proxy Server listening on addr once Run is called.
func New(addr string, det *detector.Detector, trk *tracker.Tracker, logger *zap.Logger) *Server {
	return &Server{
		addr:   addr,
		det:    det,
		trk:    trk,
		logger: logger,
		transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   dialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: time.Second,
		},
	}
}

// Run serves the proxy until ctx is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s,
		// No ReadTimeout/WriteTimeout: CONNECT tunnels are long-lived.
	}
	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("proxy listening", zap.String("addr", s.addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops the listener; safe to call when Run was never started.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodConnect {
		s.handleConnect(w, r)
		return
	}
	s.handleForward(w, r)
}

// sessionKey identifies the observing side of a correlation: the client's
// ip:port as seen by the proxy.
func sessionKey(r *http.Request) string {
	return r.RemoteAddr
}

// handleConnect notes identity-provider tunnels, then blindly relays bytes.
// Each tunnel gets an id so its open and close log lines can be paired.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	key := sessionKey(r)
	tunnelID := uuid.NewString()

	if s.det.IsLoginHost(r.Host) {
		s.trk.ConnectObserved(key, r.Host, now)
	}

	upstream, err := net.DialTimeout("tcp", hostPort(r.Host), dialTimeout)
	if err != nil {
		s.logger.Debug("CONNECT dial failed",
			zap.String("tunnel_id", tunnelID),
			zap.String("host", r.Host),
			zap.Error(err),
		)
		http.Error(w, "upstream unreachable", http.StatusBadGateway)
		return
	}

	hj, ok := w.(http.Hijacker)
	if !ok {
		upstream.Close()
		http.Error(w, "hijacking unsupported", http.StatusInternalServerError)
		return
	}
	client, _, err := hj.Hijack()
	if err != nil {
		upstream.Close()
		s.logger.Warn("hijack failed", zap.Error(err))
		return
	}

	if _, err := io.WriteString(client, "HTTP/1.1 200 Connection Established\r\n\r\n"); err != nil {
		client.Close()
		upstream.Close()
		return
	}

	metrics.TunnelsTotal.Inc()
	metrics.TunnelsActive.Inc()
	defer metrics.TunnelsActive.Dec()

	s.logger.Debug("tunnel open",
		zap.String("tunnel_id", tunnelID),
		zap.String("host", r.Host),
	)

	bicopy(r.Context(), client, upstream)

	s.logger.Debug("tunnel closed",
		zap.String("tunnel_id", tunnelID),
		zap.Duration("lifetime", time.Since(now)),
	)
}

// bicopy relays bytes both ways and closes both ends once either side is
// done writing, or when ctx is cancelled.
func bicopy(ctx context.Context, c1, c2 io.ReadWriteCloser) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	defer func() {
		_ = c1.Close()
		_ = c2.Close()
	}()

	var wg sync.WaitGroup
	copyFunc := func(dst io.WriteCloser, src io.Reader) {
		defer func() {
			wg.Done()
			// One direction finishing ends the tunnel.
			cancel()
		}()
		_, _ = io.Copy(dst, src)
	}

	wg.Add(2)
	go copyFunc(c1, c2)
	go copyFunc(c2, c1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}
}

// handleForward relays a plain (absolute-URI) proxied request, running the
// login heuristics on the request URL before forwarding and on the response
// status afterwards.
func (s *Server) handleForward(w http.ResponseWriter, r *http.Request) {
	if !r.URL.IsAbs() {
		http.Error(w, "not a proxy request", http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	key := sessionKey(r)
	rawURL := r.URL.String()

	// A plaintext request straight at the identity provider opens a
	// session the same way a CONNECT does.
	if s.det.IsLoginHost(r.URL.Host) {
		s.trk.ConnectObserved(key, r.URL.Host, now)
	}

	switch {
	case s.det.IsOAuthCallback(rawURL):
		s.trk.CallbackObserved(key, models.MethodOAuthCallback, now)
	case s.det.IsInteractiveLogin(rawURL):
		s.trk.CallbackObserved(key, models.MethodInteractiveLogin, now)
	}

	out := r.Clone(r.Context())
	out.RequestURI = ""
	stripHopHeaders(out.Header)

	resp, err := s.transport.RoundTrip(out)
	if err != nil {
		s.logger.Debug("forward failed",
			zap.String("url", rawURL),
			zap.Error(err),
		)
		http.Error(w, fmt.Sprintf("upstream error: %v", err), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if s.det.IsRedirectCallback(resp.StatusCode, resp.Header.Get("Location")) {
		s.trk.CallbackObserved(key, models.MethodHTTPRedirect, time.Now().UTC())
	}

	stripHopHeaders(resp.Header)
	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func stripHopHeaders(h http.Header) {
	for _, k := range hopHeaders {
		h.Del(k)
	}
}

// hostPort defaults the port for CONNECT targets that omit one.
func hostPort(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, "443")
}
