package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cybergodev/rsajwt"
	"github.com/cybergodev/rsajwt/internal/blacklist"
)

// MessagePath is the only route a relay serves.
const MessagePath = "/message"

const (
	DefaultReplayWindow = 24 * time.Hour
	DefaultMaxBodyBytes = 1 << 20
)

// Verifier checks a token and decodes its payload. *rsajwt.Processor
// implements it.
type Verifier interface {
	VerifyInto(tokenString string, dest any) error
}

// ServerOptions tunes a Server. Zero values fall back to defaults.
type ServerOptions struct {
	// ReplayWindow is how long a delivered message ID is remembered
	ReplayWindow time.Duration

	// MaxBodyBytes limits the request body
	MaxBodyBytes int64

	// Limiter throttles requests per remote host; nil disables throttling
	Limiter *rsajwt.RateLimiter

	// OnMessage receives every accepted message
	OnMessage func(ChatMessage)
}

// Server accepts tokens posted by a peer, verifies them and hands the
// decoded messages to OnMessage.
type Server struct {
	verifier     Verifier
	replays      blacklist.Store
	limiter      *rsajwt.RateLimiter
	onMessage    func(ChatMessage)
	replayWindow time.Duration
	maxBodyBytes int64
	now          func() time.Time
}

// NewServer creates a Server. replays records delivered message IDs and may
// be shared between relay instances.
func NewServer(verifier Verifier, replays blacklist.Store, opts ServerOptions) *Server {
	if opts.ReplayWindow <= 0 {
		opts.ReplayWindow = DefaultReplayWindow
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.OnMessage == nil {
		opts.OnMessage = func(ChatMessage) {}
	}

	return &Server{
		verifier:     verifier,
		replays:      replays,
		limiter:      opts.Limiter,
		onMessage:    opts.OnMessage,
		replayWindow: opts.ReplayWindow,
		maxBodyBytes: opts.MaxBodyBytes,
		now:          time.Now,
	}
}

// Handler returns the HTTP routes of the relay.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(MessagePath, s.handleMessage)
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithFields(logrus.Fields{
			"function": "ListenAndServe",
			"addr":     addr,
		}).Info("Relay listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("relay shutdown failed: %w", err)
		}
		return nil
	}
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	peer := remoteHost(r)
	fields := logrus.Fields{
		"function": "handleMessage",
		"peer":     peer,
	}

	if s.limiter != nil && !s.limiter.Allow(peer) {
		logrus.WithFields(fields).Warn("Rate limit exceeded")
		writeJSON(w, http.StatusTooManyRequests, rsajwt.ErrRateLimitExceeded.Error())
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		logrus.WithFields(fields).WithError(err).Warn("Failed to read request body")
		writeJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var tokenString string
	if err := json.Unmarshal(body, &tokenString); err != nil {
		logrus.WithFields(fields).WithError(err).Warn("Request body is not a JSON string")
		writeJSON(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON request body: %v", err))
		return
	}

	var msg ChatMessage
	if err := s.verifier.VerifyInto(tokenString, &msg); err != nil {
		logrus.WithFields(fields).WithError(err).Warn("Token rejected")
		writeJSON(w, http.StatusBadRequest, fmt.Sprintf("token validation failed: %v", err))
		return
	}

	if err := msg.Validate(); err != nil {
		logrus.WithFields(fields).WithError(err).Warn("Invalid token payload")
		writeJSON(w, http.StatusBadRequest, fmt.Sprintf("invalid token payload: %v", err))
		return
	}

	fresh, err := s.replays.AddIfAbsent(msg.ID, s.now().Add(s.replayWindow))
	if err != nil {
		logrus.WithFields(fields).WithError(err).Error("Replay store failure")
		writeJSON(w, http.StatusInternalServerError, "replay check failed")
		return
	}
	if !fresh {
		fields["message_id"] = msg.ID
		logrus.WithFields(fields).Warn("Replayed message rejected")
		writeJSON(w, http.StatusConflict, "message already delivered")
		return
	}

	logrus.WithFields(logrus.Fields{
		"function":   "handleMessage",
		"peer":       peer,
		"message_id": msg.ID,
		"username":   msg.Username,
	}).Debug("Message accepted")

	s.onMessage(msg)
	writeJSON(w, http.StatusOK, "delivered")
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"message": message})
}
