package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"

	"github.com/sealdice/perworld/perworld/types"
)

// HostAdapterWS bridges a game server plugin over WebSocket. The plugin either
// connects to ListenAddr, or this side dials ConnectURL and reconnects with backoff.
type HostAdapterWS struct {
	ListenAddr  string `json:"listen" yaml:"listen"`
	ConnectURL  string `json:"connect" yaml:"connect"`
	AccessToken string `json:"token" yaml:"token"`

	callback HostCallback

	running atomic.Bool
	session atomic.Pointer[hostSession]

	server *http.Server
	mu     sync.Mutex
}

// hostSession wraps a websocket connection; writes may come from any goroutine.
type hostSession struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newHostSession(conn *websocket.Conn) *hostSession {
	return &hostSession{conn: conn}
}

func (s *hostSession) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *hostSession) close() {
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
	})
}

func (pa *HostAdapterWS) SetCallback(callback HostCallback) {
	pa.callback = callback
}

// IsAlive reports whether a host is connected.
func (pa *HostAdapterWS) IsAlive() bool {
	return pa.running.Load()
}

// Serve starts the listener and/or the dialer and returns.
func (pa *HostAdapterWS) Serve(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	if pa.ListenAddr == "" && pa.ConnectURL == "" {
		zap.S().Named("adapter").Warn("host adapter: neither listen nor connect configured")
		return
	}

	if pa.ConnectURL != "" {
		go pa.loopConnect(ctx)
	}

	if pa.ListenAddr != "" {
		go pa.listen(ctx)
	}
}

// Close shuts down the listener and the active session.
func (pa *HostAdapterWS) Close() {
	pa.mu.Lock()
	srv := pa.server
	pa.mu.Unlock()
	if srv != nil {
		_ = srv.Shutdown(context.Background())
	}

	if s := pa.session.Swap(nil); s != nil {
		s.close()
	}
	pa.running.Store(false)
}

func (pa *HostAdapterWS) loopConnect(ctx context.Context) {
	log := zap.S().Named("adapter")
	backoff := time.Second

	for {
		if ctx.Err() != nil {
			return
		}

		if err := pa.connect(ctx); err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Warnf("host ws connect failed: %v", err)
			}
		}

		if ctx.Err() != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay(backoff)):
		}

		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// reconnectDelay 在 backoff 上加最多一半的随机抖动，避免多个实例同时重连
func reconnectDelay(backoff time.Duration) time.Duration {
	return backoff + time.Duration(rand.Int63n(int64(backoff/2)+1))
}

func (pa *HostAdapterWS) connect(ctx context.Context) error {
	header := http.Header{}
	if pa.AccessToken != "" {
		header.Set("Authorization", "Bearer "+pa.AccessToken)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, pa.ConnectURL, header)
	if err != nil {
		return err
	}
	session := newHostSession(conn)
	pa.setSession(session)
	defer pa.clearSession(session)

	return pa.consumeSession(ctx, session)
}

// Handler is the upgrade endpoint used by listen; exposed for embedding.
func (pa *HostAdapterWS) Handler(ctx context.Context) http.Handler {
	log := zap.S().Named("adapter")
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ctx.Err() != nil {
			http.Error(w, "adapter shutting down", http.StatusServiceUnavailable)
			return
		}

		if pa.AccessToken != "" {
			token := r.Header.Get("Authorization")
			token = strings.TrimPrefix(token, "Bearer ")
			if token == "" {
				token = r.URL.Query().Get("access_token")
			}
			if token != pa.AccessToken {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warnf("host ws upgrade failed: %v", err)
			return
		}

		session := newHostSession(conn)
		pa.setSession(session)
		defer pa.clearSession(session)

		if err := pa.consumeSession(ctx, session); err != nil && !errors.Is(err, context.Canceled) {
			log.Debugf("host ws closed: %v", err)
		}
	})
}

func (pa *HostAdapterWS) listen(ctx context.Context) {
	log := zap.S().Named("adapter")

	server := &http.Server{
		Addr:              pa.ListenAddr,
		Handler:           pa.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}
	pa.mu.Lock()
	pa.server = server
	pa.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()

	log.Infof("host ws listening on %s", pa.ListenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("host ws listen failed: %v", err)
	}
}

// setSession replaces the active host; a server only has one.
func (pa *HostAdapterWS) setSession(session *hostSession) {
	if old := pa.session.Swap(session); old != nil && old != session {
		old.close()
	}
	pa.running.Store(true)
}

func (pa *HostAdapterWS) clearSession(session *hostSession) {
	pa.session.CompareAndSwap(session, nil)
	session.close()
	if pa.session.Load() == nil {
		pa.running.Store(false)
	}
}

func (pa *HostAdapterWS) consumeSession(ctx context.Context, session *hostSession) error {
	log := zap.S().Named("adapter")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		_, payload, err := session.conn.ReadMessage()
		if err != nil {
			return err
		}

		if err := pa.dispatchFrame(session, payload); err != nil {
			log.Debugf("host frame dispatch failed: %v", err)
			if pa.callback != nil {
				pa.callback.OnError(err)
			}
			_ = session.writeJSON(errorFrame{Type: frameError, Message: err.Error()})
		}
	}
}

func (pa *HostAdapterWS) dispatchFrame(session *hostSession, payload []byte) error {
	evt, err := decodeHostFrame(session, payload)
	if err != nil {
		return err
	}
	if pa.callback != nil {
		pa.callback.OnPlayerEvent(evt)
	}
	return nil
}

func decodeHostFrame(session *hostSession, payload []byte) (*types.PlayerEvent, error) {
	var frame hostFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	switch frame.Type {
	case types.EventWorldChange, types.EventQuit, types.EventKick:
	default:
		return nil, fmt.Errorf("unknown frame type %q", frame.Type)
	}
	if frame.Player == nil {
		return nil, fmt.Errorf("%s frame without player", frame.Type)
	}
	if frame.Type == types.EventWorldChange && frame.WorldFrom == "" {
		return nil, errors.New("world_change frame without world_from")
	}

	return &types.PlayerEvent{
		Type:      frame.Type,
		Player:    newRemotePlayer(session, frame.Player),
		FromWorld: frame.WorldFrom,
	}, nil
}
