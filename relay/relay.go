package relay

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/nostrcore/limits"
)

// Status represents the connection state of a relay.
type Status uint8

const (
	// StatusInitialized means added to a pool but never connected.
	StatusInitialized Status = iota
	// StatusConnecting means a dial is in progress.
	StatusConnecting
	// StatusConnected means the websocket is open.
	StatusConnected
	// StatusDisconnected means the connection dropped or was closed on request.
	StatusDisconnected
	// StatusTerminated means the relay was removed and cannot reconnect.
	StatusTerminated
)

func (s Status) String() string {
	switch s {
	case StatusInitialized:
		return "initialized"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	case StatusTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// handler receives relay events; implemented by Pool.
type handler interface {
	handleMessage(r *Relay, msg *Message)
	handleConnected(r *Relay)
	handleDisconnected(r *Relay)
}

// Relay is one websocket connection to a relay server.
type Relay struct {
	url     string
	proxy   *net.TCPAddr
	dialer  Dialer
	opts    *PoolOptions
	handler handler

	mu             sync.RWMutex
	status         Status
	conn           Conn
	userDisconnect bool
	reconnecting   bool

	writeMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

func newRelay(url string, proxyAddr *net.TCPAddr, opts *PoolOptions, h handler) *Relay {
	ctx, cancel := context.WithCancel(context.Background())
	dialer := opts.Dialer
	if dialer == nil {
		dialer = &WebsocketDialer{HandshakeTimeout: opts.DialTimeout}
	}
	return &Relay{
		url:     url,
		proxy:   proxyAddr,
		dialer:  dialer,
		opts:    opts,
		handler: h,
		status:  StatusInitialized,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// URL returns the relay url.
func (r *Relay) URL() string {
	return r.url
}

// Proxy returns the SOCKS5 proxy address, or nil for direct connections.
func (r *Relay) Proxy() *net.TCPAddr {
	return r.proxy
}

// Status returns the current connection state.
func (r *Relay) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Connect opens the websocket. Connecting a relay that is already connected
// or connecting is a no-op.
func (r *Relay) Connect(ctx context.Context) error {
	r.mu.Lock()
	switch r.status {
	case StatusTerminated:
		r.mu.Unlock()
		return newError("connect", r.url, KindConnection, ErrRelayTerminated)
	case StatusConnecting, StatusConnected:
		r.mu.Unlock()
		return nil
	}
	r.status = StatusConnecting
	r.userDisconnect = false
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Relay.Connect",
		"url":      r.url,
	}).Info("Attempting relay connection")

	dialCtx := ctx
	if r.opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, r.opts.DialTimeout)
		defer cancel()
	}

	conn, err := r.dialer.Dial(dialCtx, r.url, r.proxy)
	if err != nil {
		r.mu.Lock()
		if r.status == StatusConnecting {
			r.status = StatusDisconnected
		}
		r.mu.Unlock()

		logrus.WithFields(logrus.Fields{
			"function": "Relay.Connect",
			"url":      r.url,
			"error":    err.Error(),
		}).Warn("Failed to connect to relay")
		return newError("connect", r.url, KindConnection, err)
	}

	r.mu.Lock()
	if r.status != StatusConnecting {
		// Terminated or disconnected while dialing.
		r.mu.Unlock()
		conn.Close()
		return newError("connect", r.url, KindConnection, ErrRelayTerminated)
	}
	r.conn = conn
	r.status = StatusConnected
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Relay.Connect",
		"url":      r.url,
	}).Info("Connected to relay")

	// Subscribers see the connect before anything read from the socket.
	r.handler.handleConnected(r)
	go r.readLoop(conn)
	return nil
}

// Disconnect closes the connection and suppresses automatic reconnection.
func (r *Relay) Disconnect() error {
	r.mu.Lock()
	if r.status == StatusTerminated {
		r.mu.Unlock()
		return newError("disconnect", r.url, KindConnection, ErrRelayTerminated)
	}
	conn := r.conn
	r.conn = nil
	r.userDisconnect = true
	r.status = StatusDisconnected
	r.mu.Unlock()

	if conn == nil {
		return nil
	}

	conn.Close()
	logrus.WithFields(logrus.Fields{
		"function": "Relay.Disconnect",
		"url":      r.url,
	}).Info("Disconnected from relay")

	r.handler.handleDisconnected(r)
	return nil
}

// terminate closes the relay for good.
func (r *Relay) terminate() {
	r.mu.Lock()
	if r.status == StatusTerminated {
		r.mu.Unlock()
		return
	}
	conn := r.conn
	r.conn = nil
	r.status = StatusTerminated
	r.cancel()
	r.mu.Unlock()

	if conn != nil {
		conn.Close()
		r.handler.handleDisconnected(r)
	}
}

// Send writes one text frame.
func (r *Relay) Send(frame []byte) error {
	if err := limits.ValidateRelayFrame(frame); err != nil {
		return newError("send", r.url, KindProtocol, err)
	}

	r.mu.RLock()
	conn := r.conn
	status := r.status
	r.mu.RUnlock()

	if status != StatusConnected || conn == nil {
		return newError("send", r.url, KindConnection, ErrNotConnected)
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Relay.Send",
			"url":      r.url,
			"error":    err.Error(),
		}).Warn("Failed to write relay frame")
		return newError("send", r.url, KindConnection, err)
	}
	return nil
}

// readLoop reads frames until the connection fails.
func (r *Relay) readLoop(conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			r.handleReadError(conn, err)
			return
		}

		msg, err := ParseMessage(data)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Relay.readLoop",
				"url":      r.url,
				"error":    err.Error(),
			}).Debug("Dropping malformed relay frame")
			continue
		}
		r.handler.handleMessage(r, msg)
	}
}

// handleReadError marks the relay disconnected and schedules reconnection
// when the drop was not requested.
func (r *Relay) handleReadError(conn Conn, err error) {
	r.mu.Lock()
	if r.conn != conn {
		// Already replaced by Disconnect or terminate.
		r.mu.Unlock()
		return
	}
	r.conn = nil
	r.status = StatusDisconnected
	reconnect := !r.userDisconnect && r.opts.MaxReconnects > 0 && !r.reconnecting
	if reconnect {
		r.reconnecting = true
	}
	r.mu.Unlock()

	conn.Close()

	logrus.WithFields(logrus.Fields{
		"function":  "Relay.handleReadError",
		"url":       r.url,
		"error":     err.Error(),
		"reconnect": reconnect,
	}).Warn("Relay connection lost")

	r.handler.handleDisconnected(r)

	if reconnect {
		go r.reconnectLoop()
	}
}

// reconnectLoop retries with linearly growing delays until connected,
// terminated, disconnected by the user, or out of attempts.
func (r *Relay) reconnectLoop() {
	defer func() {
		r.mu.Lock()
		r.reconnecting = false
		r.mu.Unlock()
	}()

	for attempt := 1; attempt <= r.opts.MaxReconnects; attempt++ {
		timer := time.NewTimer(time.Duration(attempt) * r.opts.ReconnectDelay)
		select {
		case <-r.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		r.mu.RLock()
		stop := r.userDisconnect || r.status == StatusConnected || r.status == StatusTerminated
		r.mu.RUnlock()
		if stop {
			return
		}

		err := r.Connect(r.ctx)
		if err == nil {
			return
		}
		if errors.Is(err, ErrRelayTerminated) {
			return
		}

		logrus.WithFields(logrus.Fields{
			"function": "Relay.reconnectLoop",
			"url":      r.url,
			"attempt":  attempt,
			"error":    err.Error(),
		}).Warn("Relay reconnection attempt failed")
	}
}
