package relay

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"

	"github.com/opd-ai/nostrcore/limits"
)

// Conn is the subset of *websocket.Conn a relay needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens relay connections. A non-nil proxy is a SOCKS5 proxy address.
type Dialer interface {
	Dial(ctx context.Context, url string, proxyAddr *net.TCPAddr) (Conn, error)
}

// WebsocketDialer dials relays with gorilla/websocket, optionally through a
// SOCKS5 proxy.
type WebsocketDialer struct {
	HandshakeTimeout time.Duration
}

// Dial implements Dialer.
func (d *WebsocketDialer) Dial(ctx context.Context, url string, proxyAddr *net.TCPAddr) (Conn, error) {
	wsDialer := &websocket.Dialer{
		HandshakeTimeout: d.HandshakeTimeout,
	}

	if proxyAddr != nil {
		socks, err := proxy.SOCKS5("tcp", proxyAddr.String(), nil, proxy.Direct)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":   "WebsocketDialer.Dial",
				"url":        url,
				"proxy_addr": proxyAddr.String(),
				"error":      err.Error(),
			}).Error("Failed to create SOCKS5 dialer")
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		if cd, ok := socks.(proxy.ContextDialer); ok {
			wsDialer.NetDialContext = cd.DialContext
		} else {
			wsDialer.NetDial = socks.Dial
		}
	}

	logrus.WithFields(logrus.Fields{
		"function": "WebsocketDialer.Dial",
		"url":      url,
		"proxied":  proxyAddr != nil,
	}).Debug("Dialing relay")

	conn, _, err := wsDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	conn.SetReadLimit(limits.MaxRelayFrame)
	return conn, nil
}
