package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/nostrcore/event"
)

func TestAddRelay(t *testing.T) {
	pool := newTestPool(t, newFakeDialer())
	ctx := context.Background()

	require.NoError(t, pool.AddRelay(ctx, relayA, nil))

	err := pool.AddRelay(ctx, relayA, nil)
	assert.ErrorIs(t, err, ErrRelayExists)
	assert.True(t, IsKind(err, KindConnection))

	for _, bad := range []string{"https://relay.example.com", "wss://", "::not a url"} {
		err := pool.AddRelay(ctx, bad, nil)
		assert.ErrorIs(t, err, ErrInvalidURL, "url %q", bad)
	}

	status, err := pool.Status(relayA)
	require.NoError(t, err)
	assert.Equal(t, StatusInitialized, status)
	assert.Equal(t, []string{relayA}, pool.Relays())
}

func TestAddRelayWithProxy(t *testing.T) {
	dialer := newFakeDialer()
	pool := newTestPool(t, dialer)
	ctx := context.Background()

	proxyAddr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9050}
	require.NoError(t, pool.AddRelay(ctx, relayA, proxyAddr))
	require.NoError(t, pool.ConnectRelay(ctx, relayA))

	assert.Equal(t, proxyAddr, dialer.proxies[relayA])
}

func TestRemoveRelay(t *testing.T) {
	dialer := newFakeDialer()
	pool := newTestPool(t, dialer)
	ctx := context.Background()

	err := pool.RemoveRelay(ctx, relayA)
	assert.ErrorIs(t, err, ErrRelayNotFound)

	require.NoError(t, pool.AddRelay(ctx, relayA, nil))
	require.NoError(t, pool.ConnectRelay(ctx, relayA))
	conn := dialer.conn(relayA)

	require.NoError(t, pool.RemoveRelay(ctx, relayA))
	assert.True(t, conn.isClosed())
	assert.Empty(t, pool.Relays())

	_, err = pool.Status(relayA)
	assert.ErrorIs(t, err, ErrRelayNotFound)
}

func TestConnectAndDisconnectRelay(t *testing.T) {
	dialer := newFakeDialer()
	pool := newTestPool(t, dialer)
	ctx := context.Background()

	assert.ErrorIs(t, pool.ConnectRelay(ctx, relayA), ErrRelayNotFound)
	assert.ErrorIs(t, pool.DisconnectRelay(ctx, relayA), ErrRelayNotFound)

	require.NoError(t, pool.AddRelay(ctx, relayA, nil))
	sub := pool.Notifications()

	require.NoError(t, pool.ConnectRelay(ctx, relayA))
	n := recvKind(t, sub, NotificationRelayConnected)
	assert.Equal(t, relayA, n.RelayURL)

	// Already connected: no second dial.
	require.NoError(t, pool.ConnectRelay(ctx, relayA))
	assert.Equal(t, 1, dialer.attemptCount(relayA))

	require.NoError(t, pool.DisconnectRelay(ctx, relayA))
	n = recvKind(t, sub, NotificationRelayDisconnected)
	assert.Equal(t, relayA, n.RelayURL)

	status, err := pool.Status(relayA)
	require.NoError(t, err)
	assert.Equal(t, StatusDisconnected, status)
}

func TestConnectedNotificationPrecedesRelayFrames(t *testing.T) {
	dialer := newFakeDialer()
	dialer.greet(relayA, []byte(`["NOTICE","welcome"]`))
	pool := newTestPool(t, dialer)
	ctx := context.Background()

	require.NoError(t, pool.AddRelay(ctx, relayA, nil))
	sub := pool.Notifications()
	require.NoError(t, pool.ConnectRelay(ctx, relayA))

	recvCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	first, err := sub.Recv(recvCtx)
	require.NoError(t, err)
	assert.Equal(t, NotificationRelayConnected, first.Kind)

	second, err := sub.Recv(recvCtx)
	require.NoError(t, err)
	assert.Equal(t, NotificationNotice, second.Kind)
	assert.Equal(t, "welcome", second.Message)
}

func TestConnectRelayDialFailure(t *testing.T) {
	dialer := newFakeDialer()
	dialer.setFail(relayA, errors.New("connection refused"))
	pool := newTestPool(t, dialer)
	ctx := context.Background()

	require.NoError(t, pool.AddRelay(ctx, relayA, nil))
	err := pool.ConnectRelay(ctx, relayA)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConnection))

	status, _ := pool.Status(relayA)
	assert.Equal(t, StatusDisconnected, status)
}

func TestConnectAllSkipsConnectedRelays(t *testing.T) {
	dialer := newFakeDialer()
	pool := newTestPool(t, dialer)
	ctx := context.Background()

	for _, u := range []string{relayA, relayB, relayC} {
		require.NoError(t, pool.AddRelay(ctx, u, nil))
	}
	require.NoError(t, pool.ConnectRelay(ctx, relayA))
	require.NoError(t, pool.ConnectRelay(ctx, relayB))

	require.NoError(t, pool.ConnectAll(ctx))

	assert.Equal(t, 1, dialer.attemptCount(relayA))
	assert.Equal(t, 1, dialer.attemptCount(relayB))
	assert.Equal(t, 1, dialer.attemptCount(relayC))

	for _, u := range []string{relayA, relayB, relayC} {
		status, err := pool.Status(u)
		require.NoError(t, err)
		assert.Equal(t, StatusConnected, status, u)
	}
}

func TestConnectAllAggregatesFailures(t *testing.T) {
	dialer := newFakeDialer()
	dialer.setFail(relayA, errors.New("refused a"))
	dialer.setFail(relayB, errors.New("refused b"))
	pool := newTestPool(t, dialer)
	ctx := context.Background()

	for _, u := range []string{relayA, relayB, relayC} {
		require.NoError(t, pool.AddRelay(ctx, u, nil))
	}

	err := pool.ConnectAll(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused a")
	assert.Contains(t, err.Error(), "refused b")
	assert.True(t, IsKind(err, KindConnection))

	status, _ := pool.Status(relayC)
	assert.Equal(t, StatusConnected, status)
}

func TestSubscribeSendsAndReplaysReq(t *testing.T) {
	dialer := newFakeDialer()
	pool := newTestPool(t, dialer)
	ctx := context.Background()

	require.NoError(t, pool.AddRelay(ctx, relayA, nil))
	require.NoError(t, pool.AddRelay(ctx, relayB, nil))
	require.NoError(t, pool.ConnectRelay(ctx, relayA))

	filters := []event.Filter{{Kinds: []event.Kind{event.KindTextNote}, Limit: 10}}
	require.NoError(t, pool.Subscribe(ctx, filters))
	subID := pool.SubscriptionID()
	require.NotEmpty(t, subID)

	wantReq := `["REQ","` + subID + `",{"kinds":[1],"limit":10}]`
	framesA := dialer.conn(relayA).frames()
	require.Len(t, framesA, 1)
	assert.JSONEq(t, wantReq, framesA[0])

	// A relay connecting later receives the stored REQ.
	require.NoError(t, pool.ConnectRelay(ctx, relayB))
	framesB := dialer.conn(relayB).frames()
	require.Len(t, framesB, 1)
	assert.JSONEq(t, wantReq, framesB[0])

	// Re-subscribing closes the previous subscription first.
	require.NoError(t, pool.Subscribe(ctx, []event.Filter{{Limit: 1}}))
	framesA = dialer.conn(relayA).frames()
	require.Len(t, framesA, 3)
	assert.JSONEq(t, `["CLOSE","`+subID+`"]`, framesA[1])
	assert.NotEqual(t, subID, pool.SubscriptionID())
}

func TestSubscribeRejectsInvalidFilters(t *testing.T) {
	pool := newTestPool(t, newFakeDialer())
	ctx := context.Background()

	err := pool.Subscribe(ctx, nil)
	assert.ErrorIs(t, err, event.ErrInvalidFilter)
	assert.True(t, IsKind(err, KindProtocol))

	err = pool.Subscribe(ctx, []event.Filter{{Authors: []string{"npub"}}})
	assert.ErrorIs(t, err, event.ErrInvalidFilter)
	assert.True(t, IsKind(err, KindProtocol))
	assert.Empty(t, pool.SubscriptionID())
}

func TestSendEvent(t *testing.T) {
	dialer := newFakeDialer()
	pool := newTestPool(t, dialer)
	ctx := context.Background()
	ev := testEvent(t, "hello")

	err := pool.SendEvent(ctx, ev)
	assert.ErrorIs(t, err, ErrNoConnectedRelays)
	assert.True(t, IsKind(err, KindConnection))

	require.NoError(t, pool.AddRelay(ctx, relayA, nil))
	require.NoError(t, pool.AddRelay(ctx, relayB, nil))
	require.NoError(t, pool.ConnectAll(ctx))

	require.NoError(t, pool.SendEvent(ctx, ev))
	for _, u := range []string{relayA, relayB} {
		frames := dialer.conn(u).frames()
		require.Len(t, frames, 1)
		assert.True(t, strings.HasPrefix(frames[0], `["EVENT",`), frames[0])
		assert.Contains(t, frames[0], ev.ID)
	}
}

func TestSendEventRejectsInvalidEvent(t *testing.T) {
	pool := newTestPool(t, newFakeDialer())
	ctx := context.Background()

	err := pool.SendEvent(ctx, nil)
	assert.ErrorIs(t, err, ErrInvalidEvent)

	ev := testEvent(t, "original")
	ev.Content = "tampered"
	err = pool.SendEvent(ctx, ev)
	assert.ErrorIs(t, err, ErrInvalidEvent)
	assert.ErrorIs(t, err, event.ErrInvalidID)
	assert.True(t, IsKind(err, KindProtocol))
}

func TestIncomingEventsAreDeduplicated(t *testing.T) {
	dialer := newFakeDialer()
	pool := newTestPool(t, dialer)
	ctx := context.Background()

	require.NoError(t, pool.AddRelay(ctx, relayA, nil))
	require.NoError(t, pool.AddRelay(ctx, relayB, nil))
	require.NoError(t, pool.ConnectAll(ctx))

	sub := pool.Notifications()
	ev := testEvent(t, "seen twice")
	evJSON, err := json.Marshal(ev)
	require.NoError(t, err)
	frame := []byte(`["EVENT","sub",` + string(evJSON) + `]`)

	dialer.conn(relayA).push(frame)
	n := recvKind(t, sub, NotificationEvent)
	assert.Equal(t, ev.ID, n.Event.ID)
	assert.Equal(t, relayA, n.RelayURL)
	assert.Equal(t, "sub", n.SubscriptionID)

	dialer.conn(relayB).push(frame)
	dialer.conn(relayB).push([]byte(`["NOTICE","done"]`))

	recvCtx, cancel := context.WithTimeout(ctx, testWaitTimeout)
	defer cancel()
	next, err := sub.Recv(recvCtx)
	require.NoError(t, err)
	assert.Equal(t, NotificationNotice, next.Kind, "duplicate event must not be delivered")
	assert.Equal(t, "done", next.Message)
}

func TestIncomingInvalidEventDropped(t *testing.T) {
	dialer := newFakeDialer()
	pool := newTestPool(t, dialer)
	ctx := context.Background()

	require.NoError(t, pool.AddRelay(ctx, relayA, nil))
	require.NoError(t, pool.ConnectRelay(ctx, relayA))
	sub := pool.Notifications()

	ev := testEvent(t, "forged")
	ev.Content = "changed in transit"
	evJSON, err := json.Marshal(ev)
	require.NoError(t, err)

	conn := dialer.conn(relayA)
	conn.push([]byte(`["EVENT","sub",` + string(evJSON) + `]`))
	conn.push([]byte(`["garbage"]`))
	conn.push([]byte(`["OK","` + ev.ID + `",true,""]`))

	recvCtx, cancel := context.WithTimeout(ctx, testWaitTimeout)
	defer cancel()
	n, err := sub.Recv(recvCtx)
	require.NoError(t, err)
	assert.Equal(t, NotificationOK, n.Kind)
	assert.True(t, n.Accepted)
	assert.Equal(t, ev.ID, n.EventID)
}

func TestConnectionDropPublishesDisconnect(t *testing.T) {
	dialer := newFakeDialer()
	pool := newTestPool(t, dialer)
	ctx := context.Background()

	require.NoError(t, pool.AddRelay(ctx, relayA, nil))
	require.NoError(t, pool.ConnectRelay(ctx, relayA))
	sub := pool.Notifications()

	dialer.conn(relayA).Close()

	n := recvKind(t, sub, NotificationRelayDisconnected)
	assert.Equal(t, relayA, n.RelayURL)

	status, _ := pool.Status(relayA)
	assert.Equal(t, StatusDisconnected, status)
}

func TestDroppedRelayReconnects(t *testing.T) {
	dialer := newFakeDialer()
	opts := NewPoolOptions()
	opts.Dialer = dialer
	opts.MaxReconnects = 2
	opts.ReconnectDelay = 5 * time.Millisecond
	pool := NewPoolWithOptions(opts)
	defer pool.Close()
	ctx := context.Background()

	require.NoError(t, pool.AddRelay(ctx, relayA, nil))
	require.NoError(t, pool.ConnectRelay(ctx, relayA))

	dialer.conn(relayA).Close()

	require.Eventually(t, func() bool {
		status, _ := pool.Status(relayA)
		return dialer.attemptCount(relayA) == 2 && status == StatusConnected
	}, testWaitTimeout, testPollInterval)
}

func TestUserDisconnectDoesNotReconnect(t *testing.T) {
	dialer := newFakeDialer()
	opts := NewPoolOptions()
	opts.Dialer = dialer
	opts.MaxReconnects = 2
	opts.ReconnectDelay = time.Millisecond
	pool := NewPoolWithOptions(opts)
	defer pool.Close()
	ctx := context.Background()

	require.NoError(t, pool.AddRelay(ctx, relayA, nil))
	require.NoError(t, pool.ConnectRelay(ctx, relayA))
	require.NoError(t, pool.DisconnectRelay(ctx, relayA))

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, dialer.attemptCount(relayA))
}

func TestPoolClose(t *testing.T) {
	dialer := newFakeDialer()
	pool := newTestPool(t, dialer)
	ctx := context.Background()

	require.NoError(t, pool.AddRelay(ctx, relayA, nil))
	require.NoError(t, pool.ConnectRelay(ctx, relayA))
	sub := pool.Notifications()

	require.NoError(t, pool.Close())
	require.NoError(t, pool.Close())
	assert.True(t, dialer.conn(relayA).isClosed())

	recvCtx, cancel := context.WithTimeout(ctx, testWaitTimeout)
	defer cancel()
	var err error
	for err == nil {
		_, err = sub.Recv(recvCtx)
	}
	assert.ErrorIs(t, err, ErrPoolClosed)

	assert.ErrorIs(t, pool.AddRelay(ctx, relayB, nil), ErrPoolClosed)
	assert.ErrorIs(t, pool.Subscribe(ctx, []event.Filter{{}}), ErrPoolClosed)
}
