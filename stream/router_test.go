package stream

import (
	"fmt"
	"testing"
	"time"
)

func testClient(r *Router, userID string) *Client {
	c := newClient(r, nil, userID, nil)
	r.Register(c)
	return c
}

func recvRaw(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("send queue closed")
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}
	return nil
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message: %s", msg)
	default:
	}
}

func TestPublishReachesOnlySubscribers(t *testing.T) {
	r := NewRouter(nil)
	u1 := testClient(r, "u1")
	u2 := testClient(r, "u2")
	u3 := testClient(r, "u3")
	r.Subscribe(u1, "boardX")
	r.Subscribe(u2, "boardX")

	r.Publish("boardX", []byte(`{"name":"orderChanged"}`))

	recvRaw(t, u1)
	recvRaw(t, u2)
	assertSilent(t, u1)
	assertSilent(t, u2)
	assertSilent(t, u3)
}

func TestPublishFIFOPerChannel(t *testing.T) {
	r := NewRouter(nil)
	c := testClient(r, "u1")
	r.Subscribe(c, "boardX")

	for i := 0; i < 5; i++ {
		r.Publish("boardX", []byte(fmt.Sprintf("msg-%d", i)))
	}
	for i := 0; i < 5; i++ {
		if got := string(recvRaw(t, c)); got != fmt.Sprintf("msg-%d", i) {
			t.Fatalf("message %d = %q, out of order", i, got)
		}
	}
}

func TestPublishToEmptyChannelIsNoop(t *testing.T) {
	r := NewRouter(nil)
	r.Publish("nobody-home", []byte("x"))
}

func TestSlowConsumerIsDropped(t *testing.T) {
	r := NewRouter(nil)
	c := testClient(r, "u1")
	r.Subscribe(c, "boardX")

	for i := 0; i < sendQueueSize+1; i++ {
		r.Publish("boardX", []byte("m"))
	}
	if subs := r.SubscribersOf("boardX"); len(subs) != 0 {
		t.Fatalf("stalled connection still subscribed: %v", subs)
	}
	// Queue must have been closed after draining its backlog.
	for i := 0; i < sendQueueSize; i++ {
		<-c.send
	}
	if _, ok := <-c.send; ok {
		t.Fatal("send queue left open for dropped connection")
	}
	// Publishing again must not panic or deliver.
	r.Publish("boardX", []byte("m"))
}

func TestSubscribeUserJoinsEveryConnection(t *testing.T) {
	r := NewRouter(nil)
	a := testClient(r, "u4")
	b := testClient(r, "u4")
	other := testClient(r, "u9")

	r.SubscribeUser("u4", "boardX")
	r.Publish("boardX", []byte("hello"))

	recvRaw(t, a)
	recvRaw(t, b)
	assertSilent(t, other)

	r.UnsubscribeUser("u4", "boardX")
	r.Publish("boardX", []byte("bye"))
	assertSilent(t, a)
	assertSilent(t, b)
	if subs := r.SubscribersOf("boardX"); len(subs) != 0 {
		t.Fatalf("expected empty channel, got %v", subs)
	}
}

func TestUnregisterLeavesChannels(t *testing.T) {
	r := NewRouter(nil)
	c := testClient(r, "u1")
	r.Subscribe(c, "boardX")
	r.Subscribe(c, "u1")

	r.Unregister(c)
	if subs := r.SubscribersOf("boardX"); len(subs) != 0 {
		t.Fatalf("connection lingers in channel: %v", subs)
	}
	if _, ok := <-c.send; ok {
		t.Fatal("send queue not closed on unregister")
	}
	// Double unregister is harmless.
	r.Unregister(c)
}
