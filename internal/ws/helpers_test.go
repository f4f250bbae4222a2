package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"metaverse2d/internal/world"
)

type fakeConn struct {
	mu       sync.Mutex
	received [][]byte
	closed   bool
	sendErr  error
}

func (c *fakeConn) Send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	if c.sendErr != nil {
		return c.sendErr
	}
	c.received = append(c.received, msg)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) messages(t *testing.T) []Envelope {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Envelope, 0, len(c.received))
	for _, raw := range c.received {
		var env Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		out = append(out, env)
	}
	return out
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = nil
}

type fakeAuth map[string]string // token -> userID

func (a fakeAuth) VerifyToken(_ context.Context, token string) (string, error) {
	if u, ok := a[token]; ok {
		return u, nil
	}
	return "", errors.New("bad token")
}

type fakeSpaces map[string]world.Bounds

func (f fakeSpaces) GetSpaceBounds(_ context.Context, id string) (world.Bounds, error) {
	if id == "broken" {
		return world.Bounds{}, errors.New("connection refused")
	}
	if b, ok := f[id]; ok {
		return b, nil
	}
	return world.Bounds{}, fmt.Errorf("%w: %s", world.ErrSpaceNotFound, id)
}

// seqRand returns the queued values in order, wrapped into [0,n).
type seqRand struct {
	mu   sync.Mutex
	vals []int
	i    int
}

func (r *seqRand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v % n
}

func newTestServer(opts ...Option) *WsServer {
	auth := fakeAuth{"tok-alice": "alice", "tok-bob": "bob", "tok-carol": "carol", "tok-nobody": ""}
	spaces := fakeSpaces{
		"S1":    {Width: 100, Height: 200},
		"S2":    {Width: 10, Height: 10},
		"empty": {Width: 0, Height: 5},
	}
	return NewWsServer(NewRegistry(), auth, spaces, opts...)
}

func newTestSession(t *testing.T, srv *WsServer) (*Session, *fakeConn) {
	t.Helper()
	c := &fakeConn{}
	s, err := srv.newSession(c)
	require.NoError(t, err)
	return s, c
}

func joinFrame(spaceID, token string) []byte {
	return []byte(fmt.Sprintf(`{"type":"join","payload":{"spaceId":%q,"token":%q}}`, spaceID, token))
}

func moveFrame(x, y int) []byte {
	return []byte(fmt.Sprintf(`{"type":"move","payload":{"x":%d,"y":%d}}`, x, y))
}

func decodePayload[T any](t *testing.T, env Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(bytes.NewReader(env.Payload)).Decode(&v))
	return v
}
