package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// internal (untyped) handler signature.
type rawHandler func(ctx context.Context, s *Session, payload json.RawMessage) error

// Router keeps a map[type]handler, à‑la gin.Engine. Only the types registered
// at start-up are accepted; every other tag is the unknown case.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]rawHandler
	validate *validator.Validate
}

func NewRouter() *Router {
	return &Router{
		handlers: make(map[string]rawHandler),
		validate: validator.New(),
	}
}

// Register binds a message type to a strongly‑typed handler.
func Register[Req any](
	r *Router,
	msgType string,
	h func(ctx context.Context, s *Session, req Req) error,
) {
	if msgType == "" {
		panic("ws router: empty message type")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[msgType] = func(ctx context.Context, s *Session, payload json.RawMessage) error {
		var req Req
		if len(payload) == 0 {
			return fmt.Errorf("%w: %s without payload", ErrMalformed, msgType)
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if err := r.validate.Struct(req); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return h(ctx, s, req)
	}
}

// parse decodes a raw frame into its envelope.
func parse(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return env, nil
}

// dispatch is called by the server’s reader loop.
func (r *Router) dispatch(ctx context.Context, s *Session, env Envelope) error {
	r.mu.RLock()
	h, ok := r.handlers[env.Type]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
	}
	return h(ctx, s, env.Payload)
}
