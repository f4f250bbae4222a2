package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"metaverse2d/internal/world"
)

type sessionState int

const (
	stateUnjoined sessionState = iota
	stateJoined
	stateClosed
)

// Session is the server side of one live connection.
type Session struct {
	id      string
	conn    Conn
	srv     *WsServer
	limiter *rate.Limiter

	mu      sync.Mutex
	state   sessionState
	userID  string
	spaceID string
	bounds  world.Bounds
	pos     world.Position

	disconnectOnce sync.Once
}

func (s *Session) ID() string { return s.id }

// UserID is empty until the session joined a space.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) SpaceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spaceID
}

func (s *Session) Position() world.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

func (s *Session) handleJoin(ctx context.Context, req JoinRequest) error {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	switch st {
	case stateJoined:
		return ErrAlreadyJoined
	case stateClosed:
		return ErrSessionClosed
	}

	userID, err := s.srv.auth.VerifyToken(ctx, req.Token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if userID == "" {
		return fmt.Errorf("%w: token carries no user", ErrUnauthorized)
	}
	bounds, err := s.srv.spaces.GetSpaceBounds(ctx, req.SpaceID)
	if errors.Is(err, world.ErrSpaceNotFound) {
		return fmt.Errorf("%w: %v", ErrUnknownSpace, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	if !bounds.Valid() {
		return fmt.Errorf("%w: %s has no cells", ErrUnknownSpace, req.SpaceID)
	}
	spawn := s.srv.spawn(bounds)

	s.mu.Lock()
	if s.state != stateUnjoined {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	// Identity is written before the session becomes visible to other members.
	s.userID, s.spaceID, s.bounds, s.pos = userID, req.SpaceID, bounds, spawn
	err = s.srv.registry.Add(req.SpaceID, s, func(others []*Session) {
		s.welcome(spawn, others)
	})
	if err != nil {
		s.userID, s.spaceID, s.bounds, s.pos = "", "", world.Bounds{}, world.Position{}
		s.mu.Unlock()
		return err
	}
	s.state = stateJoined
	s.mu.Unlock()

	zap.L().Info("ws.joined",
		zap.String("session", s.id),
		zap.String("user", userID),
		zap.String("space", req.SpaceID),
		zap.Int("x", spawn.X), zap.Int("y", spawn.Y))

	msg, err := encode(TypeUserJoined, UserJoinedBody{UserID: userID, X: spawn.X, Y: spawn.Y})
	if err != nil {
		return err
	}
	s.srv.registry.Broadcast(req.SpaceID, msg, s)
	return nil
}

// welcome sends the space-joined reply; it runs under the room lock.
func (s *Session) welcome(spawn world.Position, others []*Session) {
	users := make([]Occupant, 0, len(others))
	for _, o := range others {
		users = append(users, Occupant{ID: o.id, UserID: o.userID})
	}
	msg, err := encode(TypeSpaceJoined, SpaceJoinedBody{Spawn: spawn, Users: users})
	if err != nil {
		zap.L().Error("ws.encode", zap.Error(err))
		return
	}
	if err := s.conn.Send(msg); err != nil {
		zap.L().Debug("ws.welcome_failed", zap.String("session", s.id), zap.Error(err))
	}
}

func (s *Session) handleMove(_ context.Context, req MoveRequest) error {
	target := world.Position{X: *req.X, Y: *req.Y}

	s.mu.Lock()
	if s.state != stateJoined {
		s.mu.Unlock()
		return ErrNotJoined
	}
	if err := world.Validate(s.pos, target, s.bounds); err != nil {
		cur := s.pos
		s.mu.Unlock()

		msg, encErr := encode(TypeMovementRejected, MovementRejectedBody{X: cur.X, Y: cur.Y})
		if encErr != nil {
			return encErr
		}
		if sendErr := s.conn.Send(msg); sendErr != nil {
			zap.L().Debug("ws.reject_failed", zap.String("session", s.id), zap.Error(sendErr))
		}
		return nil
	}
	s.pos = target
	spaceID, userID := s.spaceID, s.userID
	s.mu.Unlock()

	msg, err := encode(TypeMovement, MovementBody{X: target.X, Y: target.Y, UserID: userID})
	if err != nil {
		return err
	}
	s.srv.registry.Broadcast(spaceID, msg, s)
	return nil
}

// onDisconnect leaves the room and tells the remaining members. Safe to call
// more than once.
func (s *Session) onDisconnect() {
	s.disconnectOnce.Do(func() {
		s.mu.Lock()
		wasJoined := s.state == stateJoined
		s.state = stateClosed
		spaceID, userID := s.spaceID, s.userID
		s.mu.Unlock()

		if !wasJoined {
			return
		}
		s.srv.registry.Remove(s, spaceID)

		msg, err := encode(TypeUserLeft, UserLeftBody{UserID: userID})
		if err != nil {
			zap.L().Error("ws.encode", zap.Error(err))
			return
		}
		s.srv.registry.Broadcast(spaceID, msg, s)
		zap.L().Info("ws.left",
			zap.String("session", s.id),
			zap.String("user", userID),
			zap.String("space", spaceID))
	})
}
