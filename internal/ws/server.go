package ws

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	mrand "math/rand/v2"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"metaverse2d/internal/world"
)

// CredentialVerifier turns a bearer token into a user id.
type CredentialVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

// SpaceLookup returns the grid size of a space.
type SpaceLookup interface {
	GetSpaceBounds(ctx context.Context, spaceID string) (world.Bounds, error)
}

type options struct {
	joinTimeout    time.Duration
	readLimit      int64
	sendBuffer     int
	msgRate        rate.Limit
	msgBurst       int
	allowedOrigins []string
	rng            world.IntN
	idReader       io.Reader
}

type Option func(*options)

// WithJoinTimeout bounds credential verification plus space lookup.
func WithJoinTimeout(d time.Duration) Option { return func(o *options) { o.joinTimeout = d } }

func WithReadLimit(n int64) Option { return func(o *options) { o.readLimit = n } }

func WithSendBuffer(n int) Option { return func(o *options) { o.sendBuffer = n } }

// WithRateLimit caps inbound messages per session. perSecond <= 0 disables it.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *options) {
		if perSecond <= 0 {
			o.msgRate = rate.Inf
			return
		}
		o.msgRate, o.msgBurst = rate.Limit(perSecond), max(burst, 1)
	}
}

// WithAllowedOrigins restricts the upgrade to the given Origin headers. Empty allows all.
func WithAllowedOrigins(origins []string) Option {
	return func(o *options) { o.allowedOrigins = origins }
}

// WithRand sets the source of spawn positions.
func WithRand(r world.IntN) Option { return func(o *options) { o.rng = r } }

// WithIDReader sets the entropy used for session ids.
func WithIDReader(r io.Reader) Option { return func(o *options) { o.idReader = r } }

type WsServer struct {
	registry *Registry
	router   *Router
	auth     CredentialVerifier
	spaces   SpaceLookup
	upgrader websocket.Upgrader
	opts     options

	randMu sync.Mutex // guards opts.rng and opts.idReader
}

func NewWsServer(reg *Registry, auth CredentialVerifier, spaces SpaceLookup, opts ...Option) *WsServer {
	o := options{
		joinTimeout: 5 * time.Second,
		readLimit:   4096,
		sendBuffer:  256,
		msgRate:     rate.Inf,
		rng:         mrand.New(mrand.NewPCG(mrand.Uint64(), mrand.Uint64())),
		idReader:    rand.Reader,
	}
	for _, opt := range opts {
		opt(&o)
	}

	srv := &WsServer{
		registry: reg,
		router:   NewRouter(),
		auth:     auth,
		spaces:   spaces,
		opts:     o,
	}
	srv.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     srv.checkOrigin,
	}
	srv.registerHandlers() // ← all WS message types configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry‑point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	rawConn, err := s.upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.accept", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(s.opts.readLimit)

	conn := newClientConn(rawConn, s.opts.sendBuffer)
	sess, err := s.newSession(conn)
	if err != nil {
		zap.L().Error("ws.session_id", zap.Error(err))
		_ = conn.Close()
		return
	}
	zap.L().Debug("ws.connected",
		zap.String("session", sess.id),
		zap.String("remote", rawConn.RemoteAddr().String()))

	go conn.writePump()
	go s.reader(sess, conn)
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *WsServer) registerHandlers() {
	// 🔹 join ----------------------------------------------------------------
	Register(s.router, TypeJoin,
		func(ctx context.Context, sess *Session, req JoinRequest) error {
			return sess.handleJoin(ctx, req)
		},
	)
	// 🔹 move ----------------------------------------------------------------
	Register(s.router, TypeMove,
		func(ctx context.Context, sess *Session, req MoveRequest) error {
			return sess.handleMove(ctx, req)
		},
	)
}

func (s *WsServer) newSession(conn Conn) (*Session, error) {
	s.randMu.Lock()
	id, err := uuid.NewRandomFromReader(s.opts.idReader)
	s.randMu.Unlock()
	if err != nil {
		return nil, err
	}
	return &Session{
		id:      id.String(),
		conn:    conn,
		srv:     s,
		limiter: rate.NewLimiter(s.opts.msgRate, s.opts.msgBurst),
	}, nil
}

func (s *WsServer) spawn(b world.Bounds) world.Position {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return world.Spawn(s.opts.rng, b)
}

// process handles one inbound frame and reports whether the connection stays open.
func (s *WsServer) process(sess *Session, data []byte) bool {
	if !sess.limiter.Allow() {
		zap.L().Debug("ws.rate_limited", zap.String("session", sess.id))
		return true
	}
	env, err := parse(data)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.joinTimeout)
		err = s.router.dispatch(ctx, sess, env)
		cancel()
	}
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrLookupFailed):
		zap.L().Error("ws.join_lookup", zap.String("session", sess.id), zap.Error(err))
		return false
	case isFatal(err):
		zap.L().Info("ws.rejected", zap.String("session", sess.id), zap.Error(err))
		return false
	case errors.Is(err, ErrMalformed), errors.Is(err, ErrUnknownMessage):
		zap.L().Debug("ws.ignored", zap.String("session", sess.id), zap.Error(err))
	default:
		zap.L().Warn("ws.ignored", zap.String("session", sess.id), zap.Error(err))
	}
	return true
}

func (s *WsServer) reader(sess *Session, conn *clientConn) {
	defer func() {
		sess.onDisconnect()
		_ = conn.Close()
	}()

	raw := conn.rawConn
	_ = raw.SetReadDeadline(time.Now().Add(pongWait))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("ws.read", zap.String("session", sess.id), zap.Error(err))
			}
			return // client closed or errored
		}
		if !s.process(sess, data) {
			return
		}
	}
}

func (s *WsServer) checkOrigin(r *http.Request) bool {
	if len(s.opts.allowedOrigins) == 0 {
		return true
	}
	return slices.Contains(s.opts.allowedOrigins, r.Header.Get("Origin"))
}
