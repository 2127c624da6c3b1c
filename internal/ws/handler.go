package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/DoyleJ11/car-build-backend/internal/engine"
	"github.com/DoyleJ11/car-build-backend/internal/hub"
	"github.com/DoyleJ11/car-build-backend/internal/imagegen"
	"github.com/DoyleJ11/car-build-backend/internal/types"
)

const (
	outboxSize   = 32
	writeTimeout = 3 * time.Second
	leaveTimeout = 2 * time.Second
)

var ErrNotFinished = errors.New("game not finished")
var ErrNoBuild = errors.New("only teams have a build to draw")

type Options struct {
	// ReadTimeout drops connections silent for longer. 0 waits forever.
	ReadTimeout    time.Duration
	ImageTimeout   time.Duration
	OriginPatterns []string
}

type Handler struct {
	hub      *hub.Hub
	registry *hub.Registry
	images   imagegen.Generator
	log      *zap.Logger
	opts     Options
}

func NewHandler(h *hub.Hub, reg *hub.Registry, images imagegen.Generator, log *zap.Logger, opts Options) *Handler {
	if opts.ImageTimeout <= 0 {
		opts.ImageTimeout = imagegen.DefaultTimeout
	}
	return &Handler{hub: h, registry: reg, images: images, log: log.Named("ws"), opts: opts}
}

// conn is one websocket client. Everything it receives goes through out.
type conn struct {
	id  string
	out chan types.ServerMessage
	log *zap.Logger
}

func (c *conn) reply(ctx context.Context, m types.ServerMessage) {
	select {
	case c.out <- m:
	case <-ctx.Done():
	}
}

func (c *conn) fail(ctx context.Context, kind string, err error) {
	c.reply(ctx, types.ErrorMessage(kind, reason(err), err))
}

func reason(err error) string {
	switch {
	case errors.Is(err, types.ErrBadJSON), errors.Is(err, types.ErrUnknownType), errors.Is(err, types.ErrMissingOption):
		return "BadRequest"
	default:
		return engine.Reason(err)
	}
}

func (hd *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: hd.opts.OriginPatterns,
	})
	if err != nil {
		hd.log.Debug("accept failed", zap.Error(err))
		return
	}
	defer ws.Close(websocket.StatusNormalClosure, "bye")

	c := &conn{id: uuid.NewString(), out: make(chan types.ServerMessage, outboxSize)}
	c.log = hd.log.With(zap.String("conn", c.id))
	c.log.Debug("connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Disconnect counts as leaving whatever room the connection is in.
	defer hd.leave(c)

	// Writer goroutine
	go hd.writeLoop(ctx, cancel, ws, c)

	// Reader loop
	for {
		readCtx, readCancel := ctx, context.CancelFunc(func() {})
		if hd.opts.ReadTimeout > 0 {
			readCtx, readCancel = context.WithTimeout(ctx, hd.opts.ReadTimeout)
		}
		_, data, err := ws.Read(readCtx)
		readCancel()
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				c.log.Debug("closed by client")
			default:
				c.log.Debug("read failed", zap.Error(err))
			}
			return
		}

		req, err := types.Parse(data)
		if err != nil {
			c.fail(ctx, types.OutError, err)
			continue
		}
		hd.dispatch(ctx, c, req)
	}
}

func (hd *Handler) writeLoop(ctx context.Context, cancel context.CancelFunc, ws *websocket.Conn, c *conn) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-c.out:
			switch m.Type {
			case types.OutHostLeft, types.OutRoomClosed:
				// the room is gone; the connection may create or join another
				hd.registry.UnbindIf(c.id, m.Code)
			}

			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, ws, m)
			wcancel()
			if err != nil {
				c.log.Debug("write failed", zap.Error(err))
				return
			}
		}
	}
}

func (hd *Handler) dispatch(ctx context.Context, c *conn, req types.Request) {
	switch req := req.(type) {
	case types.CreateRoom:
		hd.createRoom(ctx, c)

	case types.Join:
		hd.join(ctx, c, req)

	case types.Start:
		hd.command(ctx, c, req.Code, engine.Command{Type: engine.CmdStart})

	case types.SubmitAnswer:
		hd.command(ctx, c, req.Code, engine.Command{Type: engine.CmdSubmitAnswer, OptionIndex: req.OptionIndex})

	case types.ForceAdvance:
		hd.command(ctx, c, req.Code, engine.Command{Type: engine.CmdForceAdvance})

	case types.LeaveRoom:
		hd.leave(c)

	case types.GenerateImage:
		go hd.generateImage(ctx, c, req.Code)
	}
}

func (hd *Handler) createRoom(ctx context.Context, c *conn) {
	if _, ok := hd.registry.Lookup(c.id); ok {
		c.fail(ctx, types.OutError, engine.ErrAlreadyJoined)
		return
	}

	rm, err := hd.hub.Create(ctx, c.id)
	if err != nil {
		c.log.Error("create room failed", zap.Error(err))
		c.fail(ctx, types.OutError, err)
		return
	}

	hd.registry.Bind(c.id, hub.Binding{Code: rm.Code(), Role: engine.RoleHost})
	if err := rm.Attach(ctx, c.id, c.out); err != nil {
		hd.registry.UnbindIf(c.id, rm.Code())
		c.fail(ctx, types.OutError, err)
	}
}

func (hd *Handler) join(ctx context.Context, c *conn, req types.Join) {
	if _, ok := hd.registry.Lookup(c.id); ok {
		c.fail(ctx, types.OutJoinRejected, engine.ErrAlreadyJoined)
		return
	}

	rm, err := hd.hub.Get(ctx, req.Code)
	if err != nil {
		c.fail(ctx, types.OutJoinRejected, err)
		return
	}

	// bound first so a host-left racing the join still unbinds us
	hd.registry.Bind(c.id, hub.Binding{Code: req.Code, Role: engine.RoleTeam})
	err = rm.Do(ctx, c.id, c.out, engine.Command{Type: engine.CmdJoin, TeamName: req.TeamName})
	if err != nil {
		hd.registry.UnbindIf(c.id, req.Code)
		if errors.Is(err, engine.ErrRoomClosed) {
			// the room stopped before it could answer
			c.fail(ctx, types.OutJoinRejected, engine.ErrInvalidCode)
		}
	}
}

// command forwards a host or team action. The room reports engine errors to
// the caller itself.
func (hd *Handler) command(ctx context.Context, c *conn, code string, cmd engine.Command) {
	rm, err := hd.hub.Get(ctx, code)
	if err != nil {
		c.fail(ctx, types.OutError, err)
		return
	}
	if err := rm.Do(ctx, c.id, c.out, cmd); errors.Is(err, engine.ErrRoomClosed) {
		c.fail(ctx, types.OutError, err)
	}
}

func (hd *Handler) leave(c *conn) {
	b, ok := hd.registry.Unbind(c.id)
	if !ok {
		return
	}

	// the request context may already be gone on disconnect
	ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancel()

	rm, err := hd.hub.Get(ctx, b.Code)
	if err != nil {
		return
	}
	if err := rm.Do(ctx, c.id, nil, engine.Command{Type: engine.CmdLeave}); err != nil && !errors.Is(err, engine.ErrRoomClosed) {
		c.log.Warn("leave failed", zap.String("code", b.Code), zap.Error(err))
	}
	c.log.Debug("left room", zap.String("code", b.Code), zap.String("role", string(b.Role)))
}

// generateImage runs outside the room. Whatever happens, only the requester
// hears about it.
func (hd *Handler) generateImage(ctx context.Context, c *conn, code string) {
	url, err := hd.drawBuild(ctx, c, code)
	if err != nil {
		c.log.Debug("image generation failed", zap.String("code", code), zap.Error(err))
		c.reply(ctx, types.ServerMessage{Type: types.OutImageError, Code: code, Error: err.Error()})
		return
	}
	c.reply(ctx, types.ServerMessage{Type: types.OutImageReady, Code: code, ImageURL: url})
}

func (hd *Handler) drawBuild(ctx context.Context, c *conn, code string) (string, error) {
	if hd.images == nil {
		return "", imagegen.ErrDisabled
	}

	rm, err := hd.hub.Get(ctx, code)
	if err != nil {
		return "", err
	}
	view, err := rm.View(ctx)
	if err != nil {
		return "", err
	}
	if view.State.Phase != engine.PhaseFinished {
		return "", ErrNotFinished
	}

	for _, e := range view.State.Results {
		if e.TeamID != c.id {
			continue
		}
		prompt, err := imagegen.Prompt(view.State.Catalog, e.Choices)
		if err != nil {
			return "", err
		}
		ictx, cancel := context.WithTimeout(ctx, hd.opts.ImageTimeout)
		defer cancel()
		return hd.images.Generate(ictx, prompt)
	}
	return "", ErrNoBuild
}
