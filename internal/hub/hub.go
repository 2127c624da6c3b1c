package hub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/car-build-backend/internal/catalog"
	"github.com/DoyleJ11/car-build-backend/internal/engine"
	"github.com/DoyleJ11/car-build-backend/internal/room"
	"github.com/DoyleJ11/car-build-backend/internal/types"
)

var ErrCodeSpaceExhausted = errors.New("could not allocate a free room code")
var ErrHubClosed = errors.New("hub closed")

const (
	maxCodeAttempts     = 32
	DefaultReapInterval = time.Minute
	DefaultTombstoneTTL = time.Hour
)

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	HostID string
	Reply  chan Created
}

type Created struct {
	Room *room.Room
	Err  error
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

// RemoveRoom forgets a room and keeps its code reserved for a while so a
// stale client cannot land in a new room with the same code.
type RemoveRoom struct {
	Code string
}

type CountRooms struct {
	Reply chan int
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (CountRooms) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Config struct {
	Catalog  *catalog.Catalog
	Logger   *zap.Logger
	OnFinish func(final engine.State)
	// SessionTimeout closes rooms idle for longer. 0 disables reaping.
	SessionTimeout time.Duration
	ReapInterval   time.Duration
	TombstoneTTL   time.Duration
	// NewCode defaults to GenerateCode.
	NewCode func() (string, error)
}

type Hub struct {
	inbox      chan HubMsg
	rooms      map[string]*room.Room
	tombstones map[string]time.Time
	cfg        Config
	log        *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewHub(parent context.Context, cfg Config) *Hub {
	ctx, cancel := context.WithCancel(parent)

	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = DefaultReapInterval
	}
	if cfg.TombstoneTTL <= 0 {
		cfg.TombstoneTTL = DefaultTombstoneTTL
	}
	if cfg.NewCode == nil {
		cfg.NewCode = GenerateCode
	}

	h := &Hub{
		inbox:      make(chan HubMsg, 64),
		rooms:      make(map[string]*room.Room),
		tombstones: make(map[string]time.Time),
		cfg:        cfg,
		log:        cfg.Logger.Named("hub"),
		ctx:        ctx,
		cancel:     cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Catalog() *catalog.Catalog { return h.cfg.Catalog }

func (h *Hub) loop() {
	ticker := time.NewTicker(h.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return

		case now := <-ticker.C:
			h.reap(now)

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				rm, err := h.create(msg.HostID)
				msg.Reply <- Created{Room: rm, Err: err}

			case GetRoom:
				msg.Reply <- h.rooms[msg.Code] // May be nil

			case RemoveRoom:
				h.forget(msg.Code, time.Now())

			case CountRooms:
				msg.Reply <- len(h.rooms)

			case ShutdownHub:
				h.closeAll()
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) create(hostID string) (*room.Room, error) {
	for range maxCodeAttempts {
		code, err := h.cfg.NewCode()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		if h.taken(code) {
			h.log.Debug("collision on code, regenerating", zap.String("code", code))
			continue
		}

		rm := room.New(h.ctx, engine.NewState(code, h.cfg.Catalog, hostID), room.Options{
			Logger:   h.cfg.Logger,
			OnClose:  h.onRoomClosed,
			OnFinish: h.cfg.OnFinish,
		})
		h.rooms[code] = rm
		h.log.Info("room created", zap.String("code", code), zap.Int("rooms", len(h.rooms)))
		return rm, nil
	}
	return nil, ErrCodeSpaceExhausted
}

func (h *Hub) taken(code string) bool {
	if _, ok := h.rooms[code]; ok {
		return true
	}
	_, ok := h.tombstones[code]
	return ok
}

func (h *Hub) forget(code string, now time.Time) {
	if _, ok := h.rooms[code]; !ok {
		return
	}
	delete(h.rooms, code)
	h.tombstones[code] = now
	h.log.Info("room removed", zap.String("code", code), zap.Int("rooms", len(h.rooms)))
}

// onRoomClosed is called from the room goroutine, so it must not wait on the
// hub for long.
func (h *Hub) onRoomClosed(code string) {
	select {
	case h.inbox <- RemoveRoom{Code: code}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) reap(now time.Time) {
	if h.cfg.SessionTimeout > 0 {
		for code, rm := range h.rooms {
			if now.Sub(rm.LastActive()) < h.cfg.SessionTimeout {
				continue
			}
			rm.Close(&types.ServerMessage{Type: types.OutRoomClosed, Code: code, Reason: "Idle"})
			h.forget(code, now)
			h.log.Info("reaped idle room", zap.String("code", code))
		}
	}

	for code, at := range h.tombstones {
		if now.Sub(at) >= h.cfg.TombstoneTTL {
			delete(h.tombstones, code)
		}
	}
}

func (h *Hub) closeAll() {
	for code, rm := range h.rooms {
		rm.Close(&types.ServerMessage{Type: types.OutRoomClosed, Code: code, Reason: "ServerShutdown"})
	}
	clear(h.rooms)
}

func (h *Hub) post(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-h.ctx.Done():
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Create allocates a fresh code and a room hosted by hostID.
func (h *Hub) Create(ctx context.Context, hostID string) (*room.Room, error) {
	reply := make(chan Created, 1)
	if err := h.post(ctx, CreateRoom{HostID: hostID, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case c := <-reply:
		return c.Room, c.Err
	case <-h.ctx.Done():
		return nil, ErrHubClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get returns the live room for code or engine.ErrInvalidCode.
func (h *Hub) Get(ctx context.Context, code string) (*room.Room, error) {
	reply := make(chan *room.Room, 1)
	if err := h.post(ctx, GetRoom{Code: code, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case rm := <-reply:
		if rm == nil {
			return nil, fmt.Errorf("%w: no room %s", engine.ErrInvalidCode, code)
		}
		return rm, nil
	case <-h.ctx.Done():
		return nil, ErrHubClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) Count(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	if err := h.post(ctx, CountRooms{Reply: reply}); err != nil {
		return 0, err
	}
	select {
	case n := <-reply:
		return n, nil
	case <-h.ctx.Done():
		return 0, ErrHubClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (h *Hub) Remove(ctx context.Context, code string) error {
	return h.post(ctx, RemoveRoom{Code: code})
}

func (h *Hub) Shutdown() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.ctx.Done():
	}
}

// Done is closed once the hub has stopped.
func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }
