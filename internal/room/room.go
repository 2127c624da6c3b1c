package room

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/car-build-backend/internal/engine"
	"github.com/DoyleJ11/car-build-backend/internal/types"
)

type Msg interface{ isRoomMsg() }

// Attach registers an outbox for a connection that is already a member,
// normally the host right after the room is created.
type Attach struct {
	ConnID string
	Outbox chan<- types.ServerMessage
}

func (Attach) isRoomMsg() {}

type FromClient struct {
	ConnID string
	Outbox chan<- types.ServerMessage // registered on a successful join
	Cmd    engine.Command
	Reply  chan error
}

func (FromClient) isRoomMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

// Shutdown stops the room. Notice, if set, is broadcast first.
type Shutdown struct {
	Notice *types.ServerMessage
}

func (Shutdown) isRoomMsg() {}

// View is a read-only copy of the room. engine.Apply never mutates a stored
// state, so State can be read outside the actor.
type View struct {
	Version    int
	NumClients int
	State      engine.State
}

type Options struct {
	Logger *zap.Logger
	// OnClose runs inside the actor once the host has left.
	OnClose func(code string)
	// OnFinish runs in its own goroutine with the final state.
	OnFinish func(final engine.State)
}

type Room struct {
	code       string
	inbox      chan Msg
	state      engine.State
	version    int
	clients    map[string]chan<- types.ServerMessage
	ctx        context.Context
	cancel     context.CancelFunc
	log        *zap.Logger
	onClose    func(string)
	onFinish   func(engine.State)
	lastActive atomic.Int64
}

func New(parent context.Context, initial engine.State, opts Options) *Room {
	ctx, cancel := context.WithCancel(parent)

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := &Room{
		code:     initial.Code,
		inbox:    make(chan Msg, 64),
		state:    initial,
		clients:  make(map[string]chan<- types.ServerMessage),
		ctx:      ctx,
		cancel:   cancel,
		log:      log.Named("room").With(zap.String("code", initial.Code)),
		onClose:  opts.OnClose,
		onFinish: opts.OnFinish,
	}
	r.touch()

	go r.loop()
	return r
}

func (r *Room) loop() {
	defer r.cancel()
	for {
		select {
		case <-r.ctx.Done():
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Attach:
				r.touch()
				r.clients[msg.ConnID] = msg.Outbox
				if msg.ConnID == r.state.HostID {
					pub := r.state.Catalog.Public()
					r.send(msg.ConnID, types.ServerMessage{
						Type:    types.OutRoomCreated,
						Version: r.version,
						Code:    r.code,
						Catalog: &pub,
					})
				}

			case FromClient:
				r.touch()
				if msg.Cmd.At.IsZero() {
					msg.Cmd.At = time.Now()
				}

				events, next, err := engine.Apply(r.state, msg.Cmd)
				if err != nil {
					r.reject(msg, err)
					msg.Reply <- err
					break
				}

				if msg.Cmd.Type == engine.CmdJoin && msg.Outbox != nil {
					r.clients[msg.ConnID] = msg.Outbox
				}
				r.state = next
				if len(events) > 0 {
					r.version++
				}

				closed := r.dispatch(events, msg.ConnID)
				msg.Reply <- nil
				if closed {
					return
				}

			case GetState:
				msg.Reply <- View{
					Version:    r.version,
					NumClients: len(r.clients),
					State:      r.state,
				}

			case Shutdown:
				if msg.Notice != nil {
					r.broadcast(*msg.Notice)
				}
				clear(r.clients)
				return
			}
		}
	}
}

// dispatch turns engine events into outbound messages. It reports whether the
// room is now closed.
func (r *Room) dispatch(events []engine.Event, from string) bool {
	for _, ev := range events {
		switch ev.Type {
		case engine.EvtTeamJoined:
			pub := r.state.Catalog.Public()
			r.send(ev.TeamID, types.ServerMessage{
				Type:     types.OutJoined,
				Version:  r.version,
				Code:     r.code,
				TeamName: ev.TeamName,
				Catalog:  &pub,
			})

		case engine.EvtRosterUpdated:
			r.broadcastRoster()

		case engine.EvtCategoryAnnounced:
			cat := r.state.Catalog.PublicCategory(ev.Index)
			r.broadcast(types.ServerMessage{
				Type:     types.OutCategory,
				Version:  r.version,
				Code:     r.code,
				Index:    &cat.Index,
				Category: &cat,
			})

		case engine.EvtAnswerRecorded:
			idx := ev.Index
			r.send(ev.TeamID, types.ServerMessage{
				Type:    types.OutAnswerRecorded,
				Version: r.version,
				Code:    r.code,
				Index:   &idx,
			})

		case engine.EvtGameFinished:
			r.broadcast(types.ServerMessage{
				Type:        types.OutLeaderboard,
				Version:     r.version,
				Code:        r.code,
				Leaderboard: r.state.Results,
			})
			r.log.Info("game finished", zap.Int("teams", len(r.state.Results)))
			if r.onFinish != nil {
				go r.onFinish(r.state)
			}

		case engine.EvtTeamLeft:
			delete(r.clients, ev.TeamID)
			r.log.Debug("team left", zap.String("team", ev.TeamName))

		case engine.EvtHostLeft:
			delete(r.clients, from)
			r.broadcast(types.ServerMessage{Type: types.OutHostLeft, Version: r.version, Code: r.code})
			clear(r.clients)
			r.log.Info("host left, room closed")
			if r.onClose != nil {
				r.onClose(r.code)
			}
			return true
		}
	}
	return false
}

func (r *Room) reject(msg FromClient, err error) {
	kind := types.OutError
	if msg.Cmd.Type == engine.CmdJoin {
		kind = types.OutJoinRejected
	}
	r.log.Debug("command rejected",
		zap.String("conn", msg.ConnID),
		zap.String("cmd", string(msg.Cmd.Type)),
		zap.Error(err))

	if msg.Outbox != nil {
		r.deliver(msg.ConnID, msg.Outbox, types.ErrorMessage(kind, engine.Reason(err), err))
	}
}

func (r *Room) broadcastRoster() {
	teams := engine.TeamsInJoinOrder(r.state)
	roster := make([]types.TeamView, len(teams))
	for i, t := range teams {
		roster[i] = types.TeamView{ID: t.ID, Name: t.Name}
	}
	for id, ch := range r.clients {
		isHost := id == r.state.HostID
		r.deliver(id, ch, types.ServerMessage{
			Type:    types.OutRosterUpdated,
			Version: r.version,
			Code:    r.code,
			Teams:   roster,
			IsHost:  &isHost,
		})
	}
}

func (r *Room) broadcast(m types.ServerMessage) {
	for id, ch := range r.clients {
		r.deliver(id, ch, m)
	}
}

func (r *Room) send(id string, m types.ServerMessage) {
	if ch, ok := r.clients[id]; ok {
		r.deliver(id, ch, m)
	}
}

// deliver never blocks the actor. Outboxes belong to the connection and are
// never closed here.
func (r *Room) deliver(id string, ch chan<- types.ServerMessage, m types.ServerMessage) {
	select {
	case ch <- m:
	default:
		r.log.Warn("outbox full, dropping message",
			zap.String("conn", id),
			zap.String("type", m.Type))
	}
}

func (r *Room) touch() { r.lastActive.Store(time.Now().UnixNano()) }
