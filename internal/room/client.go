package room

import (
	"context"
	"time"

	"github.com/DoyleJ11/car-build-backend/internal/engine"
	"github.com/DoyleJ11/car-build-backend/internal/types"
)

func (r *Room) Code() string { return r.code }

// Inbox exposes the actor inbox so tests or the ws layer can send messages.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Done is closed once the room has stopped.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

func (r *Room) LastActive() time.Time { return time.Unix(0, r.lastActive.Load()) }

func (r *Room) post(ctx context.Context, m Msg) error {
	select {
	case r.inbox <- m:
		return nil
	case <-r.ctx.Done():
		return engine.ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) Attach(ctx context.Context, connID string, outbox chan<- types.ServerMessage) error {
	return r.post(ctx, Attach{ConnID: connID, Outbox: outbox})
}

// Do runs cmd for connID and waits for the outcome. Rejections are also sent
// to outbox.
func (r *Room) Do(ctx context.Context, connID string, outbox chan<- types.ServerMessage, cmd engine.Command) error {
	cmd.ConnID = connID
	reply := make(chan error, 1)
	if err := r.post(ctx, FromClient{ConnID: connID, Outbox: outbox, Cmd: cmd, Reply: reply}); err != nil {
		return err
	}

	select {
	case err := <-reply:
		return err
	case <-r.ctx.Done():
		// the room may have replied just before stopping
		select {
		case err := <-reply:
			return err
		default:
			return engine.ErrRoomClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := r.post(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-r.ctx.Done():
		return View{}, engine.ErrRoomClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

// Close asks the room to stop after broadcasting notice. It never blocks; a
// room with a full inbox is cancelled without the notice.
func (r *Room) Close(notice *types.ServerMessage) {
	select {
	case r.inbox <- Shutdown{Notice: notice}:
	default:
		r.cancel()
	}
}
