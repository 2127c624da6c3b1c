package archive

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/car-build-backend/internal/catalog"
	"github.com/DoyleJ11/car-build-backend/internal/engine"
	"github.com/DoyleJ11/car-build-backend/internal/scoring"
)

var ErrUnsupportedURL = errors.New("unsupported archive url")

// GameResult is what gets archived once a room reaches the finished phase.
type GameResult struct {
	Code       string
	Variant    catalog.Variant
	StartedAt  time.Time
	FinishedAt time.Time
	Entries    []scoring.Entry
}

func FromState(s engine.State, finishedAt time.Time) GameResult {
	r := GameResult{
		Code:       s.Code,
		StartedAt:  s.StartedAt,
		FinishedAt: finishedAt,
		Entries:    s.Results,
	}
	if s.Catalog != nil {
		r.Variant = s.Catalog.Variant
	}
	return r
}

// Sink stores finished games. Live room state is never archived.
type Sink interface {
	Record(ctx context.Context, r GameResult) error
	Close() error
}

type Nop struct{}

func (Nop) Record(context.Context, GameResult) error { return nil }
func (Nop) Close() error                             { return nil }

// Open picks a sink by URL scheme. An empty URL disables archiving.
func Open(ctx context.Context, rawURL string, log *zap.Logger) (Sink, error) {
	if rawURL == "" {
		return Nop{}, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}

	switch u.Scheme {
	case "postgres", "postgresql":
		pg, err := OpenPostgres(ctx, rawURL, log)
		if err != nil {
			return nil, err
		}
		return pg, nil
	case "redis", "rediss":
		rd, err := OpenRedis(ctx, rawURL, log)
		if err != nil {
			return nil, err
		}
		return rd, nil
	default:
		return nil, fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, u.Scheme)
	}
}

// Recorder adapts a Sink to the room finish hook. Writes run with their own
// timeout and failures are only logged.
func Recorder(sink Sink, timeout time.Duration, log *zap.Logger) func(engine.State) {
	return func(s engine.State) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		res := FromState(s, time.Now())
		if err := sink.Record(ctx, res); err != nil {
			log.Warn("archive game failed", zap.String("code", res.Code), zap.Error(err))
			return
		}
		log.Debug("game archived", zap.String("code", res.Code), zap.Int("teams", len(res.Entries)))
	}
}
