package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	highScoresKey = "buildgame:highscores"
	gameKeyPrefix = "buildgame:game:"
	gamesIndexKey = "buildgame:games"
)

func gameKey(code string, finishedUnix int64) string {
	return fmt.Sprintf("%s%s:%d", gameKeyPrefix, code, finishedUnix)
}

// highScoreMember is unique per team per game so repeated names do not
// overwrite each other in the sorted set.
func highScoreMember(code, team string, finishedUnix int64) string {
	return fmt.Sprintf("%s|%d|%s", code, finishedUnix, team)
}

type Redis struct {
	client *redis.Client
	log    *zap.Logger
}

func OpenRedis(ctx context.Context, rawURL string, log *zap.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	log.Info("archiving finished games to redis", zap.String("addr", opts.Addr))
	return &Redis{client: client, log: log}, nil
}

// Record stores the leaderboard as JSON and adds every team to the global
// high score set in one transaction.
func (r *Redis) Record(ctx context.Context, res GameResult) error {
	finished := res.FinishedAt.Unix()
	payload, err := json.Marshal(res.Entries)
	if err != nil {
		return fmt.Errorf("encode leaderboard: %w", err)
	}

	key := gameKey(res.Code, finished)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"code", res.Code,
			"variant", string(res.Variant),
			"started_at", res.StartedAt.Unix(),
			"finished_at", finished,
			"leaderboard", payload,
		)
		pipe.ZAdd(ctx, gamesIndexKey, redis.Z{Score: float64(finished), Member: key})
		for _, e := range res.Entries {
			pipe.ZAdd(ctx, highScoresKey, redis.Z{
				Score:  float64(e.Points),
				Member: highScoreMember(res.Code, e.Name, finished),
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store game %s: %w", res.Code, err)
	}
	return nil
}

func (r *Redis) Close() error { return r.client.Close() }
