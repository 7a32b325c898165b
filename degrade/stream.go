package degrade

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Stream appends events to a Redis Stream (XADD), the off-process feed for
// repair tooling. The stream is capped approximately at MaxLen entries so an
// unattended outage cannot grow it without bound.
type Stream struct {
	rdb    redis.UniversalClient
	stream string
	maxLen int64

	// OnError, when set, observes XADD failures. Recording stays best-effort
	// either way; the enclosing operation never sees the error.
	OnError func(error)
}

var _ Recorder = (*Stream)(nil)

// NewStream creates a Redis Streams recorder. maxLen <= 0 means uncapped.
func NewStream(client redis.UniversalClient, stream string, maxLen int64) *Stream {
	return &Stream{rdb: client, stream: stream, maxLen: maxLen}
}

func (s *Stream) Record(ctx context.Context, ev Event) {
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"key":       ev.Key,
			"attempted": ev.Attempted,
			"reason":    ev.Reason,
			"at":        strconv.FormatInt(ev.At.UnixNano(), 10),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.rdb.XAdd(ctx, args).Err(); err != nil && s.OnError != nil {
		s.OnError(err)
	}
}
