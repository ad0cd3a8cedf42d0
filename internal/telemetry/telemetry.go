// Package telemetry publishes decode-event counters and live Matcher
// thread-set sizes to InfluxDB, and broadcasts each decode event over
// a Redis pub/sub channel so multiple irrecvd processes (one per
// receiver device, say) can fan their decode streams into one
// subscriber — the same role the teacher's internal/storage package
// gives Redis as a cross-process bus, generalized here from ad hoc
// context storage to a dedicated event channel, and a use of
// influxdb-client-go/v2 the teacher's own go.mod carries without ever
// wiring it to a metric.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/redis/go-redis/v9"
)

// DecodeEvent is one successful Matcher decode, ready to publish.
// SessionID is the compiled protocol's uuid, minted per compile and
// shared by every decode event it produces, so a subscriber can
// correlate this event with a specific compile rather than just a
// protocol name (which a cache entry can outlive across recompiles).
type DecodeEvent struct {
	SessionID string
	Receiver  string
	Protocol  string
	EventName string
	Bindings  map[string]int64
	Timestamp time.Time
}

// Config configures the telemetry sinks. Any field left zero disables
// that sink (Reporter.Report/PublishDecodeEvent become no-ops for it).
type Config struct {
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	RedisAddr    string
	RedisChannel string
}

// Reporter publishes telemetry to InfluxDB and Redis.
type Reporter struct {
	influx   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	bucket   string

	redis   *redis.Client
	channel string
}

// New builds a Reporter from cfg. Sinks whose settings are empty are
// left nil and their Report methods become no-ops, so a daemon can run
// with neither configured during development.
func New(cfg Config) (*Reporter, error) {
	r := &Reporter{channel: cfg.RedisChannel}

	if cfg.InfluxURL != "" {
		r.influx = influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)
		r.writeAPI = r.influx.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket)
		r.bucket = cfg.InfluxBucket
	}

	if cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("telemetry: connect to redis: %w", err)
		}
	}

	return r, nil
}

// Close releases the underlying clients.
func (r *Reporter) Close() error {
	if r.influx != nil {
		r.influx.Close()
	}
	if r.redis != nil {
		return r.redis.Close()
	}
	return nil
}

// RecordDecode writes a decode-event counter point to InfluxDB and
// publishes the event on the configured Redis channel.
func (r *Reporter) RecordDecode(ctx context.Context, ev DecodeEvent) error {
	if r.writeAPI != nil {
		fields := map[string]interface{}{"count": int64(1)}
		for k, v := range ev.Bindings {
			fields["binding_"+k] = v
		}
		p := write.NewPoint(
			"decode_event",
			map[string]string{"receiver": ev.Receiver, "protocol": ev.Protocol, "event": ev.EventName, "session": ev.SessionID},
			fields,
			ev.Timestamp,
		)
		if err := r.writeAPI.WritePoint(ctx, p); err != nil {
			return fmt.Errorf("telemetry: influx write: %w", err)
		}
	}

	if r.redis != nil {
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("telemetry: marshal decode event: %w", err)
		}
		if err := r.redis.Publish(ctx, r.channel, data).Err(); err != nil {
			return fmt.Errorf("telemetry: redis publish: %w", err)
		}
	}

	return nil
}

// RecordThreadSetSize writes the current live Matcher thread-set size
// to InfluxDB — the quantity the streaming Matcher's thread-count
// invariant bounds.
func (r *Reporter) RecordThreadSetSize(ctx context.Context, receiver, protocol string, size int) error {
	if r.writeAPI == nil {
		return nil
	}
	p := write.NewPoint(
		"thread_set_size",
		map[string]string{"receiver": receiver, "protocol": protocol},
		map[string]interface{}{"size": int64(size)},
		time.Now(),
	)
	if err := r.writeAPI.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("telemetry: influx write: %w", err)
	}
	return nil
}

// Subscribe returns a channel of decode events published on the Redis
// channel, for a process that wants to fan in another process's
// decode stream.
func (r *Reporter) Subscribe(ctx context.Context) (<-chan DecodeEvent, error) {
	if r.redis == nil {
		return nil, fmt.Errorf("telemetry: redis not configured")
	}
	sub := r.redis.Subscribe(ctx, r.channel)
	out := make(chan DecodeEvent)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev DecodeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
