// Package redis keeps the freshest driver positions in a Redis GEO set, with
// a small metadata hash per driver.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
)

const (
	geoKey       = "drivers_geo"
	metaPrefix   = "driver:meta:"
	writeRetries = 3
	retryDelay   = 200 * time.Millisecond
)

func metaKey(id string) string { return metaPrefix + id }

// commands is the subset of Redis used by the index.
type commands interface {
	GeoAdd(ctx context.Context, key string, loc *goredis.GeoLocation) error
	GeoPos(ctx context.Context, key string, members ...string) ([]*goredis.GeoPos, error)
	HSet(ctx context.Context, key string, values map[string]any) error
	Forget(ctx context.Context, member string) error
}

type clientCommands struct{ c *goredis.Client }

func (r clientCommands) GeoAdd(ctx context.Context, key string, loc *goredis.GeoLocation) error {
	return r.c.GeoAdd(ctx, key, loc).Err()
}

func (r clientCommands) GeoPos(ctx context.Context, key string, members ...string) ([]*goredis.GeoPos, error) {
	return r.c.GeoPos(ctx, key, members...).Result()
}

func (r clientCommands) HSet(ctx context.Context, key string, values map[string]any) error {
	return r.c.HSet(ctx, key, values).Err()
}

func (r clientCommands) Forget(ctx context.Context, member string) error {
	_, err := r.c.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.ZRem(ctx, geoKey, member)
		p.Del(ctx, metaKey(member))
		return nil
	})
	return err
}

type LocationIndex struct {
	client *goredis.Client
	cmd    commands
}

// New connects to Redis and checks the connection.
func New(ctx context.Context, addr, password string, db int) (*LocationIndex, error) {
	c := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &LocationIndex{client: c, cmd: clientCommands{c: c}}, nil
}

// Index stores the sample, retrying transient failures with backoff.
func (r *LocationIndex) Index(ctx context.Context, loc models.DriverLocation) error {
	id := loc.DriverID.String()
	meta := map[string]any{
		"city":         loc.City,
		"availability": loc.Availability,
		"rating":       strconv.FormatFloat(loc.Rating, 'f', 2, 64),
		"updated":      loc.Timestamp.Format(time.RFC3339),
	}

	delay := retryDelay
	var err error
	for i := range writeRetries {
		err = r.cmd.GeoAdd(ctx, geoKey, &goredis.GeoLocation{Name: id, Longitude: loc.Point.Lng, Latitude: loc.Point.Lat})
		if err == nil {
			err = r.cmd.HSet(ctx, metaKey(id), meta)
		}
		if err == nil || i == writeRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	if err != nil {
		return fmt.Errorf("index driver %s: %w", id, err)
	}
	return nil
}

// Positions returns the indexed position of every known driver among ids.
func (r *LocationIndex) Positions(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.GeoPoint, error) {
	out := make(map[uuid.UUID]models.GeoPoint, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	members := make([]string, 0, len(ids))
	for _, id := range ids {
		members = append(members, id.String())
	}
	positions, err := r.cmd.GeoPos(ctx, geoKey, members...)
	if err != nil {
		return nil, fmt.Errorf("geopos: %w", err)
	}
	for i, pos := range positions {
		if pos == nil || i >= len(ids) {
			continue
		}
		out[ids[i]] = models.GeoPoint{Lat: pos.Latitude, Lng: pos.Longitude}
	}
	return out, nil
}

func (r *LocationIndex) Remove(ctx context.Context, driverID uuid.UUID) error {
	if err := r.cmd.Forget(ctx, driverID.String()); err != nil {
		return fmt.Errorf("remove driver %s: %w", driverID, err)
	}
	return nil
}

func (r *LocationIndex) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *LocationIndex) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
