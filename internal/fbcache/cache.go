// Package fbcache keeps provider free/busy bitmaps in Redis for a short time so
// that repeated availability requests for the same panel do not hit the
// calendar provider again.
package fbcache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"schedcal/internal/availability"
	"schedcal/internal/models"

	"github.com/redis/go-redis/v9"
)

// Fetcher is the provider the cache sits in front of.
type Fetcher interface {
	FetchFreeBusy(ctx context.Context, q models.FreeBusyQuery) (availability.FreeBusy, error)
}

// Cache is a read-through free/busy cache. Redis failures are logged and the
// request falls through to the provider.
type Cache struct {
	rdb    redis.UniversalClient
	next   Fetcher
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// New wraps next with a cache stored in rdb.
func New(rdb redis.UniversalClient, next Fetcher, ttl time.Duration, prefix string, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "fb"
	}
	return &Cache{rdb: rdb, next: next, ttl: ttl, prefix: prefix, logger: logger}
}

// FetchFreeBusy serves cached bitmaps and fetches participants with any
// missing day from the provider.
func (c *Cache) FetchFreeBusy(ctx context.Context, q models.FreeBusyQuery) (availability.FreeBusy, error) {
	dates := availability.Dates(q.StartDate, q.EndDate)
	fb := make(availability.FreeBusy, len(q.Participants))

	var keys []string
	for _, p := range q.Participants {
		for _, d := range dates {
			keys = append(keys, c.key(q, p, d))
		}
	}

	var missing []string
	vals, err := c.mget(ctx, keys)
	if err != nil {
		c.logger.Warn("Free/busy cache read failed", "error", err)
		missing = q.Participants
	} else {
		i := 0
		for _, p := range q.Participants {
			days := make(map[string]string, len(dates))
			complete := true
			for _, d := range dates {
				s, ok := vals[i].(string)
				i++
				if !ok {
					complete = false
					continue
				}
				days[d.Format(availability.DateLayout)] = s
			}
			if complete {
				fb[p] = days
			} else {
				missing = append(missing, p)
			}
		}
	}
	c.logger.Debug("Free/busy cache lookup", "hits", len(fb), "misses", len(missing))
	if len(missing) == 0 {
		return fb, nil
	}

	sub := q
	sub.Participants = missing
	fetched, err := c.next.FetchFreeBusy(ctx, sub)
	if err != nil {
		return nil, err
	}

	pipe := c.rdb.Pipeline()
	for p, days := range fetched {
		fb[p] = days
		for date, bitmap := range days {
			d, err := availability.ParseDate(date)
			if err != nil {
				continue
			}
			pipe.Set(ctx, c.key(q, p, d), bitmap, c.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("Free/busy cache write failed", "error", err)
	}
	return fb, nil
}

func (c *Cache) mget(ctx context.Context, keys []string) ([]any, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	return c.rdb.MGet(ctx, keys...).Result()
}

func (c *Cache) key(q models.FreeBusyQuery, participant string, date time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%s-%s:%d:%s",
		c.prefix, strings.ToLower(participant), date.Format(availability.DateLayout),
		q.StartTime, q.EndTime, q.GridMinutes, q.TimeZone)
}
