package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/oakwoodlegal/intake-agent/pkg/circuitbreaker"
	"github.com/oakwoodlegal/intake-agent/pkg/metrics"
	"github.com/oakwoodlegal/intake-agent/pkg/otel"
	"github.com/oakwoodlegal/intake-agent/pkg/retry"
)

const freeBusyURL = "https://www.googleapis.com/calendar/v3/freeBusy"

// GoogleClient queries the Google Calendar free/busy API with a
// service-account token, caching responses briefly in redis. Calendar
// lookups happen mid-call, so shaving the round trip matters.
type GoogleClient struct {
	tokens   *tokenSource
	http     *http.Client
	cache    *redis.Client
	cacheTTL time.Duration
	breaker  *circuitbreaker.CircuitBreaker
	log      *zap.Logger
}

func NewGoogleClient(serviceAccountJSON string, cache *redis.Client, cacheTTL time.Duration, log *zap.Logger) (*GoogleClient, error) {
	tokens, err := newTokenSource(serviceAccountJSON)
	if err != nil {
		return nil, err
	}
	return &GoogleClient{
		tokens:   tokens,
		http:     &http.Client{Timeout: 15 * time.Second},
		cache:    cache,
		cacheTTL: cacheTTL,
		breaker:  circuitbreaker.New("google_calendar", circuitbreaker.DefaultConfig()),
		log:      log.Named("calendar"),
	}, nil
}

// FreeBusy returns the calendar's busy intervals between min and max,
// normalized to UTC and sorted by start
func (g *GoogleClient) FreeBusy(ctx context.Context, calendarID string, min, max time.Time) ([]BusyInterval, error) {
	if calendarID == "" || calendarID == "primary" {
		return nil, fmt.Errorf("calendar id must be a shared human calendar, not %q", calendarID)
	}

	cacheKey := fmt.Sprintf("freebusy:%s:%d:%d",
		calendarID, min.Truncate(time.Minute).Unix(), max.Truncate(time.Minute).Unix())

	if g.cache != nil {
		if cached, err := g.cache.Get(ctx, cacheKey).Bytes(); err == nil {
			var busy []BusyInterval
			if err := json.Unmarshal(cached, &busy); err == nil {
				return busy, nil
			}
		}
	}

	var busy []BusyInterval
	started := time.Now()
	err := otel.WithServiceSpan(ctx, "google_calendar", "freebusy", func(ctx context.Context) error {
		return g.breaker.Execute(ctx, func() error {
			return retry.Do(ctx, retry.DefaultConfig(), func() error {
				var qErr error
				busy, qErr = g.query(ctx, calendarID, min, max)
				return qErr
			})
		})
	})
	metrics.RecordServiceCall("google_calendar", err == nil, time.Since(started))
	if err != nil {
		return nil, err
	}

	if g.cache != nil && g.cacheTTL > 0 {
		if encoded, err := json.Marshal(busy); err == nil {
			if err := g.cache.Set(ctx, cacheKey, encoded, g.cacheTTL).Err(); err != nil {
				g.log.Warn("Freebusy cache write failed", zap.Error(err))
			}
		}
	}
	return busy, nil
}

func (g *GoogleClient) query(ctx context.Context, calendarID string, min, max time.Time) ([]BusyInterval, error) {
	token, err := g.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]interface{}{
		"timeMin":  min.UTC().Format(time.RFC3339),
		"timeMax":  max.UTC().Format(time.RFC3339),
		"timeZone": "UTC",
		"items":    []map[string]string{{"id": calendarID}},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, freeBusyURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("freebusy request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("freebusy status %d: %s", resp.StatusCode, raw)
	}

	var payload struct {
		Calendars map[string]struct {
			Busy []struct {
				Start time.Time `json:"start"`
				End   time.Time `json:"end"`
			} `json:"busy"`
		} `json:"calendars"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parse freebusy response: %w", err)
	}

	var busy []BusyInterval
	for _, interval := range payload.Calendars[calendarID].Busy {
		busy = append(busy, BusyInterval{
			Start: interval.Start.UTC(),
			End:   interval.End.UTC(),
		})
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })
	return busy, nil
}
