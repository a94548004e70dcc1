// Package yasno fetches planned-outage schedules from the public YASNO
// blackout-service API.
package yasno

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/DKasatik/Power-Monitor-Bot/internal/schedule"
)

const (
	defaultBaseURL  = "https://app.yasno.ua"
	defaultCacheTTL = 5 * time.Minute

	// slotDefinite is the only slot type that counts as a planned outage.
	slotDefinite = "Definite"
)

// ErrNoSchedule is returned when the feed carries no schedule for the
// requested date.
var ErrNoSchedule = errors.New("yasno: no schedule for date")

type slot struct {
	Start int    `json:"start"` // minutes from midnight
	End   int    `json:"end"`
	Type  string `json:"type"`
}

type daySchedule struct {
	Date  string `json:"date"`
	Slots []slot `json:"slots"`
}

type groupSchedule struct {
	Today    *daySchedule `json:"today"`
	Tomorrow *daySchedule `json:"tomorrow"`
}

// Client reads the planned-outages feed for one region/DSO/group.
type Client struct {
	baseURL  string
	region   string
	dso      string
	group    string
	client   *http.Client
	cacheTTL time.Duration
	now      func() time.Time

	mu        sync.Mutex
	cached    map[string]groupSchedule
	fetchedAt time.Time
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithCacheTTL overrides how long a fetched feed is reused. Zero disables
// caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl >= 0 {
			c.cacheTTL = ttl
		}
	}
}

// NewClient constructs a schedule client.
func NewClient(region, dso, group string, opts ...Option) (*Client, error) {
	if region == "" {
		return nil, errors.New("yasno: empty region")
	}
	if dso == "" {
		return nil, errors.New("yasno: empty dso")
	}
	if group == "" {
		return nil, errors.New("yasno: empty group")
	}
	c := &Client{
		baseURL:  defaultBaseURL,
		region:   region,
		dso:      dso,
		group:    group,
		client:   &http.Client{Timeout: 10 * time.Second},
		cacheTTL: defaultCacheTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// IntervalsFor returns the ordered planned-outage intervals for the given
// date. Only the feed's today/tomorrow schedules are available; other dates
// return ErrNoSchedule.
func (c *Client) IntervalsFor(ctx context.Context, date time.Time) ([]schedule.Interval, error) {
	data, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	group, ok := data[c.group]
	if !ok {
		return nil, fmt.Errorf("yasno: group %q not present in feed", c.group)
	}
	for _, day := range []*daySchedule{group.Today, group.Tomorrow} {
		if day == nil {
			continue
		}
		dayStart, err := parseFeedDate(day.Date)
		if err != nil {
			return nil, fmt.Errorf("yasno: bad schedule date %q: %w", day.Date, err)
		}
		if !sameDate(dayStart, date) {
			continue
		}
		return intervalsFromSlots(dayStart, day.Slots), nil
	}
	return nil, ErrNoSchedule
}

// ScheduleText renders the today and tomorrow schedules for display.
func (c *Client) ScheduleText(ctx context.Context) (string, error) {
	data, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}
	group, ok := data[c.group]
	if !ok {
		return "", fmt.Errorf("yasno: group %q not present in feed", c.group)
	}
	var parts []string
	for _, day := range []*daySchedule{group.Today, group.Tomorrow} {
		if day == nil {
			continue
		}
		dayStart, err := parseFeedDate(day.Date)
		if err != nil {
			continue
		}
		parts = append(parts, schedule.FormatIntervals(dayStart, intervalsFromSlots(dayStart, day.Slots)))
	}
	if len(parts) == 0 {
		return "", ErrNoSchedule
	}
	return strings.Join(parts, "\n\n"), nil
}

func (c *Client) fetch(ctx context.Context) (map[string]groupSchedule, error) {
	c.mu.Lock()
	if c.cached != nil && c.cacheTTL > 0 && c.now().Sub(c.fetchedAt) < c.cacheTTL {
		cached := c.cached
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	url := fmt.Sprintf("%s/api/blackout-service/public/shutdowns/regions/%s/dsos/%s/planned-outages",
		c.baseURL, c.region, c.dso)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yasno: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yasno: fetch: unexpected status %d", resp.StatusCode)
	}

	var data map[string]groupSchedule
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("yasno: decode: %w", err)
	}

	c.mu.Lock()
	c.cached = data
	c.fetchedAt = c.now()
	c.mu.Unlock()
	return data, nil
}

func intervalsFromSlots(dayStart time.Time, slots []slot) []schedule.Interval {
	var intervals []schedule.Interval
	for _, s := range slots {
		if s.Type != slotDefinite {
			continue
		}
		if s.End <= s.Start {
			continue
		}
		intervals = append(intervals, schedule.Interval{
			Start: dayStart.Add(time.Duration(s.Start) * time.Minute),
			End:   dayStart.Add(time.Duration(s.End) * time.Minute),
		})
	}
	schedule.Sort(intervals)
	return intervals
}

// parseFeedDate accepts the feed's ISO date, with or without an offset,
// and returns midnight of that day in the feed's location.
func parseFeedDate(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format")
}

func sameDate(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
