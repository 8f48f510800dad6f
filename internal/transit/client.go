package transit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"trailhead-planner/internal/hiking"
)

const DefaultBaseURL = "http://www.labs.skanetrafiken.se/v2.2/"

type Options struct {
	BaseURL   string
	Timeout   time.Duration
	CacheTTL  time.Duration // 0 disables caching
	Location  *time.Location
	UserAgent string
	Metrics   Metrics
}

// Client is an HTTP client for the provider's open API. It is safe for
// concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	cache   *cache.Cache
	loc     *time.Location
	metrics Metrics
}

func NewClient(opts Options) (*Client, error) {
	raw := opts.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("transit base url: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "trailhead-planner"
	}
	c := &Client{
		base: base,
		http: &http.Client{
			Timeout:   timeout,
			Transport: &uaTransport{userAgent: ua},
		},
		loc:     loc,
		metrics: opts.Metrics,
	}
	if opts.CacheTTL > 0 {
		c.cache = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return c, nil
}

type uaTransport struct {
	userAgent string
}

func (t *uaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept", "text/xml")
	return http.DefaultTransport.RoundTrip(req)
}

// LookupStopArea returns the best stop-area match for a free text query.
func (c *Client) LookupStopArea(ctx context.Context, name string) (hiking.StopArea, error) {
	q := url.Values{"inpPointFr": {name}}
	pts, err := get(ctx, c, EndpointStation, q, func(b []byte) ([]xmlPoint, error) {
		return decodeAll[xmlPoint](bytes.NewReader(b), "Point")
	})
	if err != nil {
		return hiking.StopArea{}, err
	}
	for _, p := range pts {
		if p.Type == "" || p.Type == "STOP_AREA" {
			return p.stopArea(), nil
		}
	}
	return hiking.StopArea{}, fmt.Errorf("%w: %q", ErrStopAreaNotFound, name)
}

// NearestStopAreas lists stop areas within radius meters of (x, y), nearest first.
func (c *Client) NearestStopAreas(ctx context.Context, x, y, radius int) ([]hiking.StopArea, error) {
	q := url.Values{
		"x":      {strconv.Itoa(x)},
		"y":      {strconv.Itoa(y)},
		"radius": {strconv.Itoa(radius)},
	}
	pts, err := get(ctx, c, EndpointNearest, q, func(b []byte) ([]xmlPoint, error) {
		return decodeAll[xmlPoint](bytes.NewReader(b), "NearestStopArea")
	})
	if err != nil {
		return nil, err
	}
	out := make([]hiking.StopArea, 0, len(pts))
	for _, p := range pts {
		out = append(out, p.stopArea())
	}
	return out, nil
}

func (c *Client) NearestStopArea(ctx context.Context, x, y, radius int) (hiking.StopArea, error) {
	all, err := c.NearestStopAreas(ctx, x, y, radius)
	if err != nil {
		return hiking.StopArea{}, err
	}
	if len(all) == 0 {
		return hiking.StopArea{}, fmt.Errorf("%w: none within %d m of (%d, %d)", ErrStopAreaNotFound, radius, x, y)
	}
	return all[0], nil
}

// QueryJourneys returns the provider's next journeys from one stop area to
// another, departing at or after departAfter.
func (c *Client) QueryJourneys(ctx context.Context, from, to hiking.StopArea, departAfter time.Time) ([]hiking.Journey, error) {
	t := departAfter.In(c.loc)
	q := url.Values{
		"cmdaction":  {"next"},
		"selPointFr": {pointRef(from)},
		"selPointTo": {pointRef(to)},
		"inpDate":    {t.Format("2006-01-02")},
		"inpTime":    {t.Format("15:04")},
	}
	return get(ctx, c, EndpointJourneys, q, func(b []byte) ([]hiking.Journey, error) {
		raw, err := decodeAll[xmlJourney](bytes.NewReader(b), "Journey")
		if err != nil {
			return nil, err
		}
		out := make([]hiking.Journey, 0, len(raw))
		for _, r := range raw {
			j, err := r.journey(c.loc)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrProvider, err)
			}
			out = append(out, j)
		}
		return out, nil
	})
}

// pointRef is the provider's "name|id|type" reference, type 0 being a stop area.
func pointRef(sa hiking.StopArea) string {
	return fmt.Sprintf("%s|%d|0", sa.Name, sa.ID)
}

// get fetches and decodes one endpoint. Only successfully decoded responses
// are cached.
func get[T any](ctx context.Context, c *Client, endpoint string, q url.Values, decode func([]byte) (T, error)) (T, error) {
	u := c.base.ResolveReference(&url.URL{Path: endpoint + ".asp", RawQuery: q.Encode()})
	key := u.String()
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			if c.metrics != nil {
				c.metrics.CacheHit(endpoint)
			}
			return v.(T), nil
		}
	}

	start := time.Now()
	var zero T
	body, err := c.fetch(ctx, key)
	var v T
	if err == nil {
		v, err = decode(body)
	}
	if c.metrics != nil {
		c.metrics.RequestObserve(endpoint, time.Since(start), err)
	}
	if err != nil {
		return zero, err
	}
	if c.cache != nil {
		c.cache.Set(key, v, cache.DefaultExpiration)
	}
	return v, nil
}

func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned HTTP %d", ErrProvider, u, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrProvider, err)
	}
	return body, nil
}
