package locationIQ

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/motoki317/sc"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/pkg/metrics"
	wrap "github.com/Temutjin2k/ladies-drive/pkg/logger/wrapper"
)

const (
	defaultBaseURL = "https://us1.locationiq.com/v1"
	cacheSize      = 4096
	// 4 decimal places is about 11 meters.
	coordPrecision = 1e4
)

// Client is a LocationIQ geocoder. Reverse lookups are cached per rounded
// coordinate, and concurrent lookups of the same point share one request.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	reverse *sc.Cache[models.GeoPoint, *models.Address]
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func New(apiKey, baseURL string, cacheTTL time.Duration, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}

	c := &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}

	cache, err := sc.New(c.fetchReverse, cacheTTL, cacheTTL, sc.WithLRUBackend(cacheSize))
	if err != nil {
		return nil, fmt.Errorf("create geocode cache: %w", err)
	}
	c.reverse = cache

	return c, nil
}

type reversePayload struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Address     struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		State   string `json:"state"`
		Country string `json:"country"`
	} `json:"address"`
}

func (p reversePayload) city() string {
	for _, v := range []string{p.Address.City, p.Address.Town, p.Address.Village, p.Address.State} {
		if v != "" {
			return v
		}
	}
	return ""
}

// Reverse resolves a point to an address.
func (c *Client) Reverse(ctx context.Context, p models.GeoPoint) (*models.Address, error) {
	if !p.Valid() {
		return nil, types.ErrInvalidInput
	}

	addr, err := c.reverse.Get(ctx, roundPoint(p))
	if err != nil {
		return nil, err
	}
	return addr, nil
}

func (c *Client) fetchReverse(ctx context.Context, p models.GeoPoint) (*models.Address, error) {
	const op = "LocationIQ.Reverse"

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("lat", strconv.FormatFloat(p.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(p.Lng, 'f', -1, 64))
	q.Set("format", "json")

	var payload reversePayload
	if err := c.get(ctx, "/reverse", q, &payload); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.Address{
		DisplayName: payload.DisplayName,
		City:        payload.city(),
		Country:     payload.Address.Country,
		Point:       p,
	}, nil
}

// Search resolves free text to the best matching address.
func (c *Client) Search(ctx context.Context, query string) (*models.Address, error) {
	const op = "LocationIQ.Search"

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, types.ErrInvalidInput
	}

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("addressdetails", "1")
	q.Set("limit", "1")

	var results []reversePayload
	if err := c.get(ctx, "/search", q, &results); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(results) == 0 {
		return nil, types.ErrLocationNotFound
	}

	best := results[0]
	lat, err := strconv.ParseFloat(best.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: parse latitude: %w", op, err)
	}
	lng, err := strconv.ParseFloat(best.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: parse longitude: %w", op, err)
	}

	return &models.Address{
		DisplayName: best.DisplayName,
		City:        best.city(),
		Country:     best.Address.Country,
		Point:       models.GeoPoint{Lat: lat, Lng: lng},
	}, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordExternalCall("locationiq", path, err, time.Since(start))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		return wrap.Error(ctx, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return types.ErrLocationNotFound
	case resp.StatusCode != http.StatusOK:
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		return wrap.Error(ctx, fmt.Errorf("unexpected response status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return wrap.Error(wrap.WithAction(ctx, "decode_locationiq_payload"), fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func roundPoint(p models.GeoPoint) models.GeoPoint {
	return models.GeoPoint{
		Lat: math.Round(p.Lat*coordPrecision) / coordPrecision,
		Lng: math.Round(p.Lng*coordPrecision) / coordPrecision,
	}
}

// IsNotFound reports whether the geocoder had no match.
func IsNotFound(err error) bool {
	return errors.Is(err, types.ErrLocationNotFound)
}
