package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Records API client constants.
const (
	defaultRatePerSec  = 1.4 // stays under the upstream 100 requests/minute
	defaultHTTPTimeout = 30 * time.Second
	runsPageSize       = 200
	maxRunsPerCategory = 5000
)

// Game mirrors the records API game shape, flattened to what the collector
// needs.
type Game struct {
	ID           string `json:"id"`
	Names        names  `json:"names"`
	Abbreviation string `json:"abbreviation"`
	Weblink      string `json:"weblink"`
}

type names struct {
	International string `json:"international"`
}

// Category mirrors the records API category shape.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"` // "per-game" for full-game categories
}

// Client is a rate-limited client for a speedrun records API. All requests
// honor ctx and share one limiter so concurrent callers stay within the
// upstream budget.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// ClientOption applies a configuration option to the Client.
type ClientOption func(*Client)

// WithRate sets the request rate in requests per second.
func WithRate(perSec float64) ClientOption {
	return func(c *Client) {
		if perSec > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
		}
	}
}

// WithHTTPTimeout sets the per-request timeout.
func WithHTTPTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// NewClient creates a records API client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultHTTPTimeout},
		limiter: rate.NewLimiter(rate.Limit(defaultRatePerSec), 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// get performs a rate-limited GET and decodes the "data" envelope into out.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) (pageSize int, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrAPIRequest, err)
	}

	u := c.baseURL + "/" + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrAPIRequest, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: %s returned %s", ErrAPIRequest, endpoint, resp.Status)
	}

	var envelope struct {
		Data       json.RawMessage `json:"data"`
		Pagination struct {
			Size int `json:"size"`
		} `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrAPIRequest, err)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return 0, fmt.Errorf("%w: %s", ErrAPIRequest, err)
		}
	}
	return envelope.Pagination.Size, nil
}

// SearchGame returns the best match for a game name.
func (c *Client) SearchGame(ctx context.Context, name string) (Game, error) {
	params := url.Values{"name": {name}, "max": {"1"}}
	var games []Game
	if _, err := c.get(ctx, "games", params, &games); err != nil {
		return Game{}, err
	}
	if len(games) == 0 {
		return Game{}, fmt.Errorf("%w: game not found: %s", ErrAPIRequest, name)
	}
	return games[0], nil
}

// Categories returns all categories for a game.
func (c *Client) Categories(ctx context.Context, gameID string) ([]Category, error) {
	var categories []Category
	if _, err := c.get(ctx, "games/"+gameID+"/categories", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// VerifiedRuns pages through all verified runs for a category in date
// order, stopping at the upstream size or the safety cap.
func (c *Client) VerifiedRuns(ctx context.Context, gameID, categoryID string) ([]RawRun, error) {
	var all []RawRun
	offset := 0

	for {
		params := url.Values{
			"game":      {gameID},
			"category":  {categoryID},
			"status":    {"verified"},
			"orderby":   {"date"},
			"direction": {"asc"},
			"max":       {strconv.Itoa(runsPageSize)},
			"offset":    {strconv.Itoa(offset)},
		}
		var page []RawRun
		size, err := c.get(ctx, "runs", params, &page)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		all = append(all, page...)
		offset += runsPageSize
		// A short page is the last one.
		if size < runsPageSize || len(all) >= maxRunsPerCategory {
			break
		}
	}
	return all, nil
}
