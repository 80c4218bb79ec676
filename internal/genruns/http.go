package genruns

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nayef/paceline/pkg/logger"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// analyzeRequest mirrors the POST /analyze payload.
type analyzeRequest struct {
	Game     string      `json:"game"`
	Category string      `json:"category"`
	Runs     interface{} `json:"runs"`
}

// submitCategories posts each category to the running service concurrently.
func submitCategories(ctx context.Context, config *Config, cats []Category, stats *Stats) error {
	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/analyze"

	var (
		submitted int64
		accepted  int64
		rejected  int64
	)

	catChan := make(chan Category, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cat := range catChan {
				select {
				case <-ctx.Done():
					return
				default:
					total := atomic.AddInt64(&submitted, 1)
					ok := submitSingleCategory(ctx, client, url, cat)
					if ok {
						atomic.AddInt64(&accepted, 1)
					} else {
						atomic.AddInt64(&rejected, 1)
					}

					if config.Verbose {
						logger.Get().Debug(ctx, "category submitted",
							logger.String("game", cat.Game),
							logger.String("category", cat.Category),
							logger.Any("accepted", ok))
					} else {
						fmt.Printf("\rSubmitted: %d/%d (accepted: %d, rejected: %d)",
							total, len(cats),
							atomic.LoadInt64(&accepted), atomic.LoadInt64(&rejected))
					}
				}
			}
		}()
	}

	go func() {
		defer close(catChan)
		for _, cat := range cats {
			select {
			case <-ctx.Done():
				return
			case catChan <- cat:
			}
		}
	}()

	wg.Wait()

	if !config.Verbose {
		fmt.Println() // New line after progress indicator
	}

	stats.CategoriesSubmitted = int(atomic.LoadInt64(&submitted))
	stats.CategoriesAccepted = int(atomic.LoadInt64(&accepted))
	stats.CategoriesRejected = int(atomic.LoadInt64(&rejected))
	return nil
}

// submitSingleCategory posts one category and reports whether the service
// accepted it.
func submitSingleCategory(ctx context.Context, client *HTTPClient, url string, cat Category) bool {
	resp, err := client.Post(ctx, url, analyzeRequest{
		Game:     cat.Game,
		Category: cat.Category,
		Runs:     cat.Runs,
	})
	if err != nil {
		return false
	}
	_, _ = readResponseBody(resp)
	return resp.StatusCode == http.StatusAccepted
}
