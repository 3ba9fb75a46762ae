package loadtest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/cutline/pkg/logger"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Get performs a GET request bound to ctx.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// runPath builds the GET /runs/{run_id} URL.
func runPath(runID string) string {
	return "/runs/" + url.PathEscape(runID)
}

// thresholdPath builds the GET /thresholds URL of q.
func thresholdPath(q Query, rank int) string {
	v := url.Values{}
	if rank > 0 {
		v.Set("elimination_rank", strconv.Itoa(rank))
	}
	if q.Competitor != "" {
		v.Set("competitor", q.Competitor)
	}
	if len(v) == 0 {
		return "/thresholds"
	}
	return "/thresholds?" + v.Encode()
}

// ask sends one query and decodes a successful answer.
func ask(ctx context.Context, client *HTTPClient, q Query, rank int) Answer {
	return fetch(ctx, client, q, thresholdPath(q, rank))
}

// fetch GETs path and decodes a successful threshold answer.
func fetch(ctx context.Context, client *HTTPClient, q Query, path string) Answer {
	start := time.Now()
	a := Answer{Query: q}
	resp, err := client.Get(ctx, path)
	if err != nil {
		a.Error = err.Error()
		a.Latency = time.Since(start)
		return a
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	a.Latency = time.Since(start)
	a.Status = resp.StatusCode
	if err != nil {
		a.Error = err.Error()
		return a
	}
	if resp.StatusCode != http.StatusOK {
		a.Error = string(body)
		return a
	}
	var r Response
	if err := json.Unmarshal(body, &r); err != nil {
		a.Error = fmt.Sprintf("decode: %v", err)
		return a
	}
	a.Response = &r
	return a
}

// sendQueries runs queries over a pool of config.Workers clients and returns
// the answers in query order.
func sendQueries(ctx context.Context, config *Config, queries []Query, stats *Stats) []Answer {
	log := logger.Get().Named("loadtest")
	log.Info(ctx, "sending queries",
		logger.Int("queries", len(queries)),
		logger.Int("workers", config.Workers),
	)

	client := newHTTPClient(config.BaseURL, config.Timeout)
	answers := make([]Answer, len(queries))
	answered := make([]bool, len(queries))

	var sent int64
	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for range config.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexChan {
				if ctx.Err() != nil {
					return
				}
				answers[i] = ask(ctx, client, queries[i], config.EliminationRank)
				answered[i] = true
				atomic.AddInt64(&sent, 1)
				if config.Verbose && answers[i].Error != "" {
					log.Warn(ctx, "query failed",
						logger.String("competitor", queries[i].Competitor),
						logger.Int("status", answers[i].Status),
						logger.String("error", answers[i].Error),
					)
				}
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := range queries {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	wg.Wait()

	stats.Sent = int(atomic.LoadInt64(&sent))
	out := make([]Answer, 0, stats.Sent)
	for i, a := range answers {
		if answered[i] {
			stats.record(a)
			out = append(out, a)
		}
	}
	return out
}

func (s *Stats) record(a Answer) {
	switch {
	case a.Response != nil:
		s.Succeeded++
	case a.Status == http.StatusTooManyRequests:
		s.Rejected++
	default:
		s.Failed++
	}
	if s.MinLatency == 0 || a.Latency < s.MinLatency {
		s.MinLatency = a.Latency
	}
	if a.Latency > s.MaxLatency {
		s.MaxLatency = a.Latency
	}
	s.SumLatency += a.Latency
}
