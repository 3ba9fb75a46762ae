// Package loadtest drives a running threshold service with concurrent
// queries and checks that every answer agrees with a field-wide baseline.
package loadtest

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL         string        // Base URL of the service
	Requests        int           // Number of queries to send after the baseline
	Workers         int           // Number of concurrent clients
	Timeout         time.Duration // HTTP request timeout
	EliminationRank int           // Cut to query; zero keeps the service default
	OutputFile      string        // Optional JSON dump of every response
	Verbose         bool          // Log every failed query
}

// Query is one request of the run. An empty Competitor asks for the whole
// field.
type Query struct {
	Competitor string `json:"competitor,omitempty"`
}

// Outcome mirrors one competitor answer of GET /thresholds.
type Outcome struct {
	Competitor string `json:"competitor"`
	Status     string `json:"status"`
	Value      int64  `json:"value"`
}

// Response mirrors the JSON body of GET /thresholds.
type Response struct {
	RunID           string    `json:"run_id"`
	Season          string    `json:"season"`
	EliminationRank int       `json:"elimination_rank"`
	Found           bool      `json:"found"`
	Threshold       int64     `json:"threshold"`
	Best            string    `json:"best"`
	Outcomes        []Outcome `json:"outcomes"`
}

// Answer pairs a query with what the service said.
type Answer struct {
	Query    Query         `json:"query"`
	Status   int           `json:"status"`
	Latency  time.Duration `json:"latency"`
	Response *Response     `json:"response,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Stats holds run statistics.
type Stats struct {
	Sent       int
	Succeeded  int
	Rejected   int // 429 backpressure answers
	Failed     int
	MinLatency time.Duration
	MaxLatency time.Duration
	SumLatency time.Duration
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}
