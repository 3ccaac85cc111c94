package query

import (
	"math"
	"sync"
	"time"
)

// maxEntries caps the rolling analytics log; oldest entries are dropped.
const maxEntries = 1000

// Entry is one recorded query outcome.
type Entry struct {
	Timestamp    time.Time     `json:"timestamp"`
	Query        string        `json:"query"`
	Persona      string        `json:"persona"`
	Mode         string        `json:"mode"`
	ResponseTime time.Duration `json:"response_time"`
	Confidence   float64       `json:"confidence"`
	TokensUsed   int           `json:"tokens_used"`
	SourceCount  int           `json:"source_count"`
}

// Summary aggregates the rolling log.
type Summary struct {
	TotalQueries        int            `json:"total_queries"`
	AverageResponseTime time.Duration  `json:"average_response_time"`
	AverageConfidence   float64        `json:"average_confidence"`
	PersonaUsage        map[string]int `json:"persona_usage"`
	ModeUsage           map[string]int `json:"mode_usage"`
	RecentQueries       []Entry        `json:"recent_queries"`
	Message             string         `json:"message,omitempty"`
}

// Aggregator keeps a bounded in-memory log of query outcomes. Safe for
// concurrent use.
type Aggregator struct {
	mu      sync.Mutex
	entries []Entry
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

func (a *Aggregator) Record(e Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	if len(a.entries) > maxEntries {
		a.entries = a.entries[len(a.entries)-maxEntries:]
	}
}

// Summarize computes aggregate statistics over the current log. An empty log
// yields an explicit message instead of zero averages.
func (a *Aggregator) Summarize() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.entries) == 0 {
		return Summary{Message: "No queries logged yet"}
	}

	var totalTime time.Duration
	var totalConf float64
	personas := make(map[string]int)
	modes := make(map[string]int)
	for _, e := range a.entries {
		totalTime += e.ResponseTime
		totalConf += e.Confidence
		personas[e.Persona]++
		modes[e.Mode]++
	}

	n := len(a.entries)
	recent := a.entries
	if n > 10 {
		recent = a.entries[n-10:]
	}
	out := make([]Entry, len(recent))
	copy(out, recent)

	return Summary{
		TotalQueries:        n,
		AverageResponseTime: totalTime / time.Duration(n),
		AverageConfidence:   math.Round(totalConf/float64(n)*100) / 100,
		PersonaUsage:        personas,
		ModeUsage:           modes,
		RecentQueries:       out,
	}
}
