// Package conversation keeps short in-memory transcripts of recent query
// exchanges, one per conversation id.
package conversation

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// maxExchanges bounds each transcript; older exchanges are dropped first.
const maxExchanges = 10

// Exchange is one query/answer pair.
type Exchange struct {
	Query     string
	Answer    string
	Timestamp time.Time
}

// Store holds transcripts keyed by conversation id. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	history map[string][]Exchange
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{
		history: make(map[string][]Exchange),
		now:     time.Now,
	}
}

// Create registers a new conversation and returns its id. Ids embed the
// persona name and a timestamp with second granularity.
func (s *Store) Create(persona string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := fmt.Sprintf("%s_%s", persona, s.now().Format("20060102_150405"))
	if _, ok := s.history[id]; !ok {
		s.history[id] = nil
	}
	return id
}

// Append records an exchange, trimming the transcript to the newest
// maxExchanges entries.
func (s *Store) Append(id, query, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := append(s.history[id], Exchange{Query: query, Answer: answer, Timestamp: s.now()})
	if len(h) > maxExchanges {
		h = h[len(h)-maxExchanges:]
	}
	s.history[id] = h
}

// Recent returns up to k of the newest exchanges for id, oldest first.
// Unknown ids yield an empty slice.
func (s *Store) Recent(id string, k int) []Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.history[id]
	if k < len(h) {
		h = h[len(h)-k:]
	}
	out := make([]Exchange, len(h))
	copy(out, h)
	return out
}

// RecentContext renders the newest k exchanges as a compact text block with
// 100-character previews, for inclusion in prompts.
func (s *Store) RecentContext(id string, k int) string {
	exchanges := s.Recent(id, k)
	if len(exchanges) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Recent conversation:\n")
	for _, ex := range exchanges {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", preview(ex.Query, 100), preview(ex.Answer, 100))
	}
	return b.String()
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
