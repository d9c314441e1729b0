// Package activity keeps the human-readable log of what staff did in the room.
// Entries are appended whether or not the backend write behind them succeeds.
package activity

import (
	"context"
	"sync"
	"time"
)

// Capacity bounds how many entries are kept.
const Capacity = 50

// Tone is how an entry is highlighted in the feed.
type Tone string

const (
	ToneInfo    Tone = "info"
	ToneSuccess Tone = "success"
	ToneDanger  Tone = "danger"
	ToneNeon    Tone = "neon"
)

type Entry struct {
	At    time.Time `json:"at"`
	Tone  Tone      `json:"tone"`
	Actor string    `json:"actor,omitempty"`
	Text  string    `json:"text"`
}

// Log stores entries newest first.
type Log interface {
	Append(ctx context.Context, e Entry) error
	Recent(ctx context.Context, n int) ([]Entry, error)
}

// Memory is a Log local to one process.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
	size    int
}

func NewMemory(size int) *Memory {
	if size <= 0 {
		size = Capacity
	}
	return &Memory{size: size}
}

func (m *Memory) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append([]Entry{e}, m.entries...)
	if len(m.entries) > m.size {
		m.entries = m.entries[:m.size]
	}
	return nil
}

func (m *Memory) Recent(_ context.Context, n int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n <= 0 || n > len(m.entries) {
		n = len(m.entries)
	}
	out := make([]Entry, n)
	copy(out, m.entries[:n])
	return out, nil
}
