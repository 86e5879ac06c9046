package telegram

import (
	"sync"
	"time"

	"calc-api/api/internal/interpret"
)

const (
	debounce  = 1200 * time.Millisecond
	maxPixels = 18_000_000
)

// chatVars is the variable mapping a chat accumulates, like dict_of_vars on the canvas.
type chatVars struct {
	mu   sync.Mutex
	vars interpret.Vars
}

func (c *chatVars) snapshot() interpret.Vars {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(interpret.Vars, len(c.vars))
	for k, v := range c.vars {
		out[k] = v
	}
	return out
}

// apply stores assignments and returns how many records were assignments.
func (c *chatVars) apply(recs []interpret.Record) int {
	n := 0
	for _, r := range recs {
		if r.Assign {
			n++
		}
	}
	c.mu.Lock()
	c.vars = interpret.ApplyAssignments(c.vars, recs)
	c.mu.Unlock()
	return n
}

func (c *chatVars) set(name string, v any) {
	c.mu.Lock()
	if c.vars == nil {
		c.vars = interpret.Vars{}
	}
	c.vars[name] = v
	c.mu.Unlock()
}

type photoBatch struct {
	ChatID       int64
	Key          string // "grp:<mediaGroupID>" | "chat:<chatID>"
	MediaGroupID string

	mu     sync.Mutex
	images [][]byte
	timer  *time.Timer
}

type state struct {
	vars    sync.Map // chatID -> *chatVars
	engines sync.Map // chatID -> string
	batches sync.Map // key -> *photoBatch
}

func (s *state) varsFor(chatID int64) *chatVars {
	v, _ := s.vars.LoadOrStore(chatID, &chatVars{vars: interpret.Vars{}})
	return v.(*chatVars)
}

func (s *state) resetVars(chatID int64) { s.vars.Delete(chatID) }

func (s *state) setEngine(chatID int64, name string) { s.engines.Store(chatID, name) }

// engine returns the chat's engine, "" meaning the server default.
func (s *state) engine(chatID int64) string {
	if v, ok := s.engines.Load(chatID); ok {
		if name, _ := v.(string); name != "" {
			return name
		}
	}
	return ""
}
