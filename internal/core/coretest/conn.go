package coretest

import (
	"encoding/json"
	"sync"

	"github.com/MarcMroz/open-voice-chat/internal/core"
)

// Conn records every frame sent to it.
type Conn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
}

func NewConn() *Conn { return &Conn{} }

func (c *Conn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Messages decodes every frame as a JSON object.
func (c *Conn) Messages() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		if err := json.Unmarshal(f, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// OfType returns the decoded messages whose "type" equals typ.
func (c *Conn) OfType(typ string) []map[string]any {
	var out []map[string]any
	for _, m := range c.Messages() {
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

// Types returns the "type" of every message in order.
func (c *Conn) Types() []string {
	var out []string
	for _, m := range c.Messages() {
		if s, ok := m["type"].(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (c *Conn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}
