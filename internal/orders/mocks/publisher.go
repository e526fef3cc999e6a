package mocks

import (
	"context"
	"encoding/json"
	"sync"

	kafkago "github.com/segmentio/kafka-go"
)

// Publisher records published messages.
type Publisher struct {
	mu   sync.Mutex
	Msgs []kafkago.Message
}

func (p *Publisher) Publish(key, value []byte, headers ...kafkago.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Msgs = append(p.Msgs, kafkago.Message{Key: key, Value: value, Headers: headers})
}

// Types returns the x-event-type header of each message in order.
func (p *Publisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.Msgs))
	for _, m := range p.Msgs {
		for _, h := range m.Headers {
			if h.Key == "x-event-type" {
				out = append(out, string(h.Value))
			}
		}
	}
	return out
}

// Cache is a map-backed status cache.
type Cache struct {
	mu          sync.Mutex
	data        map[int64][]byte
	Invalidated []int64
}

func NewCache() *Cache { return &Cache{data: map[int64][]byte{}} }

func (c *Cache) Get(_ context.Context, id int64, out any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[id]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, out)
}

func (c *Cache) Set(_ context.Context, id int64, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[id] = b
	return nil
}

func (c *Cache) Invalidate(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, id)
	c.Invalidated = append(c.Invalidated, id)
	return nil
}
