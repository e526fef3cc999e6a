package kafka

import (
	"sync"

	"github.com/segmentio/kafka-go"
)

type inflight struct {
	msg  kafka.Message
	done bool
}

// offsets tracks fetched messages per partition in fetch order and yields
// the newest message whose predecessors have all been handled.
type offsets struct {
	mu      sync.Mutex
	pending map[int][]*inflight
}

func newOffsets() *offsets {
	return &offsets{pending: make(map[int][]*inflight)}
}

func (o *offsets) add(m kafka.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	q := o.pending[m.Partition]
	// an offset at or behind the tail means the partition was rewound
	// after a rebalance; the old entries will never be acked in order
	if n := len(q); n > 0 && m.Offset <= q[n-1].msg.Offset {
		q = nil
	}
	o.pending[m.Partition] = append(q, &inflight{msg: m})
}

// done marks m handled. ok is false while an earlier offset of the same
// partition is still in flight.
func (o *offsets) done(m kafka.Message) (next kafka.Message, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	q := o.pending[m.Partition]
	for _, f := range q {
		if f.msg.Offset == m.Offset {
			f.done = true
			break
		}
	}
	i := 0
	for i < len(q) && q[i].done {
		next, ok = q[i].msg, true
		i++
	}
	if i == len(q) {
		delete(o.pending, m.Partition)
	} else {
		o.pending[m.Partition] = q[i:]
	}
	return next, ok
}
