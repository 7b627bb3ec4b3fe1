// Copyright 2026 The Dataflowcomm Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package endpoint

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"

	"github.com/sraase/dataflowcomm/bump"
	"github.com/sraase/dataflowcomm/fault"
	"github.com/sraase/dataflowcomm/platform"
	"github.com/sraase/dataflowcomm/table"
)

// defaultProducer is the write side of a worker-to-worker SPSC ring. The
// ring buffer lives in the consumer's memory (dst), not the producer's:
// wp is this side's local write cursor, mirrored into dst's wp shadow
// after every write; rpField is a shadow of the consumer's read cursor,
// written by the consumer and read (with acquire ordering) by this side.
//
// dst is published once, during the connect phase, and never changes
// after — every other goroutine-visible field on this struct is written
// only by the producer's own goroutine, so the only synchronization this
// type needs is the one atomic pointer publish plus the rp/wp shadows.
type defaultProducer struct {
	owner      platform.WorkerID
	tokenSize  uint64
	capacity   uint64
	wp         uint64
	rpField    atomix.Uint64 // shadow of dst.rp, written by the consumer
	dst        atomic.Pointer[defaultConsumer]
	cachedDst  *defaultConsumer
	readySpace notifier // signaled by dst after every read
}

// defaultConsumer is the read side. It owns the ring buffer; rp is its
// committed read cursor, pp its peek cursor (always reset to rp at the
// end of a peek call, per the no-state-leak invariant); wpField is a
// shadow of the producer's write cursor.
type defaultConsumer struct {
	owner     platform.WorkerID
	tokenSize uint64
	capacity  uint64
	rp, pp    uint64
	wpField   atomix.Uint64 // shadow of src.wp, written by the producer
	buf       []byte
	src       atomic.Pointer[defaultProducer]
	cachedSrc *defaultProducer
	readyData notifier // signaled by src after every write
}

// CreateDefaultProducer allocates the write-side half of a DEFAULT
// channel and wraps it in a Handle. The handle is inert until
// ConnectDefaultProducer links it to the peer consumer: every operation
// before that blocks in peer(), same as a create without a matching
// connect in the protocol this models.
func CreateDefaultProducer(owner platform.WorkerID, ch *table.Channel) *Handle {
	if ch.Type != table.Default {
		fault.Trapf(fault.TABLE, "CreateDefaultProducer: channel is %s, not DEFAULT", ch.Type)
	}
	p := &defaultProducer{
		owner:      owner,
		tokenSize:  uint64(ch.TokenSize),
		capacity:   uint64(ch.Capacity()),
		readySpace: newNotifier(),
	}
	return &Handle{owner: owner, typ: table.Default, role: RoleProducer, impl: p}
}

// CreateDefaultConsumer allocates the read-side half of a DEFAULT channel,
// including its ring buffer (from heap), and wraps it in a Handle.
func CreateDefaultConsumer(owner platform.WorkerID, ch *table.Channel, heap *bump.Heap) *Handle {
	if ch.Type != table.Default {
		fault.Trapf(fault.TABLE, "CreateDefaultConsumer: channel is %s, not DEFAULT", ch.Type)
	}
	c := &defaultConsumer{
		owner:     owner,
		tokenSize: uint64(ch.TokenSize),
		capacity:  uint64(ch.Capacity()),
		buf:       heap.Alloc(int(ch.TokenSize) * int(ch.Capacity())),
		readyData: newNotifier(),
	}
	return &Handle{owner: owner, typ: table.Default, role: RoleConsumer, impl: c}
}

// ConnectDefaultProducer stores the producer's own reference to its peer
// consumer. It touches only fields owned by h's goroutine (p.dst), never
// the peer's struct directly, so it never races with the consumer's own
// ConnectDefaultConsumer call.
func ConnectDefaultProducer(h *Handle, peer table.Endpoint) {
	p, ok := h.impl.(*defaultProducer)
	if !ok {
		fault.Trapf(fault.TABLE, "ConnectDefaultProducer: handle is not a default producer")
	}
	dh, ok := peer.(*Handle)
	if !ok {
		fault.Trapf(fault.TABLE, "ConnectDefaultProducer: peer is not a Handle")
	}
	dc, ok := dh.impl.(*defaultConsumer)
	if !ok {
		fault.Trapf(fault.TABLE, "ConnectDefaultProducer: peer is not a default consumer")
	}
	p.dst.Store(dc)
}

// ConnectDefaultConsumer stores the consumer's own reference to its peer
// producer, symmetric to ConnectDefaultProducer.
func ConnectDefaultConsumer(h *Handle, peer table.Endpoint) {
	c, ok := h.impl.(*defaultConsumer)
	if !ok {
		fault.Trapf(fault.TABLE, "ConnectDefaultConsumer: handle is not a default consumer")
	}
	ph, ok := peer.(*Handle)
	if !ok {
		fault.Trapf(fault.TABLE, "ConnectDefaultConsumer: peer is not a Handle")
	}
	dp, ok := ph.impl.(*defaultProducer)
	if !ok {
		fault.Trapf(fault.TABLE, "ConnectDefaultConsumer: peer is not a default producer")
	}
	c.src.Store(dp)
}

// peer resolves and caches the connected consumer, spinning with backoff
// until the connect phase has run. Once resolved it never changes, so the
// cache is never invalidated.
func (p *defaultProducer) peer() *defaultConsumer {
	if p.cachedDst != nil {
		return p.cachedDst
	}
	var b iox.Backoff
	for {
		if dc := p.dst.Load(); dc != nil {
			p.cachedDst = dc
			return dc
		}
		platform.Idle(&b)
	}
}

func (c *defaultConsumer) peer() *defaultProducer {
	if c.cachedSrc != nil {
		return c.cachedSrc
	}
	var b iox.Backoff
	for {
		if dp := c.src.Load(); dp != nil {
			c.cachedSrc = dp
			return dp
		}
		platform.Idle(&b)
	}
}

func (p *defaultProducer) write(buf []byte, count int) int {
	dc := p.peer()
	ts := int(p.tokenSize)
	for i := 0; i < count; i++ {
		next := p.wp + 1
		if next >= p.capacity {
			next -= p.capacity
		}
		var b iox.Backoff
		for p.rpField.LoadAcquire() == next {
			p.readySpace.idle(&b)
		}
		off := int(p.wp) * ts
		copy(dc.buf[off:off+ts], buf[:ts])
		p.wp = next
		dc.wpField.StoreRelease(next)
		dc.readyData.signal()
		buf = buf[ts:]
	}
	return count
}

func (p *defaultProducer) space() int {
	p.peer()
	rp := p.rpField.LoadAcquire()
	v := p.capacity - 1 + rp - p.wp
	for v >= p.capacity {
		v -= p.capacity
	}
	return int(v)
}

func (c *defaultConsumer) read(buf []byte, count int) int {
	dp := c.peer()
	ts := int(c.tokenSize)
	for i := 0; i < count; i++ {
		var b iox.Backoff
		for c.rp == c.wpField.LoadAcquire() {
			c.readyData.idle(&b)
		}
		off := int(c.rp) * ts
		copy(buf[:ts], c.buf[off:off+ts])
		next := c.rp + 1
		if next >= c.capacity {
			next -= c.capacity
		}
		c.rp = next
		c.pp = next
		dp.rpField.StoreRelease(next)
		dp.readySpace.signal()
		buf = buf[ts:]
	}
	return count
}

// peek copies up to count unread tokens starting at the peek cursor
// without advancing rp, stopping early (never blocking) once the ring
// runs dry. The peek cursor always resets to rp when the call returns, so
// a peek can never leave a stray cursor position for a later read or peek
// to trip over.
func (c *defaultConsumer) peek(buf []byte, count int) int {
	ts := int(c.tokenSize)
	n := 0
	for n < count {
		if c.pp == c.wpField.LoadAcquire() {
			break
		}
		off := int(c.pp) * ts
		copy(buf[:ts], c.buf[off:off+ts])
		next := c.pp + 1
		if next >= c.capacity {
			next -= c.capacity
		}
		c.pp = next
		buf = buf[ts:]
		n++
	}
	c.pp = c.rp
	return n
}

func (c *defaultConsumer) level() int {
	wp := c.wpField.LoadAcquire()
	v := c.capacity + wp - c.rp
	for v >= c.capacity {
		v -= c.capacity
	}
	return int(v)
}
