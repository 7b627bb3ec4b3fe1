// Copyright 2026 The Dataflowcomm Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package endpoint

import (
	"github.com/sraase/dataflowcomm/fault"
	"github.com/sraase/dataflowcomm/platform"
	"github.com/sraase/dataflowcomm/table"
)

// hostProducer is a worker feeding a host-visible ring that the host
// drains (a HOST output channel). Unlike a DEFAULT producer, there is no
// peer goroutine to wake: the host side polls on its own schedule, so the
// only correct wait primitive here is a bare spin. Idling would deadlock
// the pair, since the host never raises an interrupt.
type hostProducer struct {
	owner     platform.WorkerID
	tokenSize uint64
	capacity  uint64
	wp        uint64
	ring      *table.HostRing
}

// hostConsumer is a worker reading a host-visible ring that the host
// fills (a HOST input channel).
type hostConsumer struct {
	owner     platform.WorkerID
	tokenSize uint64
	capacity  uint64
	rp, pp    uint64
	ring      *table.HostRing
}

// CreateHostProducer builds the worker side of a HOST output channel: the
// channel's dst (the host end) must already carry a published HostRing,
// baked in by whoever built the table before discovery ran.
func CreateHostProducer(owner platform.WorkerID, ch *table.Channel) *Handle {
	if ch.Type != table.HostType {
		fault.Trapf(fault.TABLE, "CreateHostProducer: channel is %s, not HOST", ch.Type)
	}
	if ch.Dst.Core != platform.Host {
		fault.Trapf(fault.TABLE, "CreateHostProducer: channel's dst is not the host")
	}
	ring, ok := ch.Dst.Dev().(*table.HostRing)
	if !ok {
		fault.Trapf(fault.TABLE, "CreateHostProducer: host ring not published for this channel")
	}
	p := &hostProducer{
		owner:     owner,
		tokenSize: uint64(ch.TokenSize),
		capacity:  uint64(ch.Capacity()),
		ring:      ring,
	}
	return &Handle{owner: owner, typ: table.HostType, role: RoleProducer, impl: p}
}

// CreateHostConsumer builds the worker side of a HOST input channel.
func CreateHostConsumer(owner platform.WorkerID, ch *table.Channel) *Handle {
	if ch.Type != table.HostType {
		fault.Trapf(fault.TABLE, "CreateHostConsumer: channel is %s, not HOST", ch.Type)
	}
	if ch.Src.Core != platform.Host {
		fault.Trapf(fault.TABLE, "CreateHostConsumer: channel's src is not the host")
	}
	ring, ok := ch.Src.Dev().(*table.HostRing)
	if !ok {
		fault.Trapf(fault.TABLE, "CreateHostConsumer: host ring not published for this channel")
	}
	c := &hostConsumer{
		owner:     owner,
		tokenSize: uint64(ch.TokenSize),
		capacity:  uint64(ch.Capacity()),
		ring:      ring,
	}
	return &Handle{owner: owner, typ: table.HostType, role: RoleConsumer, impl: c}
}

func (p *hostProducer) write(buf []byte, count int) int {
	ts := int(p.tokenSize)
	for i := 0; i < count; i++ {
		next := p.wp + 1
		if next >= p.capacity {
			next -= p.capacity
		}
		var sw platform.Spin
		for p.ring.RP.LoadAcquire() == next {
			sw.Once()
		}
		off := int(p.wp) * ts
		copy(p.ring.Buf[off:off+ts], buf[:ts])
		p.wp = next
		p.ring.WP.StoreRelease(next)
		buf = buf[ts:]
	}
	return count
}

func (p *hostProducer) space() int {
	rp := p.ring.RP.LoadAcquire()
	v := p.capacity - 1 + rp - p.wp
	for v >= p.capacity {
		v -= p.capacity
	}
	return int(v)
}

func (c *hostConsumer) read(buf []byte, count int) int {
	ts := int(c.tokenSize)
	for i := 0; i < count; i++ {
		var sw platform.Spin
		for c.rp == c.ring.WP.LoadAcquire() {
			sw.Once()
		}
		off := int(c.rp) * ts
		copy(buf[:ts], c.ring.Buf[off:off+ts])
		next := c.rp + 1
		if next >= c.capacity {
			next -= c.capacity
		}
		c.rp = next
		c.pp = next
		c.ring.RP.StoreRelease(next)
		buf = buf[ts:]
	}
	return count
}

func (c *hostConsumer) peek(buf []byte, count int) int {
	ts := int(c.tokenSize)
	n := 0
	for n < count {
		if c.pp == c.ring.WP.LoadAcquire() {
			break
		}
		off := int(c.pp) * ts
		copy(buf[:ts], c.ring.Buf[off:off+ts])
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

func (c *hostConsumer) level() int {
	wp := c.ring.WP.LoadAcquire()
	v := c.capacity + wp - c.rp
	for v >= c.capacity {
		v -= c.capacity
	}
	return int(v)
}
