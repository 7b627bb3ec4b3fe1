// Copyright 2026 The Dataflowcomm Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package discovery implements the two-pass handshake that turns a
// declarative table.Table into a per-worker set of connected channel
// handles. Pass 1 (create) lets each worker allocate and publish its own
// side of every channel it touches; pass 2 (connect) lets each worker
// link to whichever peer it needs, spinning until that peer's create has
// become visible. No other synchronization between workers is needed:
// the table and the atomics inside it are the entire handshake protocol.
package discovery

import (
	"code.hybscloud.com/iox"

	"github.com/sraase/dataflowcomm/bump"
	"github.com/sraase/dataflowcomm/endpoint"
	"github.com/sraase/dataflowcomm/fault"
	"github.com/sraase/dataflowcomm/platform"
	"github.com/sraase/dataflowcomm/table"
)

// Handles is the result of Init: a worker's private view of the
// channels it participates in, indexed exactly like the table it was
// built from. A slot is nil if the calling worker is neither the src nor
// the dst of that channel.
type Handles struct {
	self    platform.WorkerID
	entries []*endpoint.Handle
}

// Get returns the handle for channel idx, trapping TABLE if idx is out of
// range or this worker does not own either end of that channel.
func (h *Handles) Get(idx int) *endpoint.Handle {
	if idx < 0 || idx >= len(h.entries) {
		fault.Trapf(fault.TABLE, "channel index %d out of range [0,%d)", idx, len(h.entries))
	}
	e := h.entries[idx]
	if e == nil {
		fault.Trapf(fault.TABLE, "worker %d does not own either end of channel %d", h.self, idx)
	}
	return e
}

// Init runs both handshake passes for self against t, using heap for any
// buffer this worker's endpoints need to allocate. It must be called
// exactly once per worker, after the table has been fully populated
// (every Set* call made) and before any worker calls Read/Write/Peek on a
// handle it returns.
//
// Every HOST channel in t must already carry its pre-baked table.HostRing
// and table.HostDescriptor — table.SetHostInput/SetHostOutput does this
// at table-construction time, mirroring how the host links those offsets
// in before any worker starts.
func Init(self platform.WorkerID, t *table.Table, heap *bump.Heap) *Handles {
	h := &Handles{self: self, entries: make([]*endpoint.Handle, t.Len())}

	for i := 0; i < t.Len(); i++ {
		create(self, t.At(i), i, heap, h)
	}
	for i := 0; i < t.Len(); i++ {
		connect(self, t.At(i), i, h)
	}
	return h
}

func create(self platform.WorkerID, ch *table.Channel, idx int, heap *bump.Heap, h *Handles) {
	switch ch.Type {
	case table.Invalid:
		return
	case table.Default:
		if ch.Src.Core == ch.Dst.Core {
			fault.Trapf(fault.TABLE, "channel %d: src and dst are the same worker %d", idx, ch.Src.Core)
		}
		if ch.Src.Core == self {
			p := endpoint.CreateDefaultProducer(self, ch)
			ch.Src.PublishDev(p)
			h.entries[idx] = p
		}
		if ch.Dst.Core == self {
			c := endpoint.CreateDefaultConsumer(self, ch, heap)
			ch.Dst.PublishDev(c)
			h.entries[idx] = c
		}
	case table.HostType:
		srcIsHost := ch.Src.Core == platform.Host
		dstIsHost := ch.Dst.Core == platform.Host
		if srcIsHost == dstIsHost {
			fault.Trapf(fault.TABLE, "channel %d: HOST channel must have exactly one host end", idx)
		}
		if dstIsHost && ch.Src.Core == self {
			p := endpoint.CreateHostProducer(self, ch)
			ch.Src.PublishDev(p)
			h.entries[idx] = p
		}
		if srcIsHost && ch.Dst.Core == self {
			c := endpoint.CreateHostConsumer(self, ch)
			ch.Dst.PublishDev(c)
			h.entries[idx] = c
		}
	default:
		fault.Trapf(fault.TABLE, "channel %d: unknown channel type %d", idx, ch.Type)
	}
}

func connect(self platform.WorkerID, ch *table.Channel, idx int, h *Handles) {
	if ch.Type != table.Default {
		return
	}
	if ch.Src.Core == self {
		endpoint.ConnectDefaultProducer(h.entries[idx], waitForPeer(ch.Dst))
	}
	if ch.Dst.Core == self {
		endpoint.ConnectDefaultConsumer(h.entries[idx], waitForPeer(ch.Src))
	}
}

// waitForPeer spins with backoff until addr's owner has published its
// endpoint, then returns it. This is pass 2 of the handshake: the peer's
// create may not have run yet, so connect must wait rather than assume.
func waitForPeer(addr *table.Address) table.Endpoint {
	var b iox.Backoff
	for {
		if ep := addr.Dev(); ep != nil {
			return ep
		}
		platform.Idle(&b)
	}
}
