// Copyright 2026 The Dataflowcomm Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package comm is the worker-facing API of the dataflow communications
// runtime: Init discovers and connects every channel a worker
// participates in from a shared table.Table, GetRHandle/GetWHandle fetch
// typed handles by channel index, and Read/Peek/Write/Level/Space move
// tokens through them. It is a thin facade over discovery, endpoint,
// table and bump, kept as free functions plus one small Context so a
// worker program reads the same on a host build as it would on a device
// build.
package comm

import (
	"github.com/sraase/dataflowcomm/bump"
	"github.com/sraase/dataflowcomm/discovery"
	"github.com/sraase/dataflowcomm/endpoint"
	"github.com/sraase/dataflowcomm/fault"
	"github.com/sraase/dataflowcomm/platform"
	"github.com/sraase/dataflowcomm/table"
)

// Context is one worker's live view of the comms fabric after Init: its
// identity and the set of channel handles it owns.
type Context struct {
	Self    platform.WorkerID
	Heap    *bump.Heap
	handles *discovery.Handles
}

// Init runs the channel-table handshake for worker self against t,
// carving its endpoint allocations (ring buffers, mainly) from a fresh
// heap of heapSize bytes. It must be called once per worker, after every
// worker's table has been fully populated by the caller and before any
// worker calls GetRHandle/GetWHandle.
func Init(self platform.WorkerID, t *table.Table, heapSize int) *Context {
	heap := bump.New(heapSize)
	return &Context{
		Self:    self,
		Heap:    heap,
		handles: discovery.Init(self, t, heap),
	}
}

// GetRHandle returns the read handle for channel, trapping TABLE if this
// worker does not own the consumer side of it.
func (c *Context) GetRHandle(channel int) *endpoint.Handle {
	h := c.handles.Get(channel)
	if h.Role() != endpoint.RoleConsumer {
		fault.Trapf(fault.TABLE, "channel %d: worker %d does not own the consumer side", channel, c.Self)
	}
	return h
}

// GetWHandle returns the write handle for channel, trapping TABLE if this
// worker does not own the producer side of it.
func (c *Context) GetWHandle(channel int) *endpoint.Handle {
	h := c.handles.Get(channel)
	if h.Role() != endpoint.RoleProducer {
		fault.Trapf(fault.TABLE, "channel %d: worker %d does not own the producer side", channel, c.Self)
	}
	return h
}

// Read copies count tokens from h into buf, blocking until each one is
// available. It traps INVALID if h is not a read handle.
func Read(h *endpoint.Handle, buf []byte, count int) int { return h.Read(buf, count) }

// Peek copies up to count unread tokens from h into buf without
// consuming them, stopping early if the channel runs dry rather than
// blocking. It traps INVALID if h is not a read handle.
func Peek(h *endpoint.Handle, buf []byte, count int) int { return h.Peek(buf, count) }

// Write copies count tokens from buf into h, blocking until each one has
// room. It traps INVALID if h is not a write handle.
func Write(h *endpoint.Handle, buf []byte, count int) int { return h.Write(buf, count) }

// Level reports how many tokens h can currently Read without blocking. It
// traps INVALID if h is not a read handle.
func Level(h *endpoint.Handle) int { return h.Level() }

// Space reports how many tokens h can currently Write without blocking.
// It traps INVALID if h is not a write handle.
func Space(h *endpoint.Handle) int { return h.Space() }
