// Copyright 2026 The Dataflowcomm Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package table implements the declarative channel-table model: the
// single data structure every worker and the host build their view of the
// comms fabric from. A Table is built once, before any worker starts, and
// never mutated structurally afterward — only the per-channel endpoint
// pointers are published into it, once each, during discovery.
package table

import (
	"fmt"
	"sync/atomic"

	"code.hybscloud.com/atomix"

	"github.com/sraase/dataflowcomm/fault"
	"github.com/sraase/dataflowcomm/platform"
)

// Type names a channel's transport.
type Type uint32

const (
	// Invalid marks an unused table slot.
	Invalid Type = iota
	// Default is a worker-to-worker SPSC ring.
	Default
	// HostType is a worker-to-host SPSC ring backed by host-visible
	// shared memory. Named HostType (not Host) to avoid colliding with
	// the platform.Host worker-id sentinel.
	HostType
)

func (t Type) String() string {
	switch t {
	case Invalid:
		return "INVALID"
	case Default:
		return "DEFAULT"
	case HostType:
		return "HOST"
	default:
		return fmt.Sprintf("Type(%d)", uint32(t))
	}
}

// Endpoint is the marker interface satisfied by a worker's created view of
// one end of a channel (see package endpoint), and by HostRing for the
// host-visible ring of a HOST channel. Table never needs to know the
// concrete shape of an endpoint, only that one has been published.
type Endpoint interface {
	// Owner reports the worker id that created this endpoint, for
	// diagnostics (Dump) and misuse traps.
	Owner() platform.WorkerID
}

// HostDescriptor is the host-side auxiliary record for the host end of a
// HOST channel: a file descriptor, the filename it was opened from, and a
// running token count for diagnostics.
type HostDescriptor struct {
	Filename string
	FD       int
	count    atomic.Uint64
}

// Count returns the number of tokens moved through this descriptor so far.
func (d *HostDescriptor) Count() uint64 { return d.count.Load() }

// Incr adds n to the moved-token count. Used by hostio's drainer/feeder.
func (d *HostDescriptor) Incr(n uint64) { d.count.Add(n) }

// HostRing is the host-visible shared-memory ring for a HOST channel: its
// rp/wp indices and byte buffer, reachable from both the worker side and
// the host side without crossing into worker-private memory.
// It is pre-baked into the table by whoever builds it (SetHostInput/
// SetHostOutput), before any worker calls discovery — mirroring the source
// system, where the host links these offsets into the table at compile
// time.
type HostRing struct {
	RP  atomix.Uint64
	WP  atomix.Uint64
	Buf []byte
}

// Owner reports platform.Host: a HostRing is never created by a worker.
func (r *HostRing) Owner() platform.WorkerID { return platform.Host }

// Address is one end (src or dst) of a channel: the owning worker id (or
// platform.Host) plus the publish slot its owner fills in during
// discovery. Dev returns the worker-visible (or host-visible) endpoint
// once created; Host returns the host descriptor for whichever end is
// the host.
//
// The two publish slots stay distinct on purpose: one field doing double
// duty as both an endpoint reference and a descriptor reference would
// need a tag to disambiguate, and a reader racing the tag is exactly the
// kind of bug a one-shot publish slot exists to rule out.
type Address struct {
	Core platform.WorkerID

	dev  atomic.Pointer[Endpoint]
	host atomic.Pointer[HostDescriptor]
}

// PublishDev stores ep as this address's endpoint and spin-reads it back
// until the store is visible to the calling goroutine, which forces the
// release to drain on weakly-ordered hardware. On a sequentially-
// consistent machine this loop runs exactly once, but the shape is the
// rendezvous contract callers rely on.
func (a *Address) PublishDev(ep Endpoint) {
	a.dev.Store(&ep)
	for a.dev.Load() == nil {
	}
}

// Dev returns the published endpoint, or nil if none has been published
// yet. Safe to call from any goroutine; this is the acquire side of the
// handshake's release-store.
func (a *Address) Dev() Endpoint {
	p := a.dev.Load()
	if p == nil {
		return nil
	}
	return *p
}

// PublishHost installs the host descriptor for this address.
func (a *Address) PublishHost(d *HostDescriptor) { a.host.Store(d) }

// Host returns the published host descriptor, or nil.
func (a *Address) Host() *HostDescriptor { return a.host.Load() }

// Channel is one immutable row of a Table. TokenNum is the advertised
// capacity; the physical ring has TokenNum+1 slots (Channel.Capacity), so
// a single always-empty slot distinguishes full from empty without a
// separate counter.
//
// Src and Dst are pointers rather than embedded values: Address carries
// atomic publish slots, and Go's vet-enforced copylocks discipline means
// anything atomic-bearing must be addressed through a pointer once it
// might be reassigned into a slice element during table construction.
type Channel struct {
	Type      Type
	Src       *Address
	Dst       *Address
	TokenSize uint32
	TokenNum  uint32
}

// Capacity returns the physical slot count: TokenNum+1. This "+1" is an
// invariant of every conforming transport and must never be dropped.
func (c *Channel) Capacity() uint32 { return c.TokenNum + 1 }

// Table is the fixed-size, replicated-everywhere array of channels that
// every worker and the host address by index. Index identity is the
// channel's name.
type Table struct {
	Channels []*Channel
}

// New allocates a Table of n Invalid channel slots, ready for the caller
// to populate by index before any worker calls discovery.Init.
func New(n int) *Table {
	t := &Table{Channels: make([]*Channel, n)}
	for i := range t.Channels {
		t.Channels[i] = &Channel{Type: Invalid, Src: &Address{Core: platform.Host}, Dst: &Address{Core: platform.Host}}
	}
	return t
}

// At range-checks idx and returns the channel, trapping TABLE on an
// out-of-range index. Every table lookup in the runtime goes through this
// so the bound check and the trap live in one place.
func (t *Table) At(idx int) *Channel {
	if idx < 0 || idx >= len(t.Channels) {
		fault.Trapf(fault.TABLE, "channel index %d out of range [0,%d)", idx, len(t.Channels))
	}
	return t.Channels[idx]
}

// Len returns the number of channel slots in the table.
func (t *Table) Len() int { return len(t.Channels) }

// SetDefault populates slot idx as a DEFAULT channel between two workers.
func (t *Table) SetDefault(idx int, src, dst platform.WorkerID, tokenSize, tokenNum uint32) {
	ch := t.At(idx)
	if src == dst {
		fault.Trapf(fault.TABLE, "channel %d: src and dst are the same worker %d", idx, src)
	}
	ch.Type = Default
	ch.Src = &Address{Core: src}
	ch.Dst = &Address{Core: dst}
	ch.TokenSize = tokenSize
	ch.TokenNum = tokenNum
}

// SetHostOutput populates slot idx as a HOST channel draining worker src
// into filename. filename == "stdout" binds fd 1 without opening a file
// (resolved by hostio, not here); any other name is truncated on open.
func (t *Table) SetHostOutput(idx int, src platform.WorkerID, filename string, tokenSize, tokenNum uint32) {
	ch := t.At(idx)
	ch.Type = HostType
	ch.Src = &Address{Core: src}
	ch.Dst = &Address{Core: platform.Host}
	ch.TokenSize = tokenSize
	ch.TokenNum = tokenNum
	ring := &HostRing{Buf: make([]byte, int(tokenSize)*int(tokenNum+1))}
	desc := &HostDescriptor{Filename: filename, FD: -1}
	ch.Dst.PublishDev(ring)
	ch.Dst.PublishHost(desc)
}

// SetHostInput populates slot idx as a HOST channel feeding worker dst
// from filename, opened read-only.
func (t *Table) SetHostInput(idx int, filename string, dst platform.WorkerID, tokenSize, tokenNum uint32) {
	ch := t.At(idx)
	ch.Type = HostType
	ch.Src = &Address{Core: platform.Host}
	ch.Dst = &Address{Core: dst}
	ch.TokenSize = tokenSize
	ch.TokenNum = tokenNum
	ring := &HostRing{Buf: make([]byte, int(tokenSize)*int(tokenNum+1))}
	desc := &HostDescriptor{Filename: filename, FD: -1}
	ch.Src.PublishDev(ring)
	ch.Src.PublishHost(desc)
}
