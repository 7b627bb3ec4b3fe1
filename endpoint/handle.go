// Copyright 2026 The Dataflowcomm Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package endpoint implements the two channel transports a worker can
// hold a handle to — DEFAULT (worker-to-worker, ring lives in the
// consumer's memory) and HOST (worker-to-host, ring lives in host-visible
// shared memory) — behind one dispatch type, Handle.
//
// Rather than a struct of per-operation function pointers that traps on
// a nil slot, a Handle holds a concrete implementation behind an
// interface and traps INVALID on a type assertion failure. Same
// contract, idiomatic shape.
package endpoint

import (
	"github.com/sraase/dataflowcomm/fault"
	"github.com/sraase/dataflowcomm/platform"
	"github.com/sraase/dataflowcomm/table"
)

// Role names which side of a channel a Handle was created for.
type Role uint8

const (
	RoleProducer Role = iota + 1
	RoleConsumer
)

func (r Role) String() string {
	switch r {
	case RoleProducer:
		return "producer"
	case RoleConsumer:
		return "consumer"
	default:
		return "invalid"
	}
}

// reader, peeker, writer, leveler and spacer are the operations a concrete
// endpoint may support. A Handle's impl satisfies whichever subset its
// kind and role allow; Handle.Read et al. trap INVALID when it doesn't.
type reader interface{ read(buf []byte, count int) int }
type peeker interface{ peek(buf []byte, count int) int }
type writer interface{ write(buf []byte, count int) int }
type leveler interface{ level() int }
type spacer interface{ space() int }

// Handle is the worker-facing view of one end of one channel. It
// satisfies table.Endpoint, so it can be published via
// table.Address.PublishDev and looked up by a peer during discovery.
type Handle struct {
	owner platform.WorkerID
	typ   table.Type
	role  Role
	impl  any
}

// Owner implements table.Endpoint.
func (h *Handle) Owner() platform.WorkerID { return h.owner }

// Type reports the channel transport this handle was created for.
func (h *Handle) Type() table.Type { return h.typ }

// Role reports whether this handle is the producer or consumer side.
func (h *Handle) Role() Role { return h.role }

// Read copies count tokens into buf, blocking (per the handle's
// transport) until each is available. It traps INVALID if the handle is
// not a consumer.
func (h *Handle) Read(buf []byte, count int) int {
	r, ok := h.impl.(reader)
	if !ok {
		fault.Trapf(fault.INVALID, "read on %s %s handle", h.typ, h.role)
	}
	return r.read(buf, count)
}

// Peek copies up to count tokens into buf without consuming them, never
// blocking: it stops early once the ring goes dry and returns how many it
// copied. It traps INVALID if the handle is not a consumer.
func (h *Handle) Peek(buf []byte, count int) int {
	p, ok := h.impl.(peeker)
	if !ok {
		fault.Trapf(fault.INVALID, "peek on %s %s handle", h.typ, h.role)
	}
	return p.peek(buf, count)
}

// Write copies count tokens from buf into the channel, blocking until
// each has room. It traps INVALID if the handle is not a producer.
func (h *Handle) Write(buf []byte, count int) int {
	w, ok := h.impl.(writer)
	if !ok {
		fault.Trapf(fault.INVALID, "write on %s %s handle", h.typ, h.role)
	}
	return w.write(buf, count)
}

// Level reports how many tokens are currently readable without blocking.
// It traps INVALID if the handle is not a consumer.
func (h *Handle) Level() int {
	l, ok := h.impl.(leveler)
	if !ok {
		fault.Trapf(fault.INVALID, "level on %s %s handle", h.typ, h.role)
	}
	return l.level()
}

// Space reports how many tokens can currently be written without
// blocking. It traps INVALID if the handle is not a producer.
func (h *Handle) Space() int {
	s, ok := h.impl.(spacer)
	if !ok {
		fault.Trapf(fault.INVALID, "space on %s %s handle", h.typ, h.role)
	}
	return s.space()
}
