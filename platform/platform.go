// Copyright 2026 The Dataflowcomm Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package platform isolates the handful of hardware-abstraction primitives
// the comm runtime needs: a per-worker identity, an idle/wake pair for
// channels that can afford to sleep, and a pure-spin primitive for channels
// that cannot (the host has no interrupt path back to a worker).
//
// On a manycore device these primitives compile to a TRAP-based global
// address translation, a software-interrupt WAKEUP, and an IDLE
// instruction. In thread mode (this implementation) every
// worker is a goroutine in one address space, so GlobalAddress is the
// identity function, idle is cooperative backoff, and wake is a channel
// send — but the shape of the API is unchanged, so the handshake and ring
// code above it do not need to know which mode they are running in.
package platform

import (
	"code.hybscloud.com/spin"

	"code.hybscloud.com/iox"
)

// WorkerID is a worker's identity within a Table. The host sentinel is -1.
type WorkerID int32

// Host is the sentinel WorkerID naming the host side of a HOST channel.
const Host WorkerID = -1

// GlobalAddress translates a worker-local address into one any peer can
// dereference. On a manycore fabric this folds in the row/column of the
// calling core; in thread mode every worker shares one address space, so
// this is the identity function. It exists so that code which must reason
// about cross-address-space pointers (discovery, the host drainer) has a
// single named seam.
func GlobalAddress(local uintptr) uintptr { return local }

// Idle backs off a busy-waiting worker that CAN be woken by a peer's
// shared-memory write (default channels, and the create/connect
// rendezvous). It must never be used on the host side of a host channel:
// the host has no way to raise an interrupt at a worker, so a worker that
// idled there would sleep forever. See Spin for that case.
func Idle(b *iox.Backoff) { b.Wait() }

// Spin is a progressive busy-wait that never blocks the scheduler:
// each Once call burns a short, growing number of pause cycles. Host-channel
// endpoints use this exclusively — the host polls, so a worker idling on a
// host channel deadlocks the pair.
type Spin struct{ w spin.Wait }

// Once spins one step. Zero value is ready to use; declare a fresh Spin
// before each wait loop so the progression restarts per wait.
func (s *Spin) Once() { s.w.Once() }
