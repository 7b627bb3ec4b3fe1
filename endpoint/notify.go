// Copyright 2026 The Dataflowcomm Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package endpoint

import (
	"code.hybscloud.com/iox"

	"github.com/sraase/dataflowcomm/platform"
)

// notifier is an edge-coalesced, single-slot wake channel: a producer or
// consumer that just made progress signals it, and the peer blocked in
// idle drains it non-blockingly before falling back to backoff. Multiple
// signals between two idle checks coalesce into one wakeup, which is
// exactly what a DEFAULT channel's waiter needs — it only cares that
// *something* changed, not how many times.
type notifier struct {
	ch chan struct{}
}

func newNotifier() notifier {
	return notifier{ch: make(chan struct{}, 1)}
}

// signal wakes one pending idle, or does nothing if one is already
// pending.
func (n notifier) signal() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// idle drains a pending signal immediately, or backs off once and
// retries. A DEFAULT-channel waiter calls this in a loop; it never blocks
// for longer than a single backoff step, so a signal that arrives mid-step
// is never missed for more than one step.
func (n notifier) idle(b *iox.Backoff) {
	select {
	case <-n.ch:
		b.Reset()
	default:
		platform.Idle(b)
	}
}
