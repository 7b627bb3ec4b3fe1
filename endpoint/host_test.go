// Copyright 2026 The Dataflowcomm Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package endpoint_test

import (
	"encoding/binary"
	"sync"
	"testing"

	"github.com/sraase/dataflowcomm/endpoint"
	"github.com/sraase/dataflowcomm/platform"
	"github.com/sraase/dataflowcomm/table"
)

// TestWorkerToHostDrain feeds a HOST output channel past its capacity
// from a worker goroutine while a simulated host reader drains the
// host-visible ring, and checks the drained sequence is intact.
func TestWorkerToHostDrain(t *testing.T) {
	tb := table.New(1)
	tb.SetHostOutput(0, 0, "stdout", 4, 3)
	h := endpoint.CreateHostProducer(0, tb.At(0))
	ring, ok := tb.At(0).Dst.Dev().(*table.HostRing)
	if !ok {
		t.Fatalf("Dst.Dev() = %T, want *table.HostRing", tb.At(0).Dst.Dev())
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		buf := make([]byte, 4)
		for i := uint32(1); i <= 5; i++ {
			binary.LittleEndian.PutUint32(buf, i)
			h.Write(buf, 1)
		}
	}()

	// Simulate the host draining the ring, the way hostio.drain would,
	// without pulling in the hostio package itself.
	var got []uint32
	rp := uint64(0)
	for len(got) < 5 {
		wp := ring.WP.LoadAcquire()
		for rp != wp {
			off := int(rp) * 4
			got = append(got, binary.LittleEndian.Uint32(ring.Buf[off:off+4]))
			rp++
			if rp >= 4 {
				rp -= 4
			}
			ring.RP.StoreRelease(rp)
			wp = ring.WP.LoadAcquire()
		}
	}
	wg.Wait()

	want := []uint32{1, 2, 3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

// TestHostToWorkerFill has a simulated host feed a HOST input channel's
// ring while the worker consumer reads the same sequence back in order.
func TestHostToWorkerFill(t *testing.T) {
	tb := table.New(1)
	tb.SetHostInput(0, "in.dat", 1, 4, 3)
	h := endpoint.CreateHostConsumer(1, tb.At(0))
	ring, ok := tb.At(0).Src.Dev().(*table.HostRing)
	if !ok {
		t.Fatalf("Src.Dev() = %T, want *table.HostRing", tb.At(0).Src.Dev())
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		wp := uint64(0)
		for i := uint32(1); i <= 5; i++ {
			for {
				rp := ring.RP.LoadAcquire()
				space := uint64(4) - 1 + rp - wp
				for space >= 4 {
					space -= 4
				}
				if space > 0 {
					break
				}
			}
			off := int(wp) * 4
			binary.LittleEndian.PutUint32(ring.Buf[off:off+4], i)
			wp++
			if wp >= 4 {
				wp -= 4
			}
			ring.WP.StoreRelease(wp)
		}
	}()

	buf := make([]byte, 4)
	var got []uint32
	for i := 0; i < 5; i++ {
		h.Read(buf, 1)
		got = append(got, binary.LittleEndian.Uint32(buf))
	}
	wg.Wait()

	want := []uint32{1, 2, 3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

// TestHostHandleOwner checks that a HOST handle still reports the
// creating worker, not the host sentinel, via table.Endpoint.
func TestHostHandleOwner(t *testing.T) {
	tb := table.New(1)
	tb.SetHostOutput(0, 2, "stdout", 4, 3)
	h := endpoint.CreateHostProducer(2, tb.At(0))
	if h.Owner() != platform.WorkerID(2) {
		t.Fatalf("Owner() = %v, want 2", h.Owner())
	}
}
