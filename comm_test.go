// Copyright 2026 The Dataflowcomm Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package comm_test

import (
	"encoding/binary"
	"sync"
	"testing"

	comm "github.com/sraase/dataflowcomm"
	"github.com/sraase/dataflowcomm/fault"
	"github.com/sraase/dataflowcomm/table"
)

// TestFacadeEndToEnd drives a single DEFAULT channel entirely through the
// root package's facade, the same surface a worker program would call.
func TestFacadeEndToEnd(t *testing.T) {
	tb := table.New(1)
	tb.SetDefault(0, 0, 1, 4, 3)

	var wg sync.WaitGroup
	wg.Add(2)

	var got []uint32
	go func() {
		defer wg.Done()
		ctx := comm.Init(0, tb, 1<<16)
		w := ctx.GetWHandle(0)
		buf := make([]byte, 4)
		for i := uint32(1); i <= 6; i++ {
			binary.LittleEndian.PutUint32(buf, i)
			comm.Write(w, buf, 1)
		}
	}()
	go func() {
		defer wg.Done()
		ctx := comm.Init(1, tb, 1<<16)
		r := ctx.GetRHandle(0)
		buf := make([]byte, 4)
		for i := 0; i < 6; i++ {
			comm.Read(r, buf, 1)
			got = append(got, binary.LittleEndian.Uint32(buf))
		}
	}()
	wg.Wait()

	for i := 0; i < 6; i++ {
		if got[i] != uint32(i+1) {
			t.Fatalf("got[%d] = %d, want %d", i, got[i], i+1)
		}
	}
}

// TestGetWHandleTrapsOnWrongRole checks that asking for the write handle
// of a channel this worker only consumes traps TABLE.
func TestGetWHandleTrapsOnWrongRole(t *testing.T) {
	tb := table.New(1)
	tb.SetDefault(0, 0, 1, 4, 3)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); comm.Init(0, tb, 1<<16) }()
	var ctx1 *comm.Context
	go func() { defer wg.Done(); ctx1 = comm.Init(1, tb, 1<<16) }()
	wg.Wait()

	defer func() {
		r := recover()
		f, ok := r.(*fault.Fault)
		if !ok {
			t.Fatalf("panic value is %T, want *fault.Fault", r)
		}
		if f.Code != fault.TABLE {
			t.Fatalf("code = %v, want TABLE", f.Code)
		}
	}()
	ctx1.GetWHandle(0)
}

// TestLevelAndSpaceThroughFacade checks Level/Space round-trip through
// the free-function facade.
func TestLevelAndSpaceThroughFacade(t *testing.T) {
	tb := table.New(1)
	tb.SetDefault(0, 0, 1, 4, 3)

	var wg sync.WaitGroup
	wg.Add(2)
	var w, r *comm.Context
	go func() { defer wg.Done(); w = comm.Init(0, tb, 1<<16) }()
	go func() { defer wg.Done(); r = comm.Init(1, tb, 1<<16) }()
	wg.Wait()

	wh := w.GetWHandle(0)
	rh := r.GetRHandle(0)

	comm.Write(wh, []byte{1, 2, 3, 4}, 1)
	comm.Write(wh, []byte{5, 6, 7, 8}, 1)

	if got := comm.Level(rh); got != 2 {
		t.Fatalf("Level() = %d, want 2", got)
	}
	if got := comm.Space(wh); got != 1 {
		t.Fatalf("Space() = %d, want 1", got)
	}
}
