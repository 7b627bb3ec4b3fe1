// Copyright 2026 The Dataflowcomm Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hostio_test

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/sraase/dataflowcomm/endpoint"
	"github.com/sraase/dataflowcomm/hostio"
	"github.com/sraase/dataflowcomm/table"
)

func testLogger(t *testing.T) *zap.SugaredLogger {
	t.Helper()
	return zap.NewNop().Sugar()
}

// TestOpenOutputCreatesTruncatedFile checks that an output channel's
// backing file is created fresh, matching the truncate-on-open contract.
func TestOpenOutputCreatesTruncatedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.dat")
	if err := os.WriteFile(path, []byte("stale"), 0o644); err != nil {
		t.Fatalf("seeding stale file: %v", err)
	}

	tb := table.New(1)
	tb.SetHostOutput(0, 0, path, 4, 3)

	rt, err := hostio.Open(tb, testLogger(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rt.Close()

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("file not truncated: len=%d, want 0", len(got))
	}
}

// TestOpenInputMissingFileIsFatal checks that a HOST input channel whose
// file cannot be opened surfaces a Go error rather than panicking.
func TestOpenInputMissingFileIsFatal(t *testing.T) {
	tb := table.New(1)
	tb.SetHostInput(0, filepath.Join(t.TempDir(), "does-not-exist.dat"), 0, 4, 3)

	if _, err := hostio.Open(tb, testLogger(t)); err == nil {
		t.Fatal("Open: want error for missing input file, got nil")
	}
}

// TestDrainWritesTokensToFile runs the drain path end to end: a worker
// producer feeds a HOST output channel, Tick drains it to a real file,
// and the file ends up holding exactly the bytes written, in order.
func TestDrainWritesTokensToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.dat")

	tb := table.New(1)
	tb.SetHostOutput(0, 0, path, 4, 3)
	w := endpoint.CreateHostProducer(0, tb.At(0))

	rt, err := hostio.Open(tb, testLogger(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rt.Close()

	tokens := [][]byte{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
		{9, 10, 11, 12},
	}
	for _, tok := range tokens {
		w.Write(tok, 1)
	}
	rt.Tick()

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	if len(got) != len(want) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	if got := tb.At(0).Dst.Host().Count(); got != 3 {
		t.Fatalf("descriptor Count() = %d, want 3", got)
	}
}

// TestFillReadsTokensFromFile runs the fill path end to end: a real file
// seeds a HOST input channel, Tick fills the ring, and the worker
// consumer reads back the same bytes in order.
func TestFillReadsTokensFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.dat")
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("seeding input file: %v", err)
	}

	tb := table.New(1)
	tb.SetHostInput(0, path, 1, 4, 3)
	r := endpoint.CreateHostConsumer(1, tb.At(0))

	rt, err := hostio.Open(tb, testLogger(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rt.Close()

	rt.Tick()

	buf := make([]byte, 4)
	r.Read(buf, 1)
	for i := 0; i < 4; i++ {
		if buf[i] != data[i] {
			t.Fatalf("token 0[%d] = %d, want %d", i, buf[i], data[i])
		}
	}
	r.Read(buf, 1)
	for i := 0; i < 4; i++ {
		if buf[i] != data[4+i] {
			t.Fatalf("token 1[%d] = %d, want %d", i, buf[i], data[4+i])
		}
	}

	if got := tb.At(0).Src.Host().Count(); got != 2 {
		t.Fatalf("descriptor Count() = %d, want 2", got)
	}
}

// TestDumpAndCloseDoNotPanic exercises the diagnostic/cleanup path against
// the magic "stdout" filename, which Close must skip without attempting to
// close an unopened file.
func TestDumpAndCloseDoNotPanic(t *testing.T) {
	tb := table.New(2)
	tb.SetHostOutput(0, 0, "stdout", 4, 3)
	tb.SetDefault(1, 0, 1, 4, 3)

	rt, err := hostio.Open(tb, testLogger(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rt.Dump()
	if err := rt.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
