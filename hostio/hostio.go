// Copyright 2026 The Dataflowcomm Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package hostio implements the host side of every HOST channel: opening
// the backing file for each one, and the drain/fill tick that
// moves bytes between those files and the host-visible rings every
// worker's host endpoints read and write.
//
// The host never idles: Tick services every open channel once and
// returns, so the caller's own poll loop decides the cadence and one
// host thread can multiplex every channel rather than blocking per
// channel.
package hostio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/sraase/dataflowcomm/fault"
	"github.com/sraase/dataflowcomm/platform"
	"github.com/sraase/dataflowcomm/table"
)

// direction names which way bytes flow between the host and a channel's
// worker side.
type direction uint8

const (
	// output channels drain a worker's ring into a file (the host is the
	// channel's consumer).
	output direction = iota
	// input channels fill a worker's ring from a file (the host is the
	// channel's producer).
	input
)

func (d direction) String() string {
	switch d {
	case output:
		return "output"
	case input:
		return "input"
	default:
		return "invalid"
	}
}

// channel is the host's private bookkeeping for one open HOST channel.
type channel struct {
	idx       int
	dir       direction
	tokenSize uint64
	capacity  uint64
	ring      *table.HostRing
	desc      *table.HostDescriptor
	file      *os.File
	eof       bool
}

// Runtime is the host's live view of every HOST channel in a table, each
// with its backing file opened.
type Runtime struct {
	table    *table.Table
	channels []*channel
	log      *zap.SugaredLogger
}

// Open opens the backing file for every HOST channel in t. filename
// "stdout" binds fd 1 without opening anything; an output channel's file
// is created and truncated; an input channel's file is opened read-only.
// A failed open is fatal: there is no degraded mode for a
// host channel that cannot reach its file.
func Open(t *table.Table, log *zap.SugaredLogger) (*Runtime, error) {
	rt := &Runtime{table: t, log: log}
	for i := 0; i < t.Len(); i++ {
		ch := t.At(i)
		if ch.Type != table.HostType {
			continue
		}
		c := &channel{idx: i, tokenSize: uint64(ch.TokenSize), capacity: uint64(ch.Capacity())}
		switch {
		case ch.Dst.Core == platform.Host:
			c.dir = output
			c.ring, _ = ch.Dst.Dev().(*table.HostRing)
			c.desc = ch.Dst.Host()
		case ch.Src.Core == platform.Host:
			c.dir = input
			c.ring, _ = ch.Src.Dev().(*table.HostRing)
			c.desc = ch.Src.Host()
		default:
			fault.Trapf(fault.TABLE, "channel %d: HOST channel has no host end", i)
		}
		if c.ring == nil || c.desc == nil {
			fault.Trapf(fault.TABLE, "channel %d: host ring or descriptor not published", i)
		}
		if err := c.open(); err != nil {
			return nil, fmt.Errorf("channel %d (%s): %w", i, c.desc.Filename, err)
		}
		log.Infow("opened host channel",
			"channel", c.idx, "direction", c.dir.String(),
			"file", c.desc.Filename, "fd", c.desc.FD)
		rt.channels = append(rt.channels, c)
	}
	return rt, nil
}

func (c *channel) open() error {
	if c.desc.Filename == "stdout" {
		c.file = os.Stdout
		c.desc.FD = 1
		return nil
	}
	var f *os.File
	var err error
	switch c.dir {
	case output:
		f, err = os.OpenFile(c.desc.Filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	case input:
		f, err = os.OpenFile(c.desc.Filename, os.O_RDONLY, 0)
	}
	if err != nil {
		return err
	}
	c.file = f
	c.desc.FD = int(f.Fd())
	return nil
}

// Tick services every open host channel exactly once: draining whatever
// an output channel's ring currently holds, and filling whatever room an
// input channel's ring currently has. It never blocks.
func (rt *Runtime) Tick() {
	for _, c := range rt.channels {
		switch c.dir {
		case output:
			rt.drain(c)
		case input:
			rt.fill(c)
		}
	}
}

// drain moves whatever tokens are currently in c's ring to its file. It
// writes back only rp: wp belongs to the worker producer on the other
// side, and drain must never touch it.
func (rt *Runtime) drain(c *channel) {
	rp := c.ring.RP.LoadRelaxed()
	wp := c.ring.WP.LoadAcquire()
	level := c.capacity + wp - rp
	for level >= c.capacity {
		level -= c.capacity
	}
	if level == 0 {
		return
	}
	ts := int(c.tokenSize)
	var n uint64
	for n < level {
		off := int(rp) * ts
		if _, err := c.file.Write(c.ring.Buf[off : off+ts]); err != nil {
			rt.log.Fatalw("host drain write failed", "channel", c.idx, "error", err)
		}
		rp++
		if rp >= c.capacity {
			rp -= c.capacity
		}
		n++
	}
	if n > 0 {
		c.ring.RP.StoreRelease(rp)
		c.desc.Incr(n)
	}
}

// fill moves whatever file data is available into the room currently
// free in c's ring. It writes back only wp: rp belongs to the worker
// consumer on the other side. Reaching EOF is not an error — fill just
// stops moving tokens for this channel from then on.
func (rt *Runtime) fill(c *channel) {
	if c.eof {
		return
	}
	wp := c.ring.WP.LoadRelaxed()
	rp := c.ring.RP.LoadAcquire()
	space := c.capacity - 1 + rp - wp
	for space >= c.capacity {
		space -= c.capacity
	}
	if space == 0 {
		return
	}
	ts := int(c.tokenSize)
	var n uint64
	for n < space {
		off := int(wp) * ts
		if _, err := io.ReadFull(c.file, c.ring.Buf[off:off+ts]); err != nil {
			if errors.Is(err, io.EOF) {
				c.eof = true
				rt.log.Debugw("host input channel reached EOF", "channel", c.idx, "file", c.desc.Filename)
				break
			}
			rt.log.Fatalw("host fill read failed", "channel", c.idx, "error", err)
		}
		wp++
		if wp >= c.capacity {
			wp -= c.capacity
		}
		n++
	}
	if n > 0 {
		c.ring.WP.StoreRelease(wp)
		c.desc.Incr(n)
	}
}

// Dump logs one diagnostic line per populated table slot: token geometry
// plus, for a DEFAULT channel, the two ends and whether each has
// published its endpoint; for a HOST channel, the direction, file, fd,
// ring cursors, level/space, and lifetime token count.
func (rt *Runtime) Dump() {
	rt.log.Infow("channel configuration", "channels", rt.table.Len())
	for i := 0; i < rt.table.Len(); i++ {
		ch := rt.table.At(i)
		switch ch.Type {
		case table.Default:
			rt.log.Infow("channel",
				"channel", i, "type", ch.Type.String(),
				"token_size", ch.TokenSize, "token_num", ch.TokenNum,
				"src", ch.Src.Core, "dst", ch.Dst.Core,
				"src_published", ch.Src.Dev() != nil,
				"dst_published", ch.Dst.Dev() != nil,
			)
		case table.HostType:
			c := rt.byIndex(i)
			if c == nil {
				continue
			}
			rp := c.ring.RP.LoadAcquire()
			wp := c.ring.WP.LoadAcquire()
			level := c.capacity + wp - rp
			for level >= c.capacity {
				level -= c.capacity
			}
			space := c.capacity - 1 - level
			rt.log.Infow("channel",
				"channel", i, "type", ch.Type.String(),
				"token_size", ch.TokenSize, "token_num", ch.TokenNum,
				"direction", c.dir.String(),
				"file", c.desc.Filename, "fd", c.desc.FD,
				"rp", rp, "wp", wp,
				"level", level, "space", space,
				"tokens", c.desc.Count(),
			)
		}
	}
}

func (rt *Runtime) byIndex(idx int) *channel {
	for _, c := range rt.channels {
		if c.idx == idx {
			return c
		}
	}
	return nil
}

// Close closes every file this runtime opened. Channels bound to the
// "stdout" magic name borrowed the process's stdout rather than opening
// anything, so they are skipped.
func (rt *Runtime) Close() error {
	var errs error
	for _, c := range rt.channels {
		if c.file == nil || c.file == os.Stdout {
			continue
		}
		if err := c.file.Close(); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}
