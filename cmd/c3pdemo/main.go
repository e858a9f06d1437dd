// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Command c3pdemo exercises the scheduler, sequencer, and an M2MLink pair
// over a real TCP connection, the way xtaci/kcptun's client/server mains
// exercise KCP/smux — a thin CLI shell around the library, not part of the
// core itself.
package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/xtaci/c3p/buffer"
	"github.com/xtaci/c3p/m2m"
	"github.com/xtaci/c3p/pipeline"
	"github.com/xtaci/c3p/platform"
	"github.com/xtaci/c3p/scheduler"
	"github.com/xtaci/c3p/sequencer"
	"github.com/xtaci/c3p/typed"
)

// VERSION is injected by buildflags.
var VERSION = "SELFBUILD"

// connSink adapts a net.Conn's write side to pipeline.Accepter so an
// m2m.Link can drive it as its outbound transport.
type connSink struct {
	conn net.Conn
}

func (s connSink) BufferAvailable() int { return 64 * 1024 }

func (s connSink) PushBuffer(c *buffer.Chain) (pipeline.ClaimResult, error) {
	n := c.Length()
	if n == 0 {
		return pipeline.Full, nil
	}
	b := c.Bytes()
	if _, err := s.conn.Write(b); err != nil {
		return pipeline.Rejected, err
	}
	c.Cull(n)
	return pipeline.Full, nil
}

// pumpInbound feeds transport bytes into the link from its own goroutine.
// The link itself is single-threaded (it must not be called concurrently),
// so mu serializes it against the poll loop.
func pumpInbound(conn net.Conn, link *m2m.Link, mu *sync.Mutex) {
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			mu.Lock()
			_, perr := link.PushBuffer(buffer.FromBytes(buf[:n]))
			mu.Unlock()
			if perr != nil {
				color.Red("inbound push error: %v", perr)
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func runLink(conn net.Conn, label string, pingEvery time.Duration) {
	var mu sync.Mutex
	link := m2m.New(connSink{conn}, platform.NewSystemClock(), m2m.DefaultOptions())
	link.OnLog = func(text string) {
		color.Cyan("[%s] peer log: %s", label, text)
	}
	link.OnApplication = func(payload *typed.KeyValuePair, id uint16, needsReply bool) {
		if e, ok := payload.RetrieveByKey("msg"); ok {
			s, _ := e.Value.GetString()
			color.Green("[%s] received: %s", label, s)
		}
		if needsReply {
			reply := typed.New()
			reply.Append(typed.NewString("ack"), "msg")
			link.Reply(id, reply)
		}
	}
	link.OnReply = func(id uint16, payload *typed.KeyValuePair, timedOut bool) {
		if timedOut {
			color.Yellow("[%s] message %d timed out", label, id)
			return
		}
		color.Green("[%s] reply to %d acknowledged", label, id)
	}

	link.Start()
	go pumpInbound(conn, link, &mu)

	sch := scheduler.New(platform.NewSystemClock())
	if pingEvery > 0 {
		sch.Add(&scheduler.Schedule{
			Name:        "ping",
			PeriodUs:    uint64(pingEvery.Microseconds()),
			Recurrences: -1,
			Enabled:     true,
			Action: func() {
				// Runs from ServiceSchedules under mu; do not re-lock.
				kvp := typed.New()
				kvp.Append(typed.NewString("hello from "+label), "msg")
				link.Send(kvp, true)
			},
		})
	}

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	var lastState m2m.State = -1
	for range ticker.C {
		sch.AdvanceScheduler(20_000)
		mu.Lock()
		sch.ServiceSchedules()
		err := link.Poll()
		state := link.State()
		mu.Unlock()
		if err != nil {
			color.Red("[%s] poll error: %v", label, err)
			return
		}
		if state != lastState {
			color.Magenta("[%s] state -> %s", label, state)
			lastState = state
		}
	}
}

func serve(c *cli.Context) error {
	addr := c.String("listen")
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "listen")
	}
	color.White("c3pdemo serving on %s", addr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			return errors.Wrap(err, "accept")
		}
		go runLink(conn, "server", 0)
	}
}

// bringup orchestrates a fixed bring-up checklist with AsyncSequencer:
// open the listener, accept one peer connection, and run its M2MLink up to
// READY, each step gated on the previous one having passed. It demonstrates
// the sequencer driving a real multi-step startup instead of the synthetic
// step tables its own tests use.
const (
	stepListen uint32 = 1 << iota
	stepAccept
	stepLinkReady
)

func bringup(c *cli.Context) error {
	addr := c.String("listen")
	var mu sync.Mutex
	var ln net.Listener
	var conn net.Conn
	var link *m2m.Link

	seq := sequencer.New([]sequencer.StepDef{
		{
			Flag:  stepListen,
			Label: "listen",
			Dispatch: func() sequencer.TriState {
				var err error
				ln, err = net.Listen("tcp", addr)
				if err != nil {
					color.Red("bringup: listen: %v", err)
					return sequencer.Fail
				}
				color.White("bringup: listening on %s", addr)
				return sequencer.Success
			},
		},
		{
			Flag:    stepAccept,
			Label:   "accept",
			DepMask: stepListen,
			Dispatch: func() sequencer.TriState {
				go func() {
					accepted, err := ln.Accept()
					if err == nil {
						mu.Lock()
						conn = accepted
						mu.Unlock()
					}
				}()
				return sequencer.Success
			},
			Poll: func() sequencer.TriState {
				mu.Lock()
				accepted := conn
				mu.Unlock()
				if accepted == nil {
					return sequencer.Defer
				}
				color.White("bringup: accepted %s", accepted.RemoteAddr())
				return sequencer.Success
			},
		},
		{
			Flag:    stepLinkReady,
			Label:   "link-ready",
			DepMask: stepAccept,
			Dispatch: func() sequencer.TriState {
				link = m2m.New(connSink{conn}, platform.NewSystemClock(), m2m.DefaultOptions())
				link.Start()
				go pumpInbound(conn, link, &mu)
				return sequencer.Success
			},
			Poll: func() sequencer.TriState {
				mu.Lock()
				link.Poll()
				ready := link.State() == m2m.StateReady
				mu.Unlock()
				if ready {
					color.Green("bringup: link READY")
					return sequencer.Success
				}
				return sequencer.Defer
			},
		},
	})
	seq.RequestSteps(stepListen | stepAccept | stepLinkReady)

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		seq.Poll()
		if seq.RequestFulfilled() {
			break
		}
	}
	color.Magenta("bringup: checklist complete")
	return nil
}

func dial(c *cli.Context) error {
	addr := c.String("remote")
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "dial")
	}
	color.White("c3pdemo connected to %s", addr)
	runLink(conn, "client", 2*time.Second)
	return nil
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	app := cli.NewApp()
	app.Name = "c3pdemo"
	app.Usage = "exercise the scheduler, sequencer, and M2MLink over TCP"
	app.Version = VERSION
	app.Commands = []cli.Command{
		{
			Name:  "serve",
			Usage: "listen for an M2MLink peer",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "listen, l", Value: ":7890", Usage: "listen address"},
			},
			Action: serve,
		},
		{
			Name:  "dial",
			Usage: "connect to an M2MLink peer and ping it periodically",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "remote, r", Value: "127.0.0.1:7890", Usage: "remote address"},
			},
			Action: dial,
		},
		{
			Name:  "bringup",
			Usage: "run a sequencer-driven bring-up checklist: listen, accept, reach READY",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "listen, l", Value: ":7891", Usage: "listen address"},
			},
			Action: bringup,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
