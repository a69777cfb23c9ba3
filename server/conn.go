// File: server/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-connection frame pump. The reader scans headers incrementally, checks
// them against the server policy, unmasks payloads into pooled buffers and
// pushes complete frames into the hub channel through the connection's
// Sender. Writes are serialized; the hub owns closing the socket.

package server

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/levee/channel"
	"github.com/momentics/levee/pool"
	"github.com/momentics/levee/protocol"
)

// message is the OBJ payload carried from a reader to the hub.
type message struct {
	op  protocol.Opcode
	fin bool
	buf *pool.Buffer
}

func freeMessage(obj any) {
	if m, ok := obj.(*message); ok && m.buf != nil {
		m.buf.Release()
	}
}

// closeReply is the close frame the hub sends before dropping the socket.
type closeReply struct {
	status protocol.Status
	reason string
}

var goingAway = &closeReply{status: protocol.StatusGoingAway}

type conn struct {
	srv    *Server
	nc     net.Conn
	r      io.Reader
	sender *channel.Sender

	wmu       sync.Mutex
	reply     atomic.Pointer[closeReply]
	closeOnce sync.Once
}

func newConn(s *Server, nc net.Conn, rw *bufio.ReadWriter) *conn {
	c := &conn{srv: s, nc: nc, r: nc}
	if rw != nil && rw.Reader != nil {
		c.r = rw.Reader
	}
	return c
}

// serve runs until the peer closes, the socket fails or a frame is rejected.
func (c *conn) serve() {
	var (
		scanner = protocol.NewScanner()
		frame   protocol.Frame
		payload *pool.Buffer
		pos     uint64
	)
	defer func() {
		if payload != nil {
			payload.Release()
		}
		// Emits this connection's EOF unless Close already did.
		c.sender.Unref()
	}()

	chunk := make([]byte, c.srv.cfg.ReadBufferSize)
	for {
		k, rerr := c.r.Read(chunk)
		p := chunk[:k]
		for {
			if payload == nil {
				if len(p) == 0 {
					break
				}
				n, done := scanner.Scan(p)
				p = p[n:]
				if !done {
					break
				}
				frame = scanner.Frame
				if err := protocol.Validate(&frame, c.srv.policy); err != nil {
					c.fail(err)
					return
				}
				c.srv.metrics.FrameIn(&frame)
				payload = c.srv.bufs.Get()
				pos = 0
			}
			take := frame.Length() - pos
			if uint64(len(p)) < take {
				take = uint64(len(p))
			}
			dst := payload.Extend(int(take))
			if frame.Masked {
				protocol.MaskAt(dst, p[:take], frame.MaskKey, pos)
			} else {
				copy(dst, p[:take])
			}
			pos += take
			p = p[take:]
			if pos < frame.Length() {
				break
			}
			buf := payload
			payload = nil
			if !c.dispatch(&frame, buf) {
				return
			}
		}
		if rerr != nil {
			if !errors.Is(rerr, io.EOF) && !errors.Is(rerr, net.ErrClosed) {
				c.srv.logf("[server] read from %s: %v", c.nc.RemoteAddr(), rerr)
			}
			return
		}
	}
}

// dispatch consumes one complete frame. It returns false when reading must stop.
func (c *conn) dispatch(f *protocol.Frame, buf *pool.Buffer) bool {
	switch f.Opcode {
	case protocol.OpcodePing:
		err := c.writePong(buf.Bytes())
		buf.Release()
		return err == nil
	case protocol.OpcodePong:
		buf.Release()
		return true
	case protocol.OpcodeClose:
		status, reason, err := protocol.CheckClose(buf.Bytes())
		buf.Release()
		if err != nil {
			c.fail(err)
			return false
		}
		c.reply.Store(&closeReply{status: status, reason: reason})
		c.sender.Close()
		return false
	default:
		m := &message{op: f.Opcode, fin: f.Fin, buf: buf}
		// A failed send has already released m.
		return c.sender.SendObj(0, m, freeMessage) == nil
	}
}

// fail queues a protocol close after whatever was already echoed.
func (c *conn) fail(err error) {
	status := protocol.StatusFor(err)
	c.srv.metrics.ProtocolError(status)
	c.srv.logf("[server] %s: %v", c.nc.RemoteAddr(), err)
	c.reply.Store(&closeReply{status: status})
	c.sender.Close()
}

func (c *conn) deadline() {
	c.nc.SetWriteDeadline(time.Now().Add(c.srv.cfg.WriteTimeout))
}

// writeFrame sends one unmasked frame.
func (c *conn) writeFrame(op protocol.Opcode, fin bool, payload []byte) error {
	f := protocol.NewFrame(op, fin, uint64(len(payload)))
	var hdr [protocol.MaxFrameHeaderLen]byte
	n, err := protocol.EncodeFrame(hdr[:], &f)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.deadline()
	bufs := net.Buffers{hdr[:n], payload}
	if _, err := bufs.WriteTo(c.nc); err != nil {
		return err
	}
	c.srv.metrics.FrameOut(op, len(payload))
	return nil
}

func (c *conn) writePong(payload []byte) error {
	var out [2 + protocol.MaxControlPayloadLen]byte
	n, err := protocol.EncodePong(out[:], payload, nil)
	if err != nil {
		return err
	}
	return c.writeRaw(protocol.OpcodePong, out[:n], len(payload))
}

func (c *conn) writeRaw(op protocol.Opcode, wire []byte, payload int) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.deadline()
	if _, err := c.nc.Write(wire); err != nil {
		return err
	}
	c.srv.metrics.FrameOut(op, payload)
	return nil
}

// shutdown sends the pending close reply, or going-away, and drops the socket.
func (c *conn) shutdown() {
	reply := c.reply.Load()
	if reply == nil {
		reply = goingAway
	}
	var out [2 + protocol.MaxControlPayloadLen]byte
	if n, err := protocol.EncodeClose(out[:], reply.status, reply.reason, nil); err == nil {
		c.writeRaw(protocol.OpcodeClose, out[:n], n-2)
	}
	c.close()
}

func (c *conn) close() {
	c.closeOnce.Do(func() { c.nc.Close() })
}
