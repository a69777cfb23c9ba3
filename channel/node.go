// File: channel/node.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Message envelope carried through a Channel: one typed value plus routing metadata.

package channel

import (
	"math"

	"github.com/momentics/levee/api"
)

// Kind is the active variant of a Node.
type Kind uint8

const (
	KindEOF Kind = iota
	KindNil
	KindPtr
	KindObj
	KindBuf
	KindDbl
	KindI64
	KindU64
	KindBool
	KindSender
)

func (k Kind) String() string {
	switch k {
	case KindEOF:
		return "eof"
	case KindNil:
		return "nil"
	case KindPtr:
		return "ptr"
	case KindObj:
		return "obj"
	case KindBuf:
		return "buf"
	case KindDbl:
		return "dbl"
	case KindI64:
		return "i64"
	case KindU64:
		return "u64"
	case KindBool:
		return "bool"
	case KindSender:
		return "sender"
	default:
		return "unknown"
	}
}

// Format tags borrowed bytes sent with SendPtr.
type Format uint8

const (
	FormatRaw Format = iota
	FormatMsgpack
)

func (f Format) String() string {
	if f == FormatMsgpack {
		return "msgpack"
	}
	return "raw"
}

// NoRecvID marks the routing-agnostic terminal EOF appended by Channel.Close.
const NoRecvID int64 = -1

// FreeFunc releases an OBJ payload. It is called exactly once.
type FreeFunc func(obj any)

// Node is one queued message. A node sits in at most one queue; once
// received it belongs to the caller, who must Release it.
type Node struct {
	RecvID int64
	Kind   Kind
	Err    int

	ptr    []byte
	format Format
	obj    any
	free   FreeFunc
	buf    api.Buffer
	scalar uint64
	sender *Sender

	next     *Node
	released bool
}

// IsEOF reports whether no further messages will arrive for RecvID.
func (n *Node) IsEOF() bool { return n.Kind == KindEOF }

// Ptr returns the borrowed bytes and their format. The memory belongs to the sender.
func (n *Node) Ptr() ([]byte, Format) { return n.ptr, n.format }

// Obj returns the owned opaque value.
func (n *Node) Obj() any { return n.obj }

// Buf returns the owned buffer. It stays owned by the node until TakeBuf or Release.
func (n *Node) Buf() api.Buffer { return n.buf }

// Float returns the DBL payload.
func (n *Node) Float() float64 { return math.Float64frombits(n.scalar) }

// Int returns the I64 payload.
func (n *Node) Int() int64 { return int64(n.scalar) }

// Uint returns the U64 payload.
func (n *Node) Uint() uint64 { return n.scalar }

// Bool returns the BOOL payload.
func (n *Node) Bool() bool { return n.scalar != 0 }

// Sender returns the forwarded sender without taking the node's reference.
func (n *Node) Sender() *Sender { return n.sender }

// TakeBuf moves the buffer out of the node; the caller now releases it.
func (n *Node) TakeBuf() api.Buffer {
	b := n.buf
	n.buf = nil
	return b
}

// TakeObj moves the object and its destructor out of the node.
func (n *Node) TakeObj() (any, FreeFunc) {
	o, f := n.obj, n.free
	n.obj, n.free = nil, nil
	return o, f
}

// TakeSender moves the forwarded sender reference out of the node.
func (n *Node) TakeSender() *Sender {
	s := n.sender
	n.sender = nil
	return s
}

// Release frees whatever payload the node still owns: it runs the OBJ
// destructor, releases the BUF and drops the SENDER reference. Borrowed
// PTR memory is left alone. Safe to call more than once.
func (n *Node) Release() {
	if n == nil || n.released {
		return
	}
	n.released = true
	switch n.Kind {
	case KindObj:
		if n.free != nil {
			n.free(n.obj)
		}
		n.obj, n.free = nil, nil
	case KindBuf:
		if n.buf != nil {
			n.buf.Release()
		}
		n.buf = nil
	case KindSender:
		if n.sender != nil {
			n.sender.Unref()
		}
		n.sender = nil
	case KindPtr:
		n.ptr = nil
	}
}

func newScalar(kind Kind, v uint64) *Node {
	return &Node{Kind: kind, scalar: v}
}

func boolBits(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}
