// Package pool
// Author: momentics <momentics@gmail.com>
//
// Memory layer for levee. Provides growable byte buffers recycled through
// sync.Pool; these back the BUF payload of channel messages and the payload
// reads of the frame server. See buffer.go for details.
package pool
