// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package concurrency holds the in-process event loop used when no kernel
// reactor is available. Channels signal it through an api.Notifier; it
// batches the signals off a bounded ring and dispatches them to handlers on a
// single goroutine.
package concurrency
