// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the poll-mode event reactor (epoll on Linux) and
// the eventfd-backed notifier a Channel signals when messages arrive or it closes.
package reactor
