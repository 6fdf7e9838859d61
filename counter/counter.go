// Package counter persists the tribute page visit count.
//
// Every backend performs the read-increment-write sequence as one atomic unit,
// so concurrent page views never lose an update. A missing, empty, negative or
// non-numeric persisted value always reads as zero.
//
// Backends:
//   - File: a text file holding one decimal number (default).
//   - Postgres: a row in the kv table.
//   - Redis: a single key updated by a server-side script.
package counter

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// ErrStorageUnavailable is wrapped by every error caused by a backing store
// that cannot be created, read or written.
var ErrStorageUnavailable = errors.New("counter storage unavailable")

// DefaultKey identifies the single global counter in keyed backends.
const DefaultKey = "tribute:visits"

// Store is the visit counter contract shared by the HTTP server and the chat bots.
type Store interface {
	// IncrementAndGet atomically adds one to the stored value and returns the new value.
	IncrementAndGet(ctx context.Context) (int64, error)
	// Get returns the stored value without modifying it.
	Get(ctx context.Context) (int64, error)
}

// maxCountDigits bounds a persisted count so every backend parses it exactly
// (Postgres bigint, Redis INCR, strconv).
const maxCountDigits = 18

// countSpace is the whitespace allowed around a persisted count. It matches
// Lua's %s and Postgres' \s classes.
const countSpace = " \t\n\v\f\r"

// parseCount turns a persisted representation into a count. Anything that is
// not 1 to maxCountDigits decimal digits, optionally surrounded by ASCII
// whitespace, is treated as zero.
func parseCount(raw string) int64 {
	s := strings.Trim(raw, countSpace)
	if s == "" || len(s) > maxCountDigits {
		return 0
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
