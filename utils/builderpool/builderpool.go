// Package builderpool recycles the string builders used to assemble storage
// keys and encoded windows.
package builderpool

import (
	"strings"
	"sync"
)

const (
	// initialSize fits "<base>:account:<address>" for common base keys.
	initialSize = 96
	// maxRetained caps the capacity of builders returned to the pool so one
	// oversized account name does not pin memory.
	maxRetained = 1024
)

var pool = sync.Pool{
	New: func() any {
		sb := &strings.Builder{}
		sb.Grow(initialSize)
		return sb
	},
}

// Get returns an empty builder.
func Get() *strings.Builder {
	sb := pool.Get().(*strings.Builder)
	sb.Reset()
	sb.Grow(initialSize)
	return sb
}

// Put hands sb back. Builders grown past maxRetained are dropped.
func Put(sb *strings.Builder) {
	if sb == nil || sb.Cap() > maxRetained {
		return
	}
	pool.Put(sb)
}
