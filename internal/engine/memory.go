package engine

import (
	"fmt"
	"sync"
	"unsafe"

	"modernc.org/libc"
	"modernc.org/libc/sys/types"
)

// sqliteStatic is SQLITE_STATIC: the engine does not copy or free the
// buffer.
const sqliteStatic uintptr = 0

var (
	emptyCString = mustCString("")
	freeFuncPtr  = cFuncPointer(libc.Xfree)
)

func malloc(tls *libc.TLS, n types.Size_t) (uintptr, error) {
	p := libc.Xmalloc(tls, n)
	if p == 0 {
		return 0, fmt.Errorf("out of memory")
	}
	return p, nil
}

// cBytes copies b into engine memory released with libc.Xfree.
func cBytes(tls *libc.TLS, b []byte) (uintptr, error) {
	size := types.Size_t(len(b))
	if size == 0 {
		size = 1
	}
	p, err := malloc(tls, size)
	if err != nil {
		return 0, err
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(p)), len(b)), b)
	return p, nil
}

func mustCString(s string) uintptr {
	p, err := libc.CString(s)
	if err != nil {
		panic(err)
	}
	return p
}

func goStringN(s uintptr, n int) string {
	if s == 0 || n == 0 {
		return ""
	}
	return string(unsafe.Slice((*byte)(unsafe.Pointer(s)), n))
}

// cFuncPointer converts a function declaration, never a closure, to a
// pointer the engine can call back.
func cFuncPointer[T any](f T) uintptr {
	return *(*uintptr)(unsafe.Pointer(&struct{ f T }{f}))
}

// collationRegistry maps the context pointer handed to the engine back to
// the Go comparison function.
type collationRegistry struct {
	mu    sync.RWMutex
	next  uintptr
	funcs map[uintptr]func(a, b string) int
}

var collations = &collationRegistry{funcs: map[uintptr]func(a, b string) int{}}

func (r *collationRegistry) register(cmp func(a, b string) int) uintptr {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.funcs[r.next] = cmp
	return r.next
}

func (r *collationRegistry) lookup(id uintptr) func(a, b string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.funcs[id]
}

func (r *collationRegistry) remove(id uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.funcs, id)
}

func (r *collationRegistry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.funcs)
}

func collationCallback(tls *libc.TLS, id uintptr, n1 int32, p1 uintptr, n2 int32, p2 uintptr) int32 {
	cmp := collations.lookup(id)
	if cmp == nil {
		return 0
	}
	switch c := cmp(goStringN(p1, int(n1)), goStringN(p2, int(n2))); {
	case c < 0:
		return -1
	case c > 0:
		return 1
	default:
		return 0
	}
}

// collationDestroy runs when a collation is replaced or its connection
// closes.
func collationDestroy(tls *libc.TLS, id uintptr) {
	collations.remove(id)
}
