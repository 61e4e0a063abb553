package bench

import (
	"github.com/nsqlite/litebind/internal/pooler"
	"github.com/nsqlite/litebind/internal/sqlite"
)

// newConnPool returns a pool of up to size traced connections, all kept
// for reuse.
func (r *runner) newConnPool(size int) (*pooler.Pool[*sqlite.Connection], error) {
	return pooler.NewPool(pooler.Config[*sqlite.Connection]{
		MaxItems: size,
		MaxIdle:  size,
		NewFunc:  r.open,
		CloseFunc: func(conn *sqlite.Connection) error {
			return conn.Close()
		},
	})
}
