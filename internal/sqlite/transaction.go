package sqlite

import (
	"fmt"

	"github.com/nsqlite/litebind/internal/log"
	"github.com/nsqlite/litebind/internal/quote"
)

// Transaction runs body inside a transaction of the given kind and
// commits when it returns nil.
//
// When body returns an error or panics, or the commit fails, the
// transaction is rolled back and the original error is returned (a panic
// is re-raised). A failing rollback is logged and does not replace it.
//
// https://www.sqlite.org/lang_transaction.html
func (c *Connection) Transaction(kind TransactionKind, body func() error) error {
	if err := c.checkOpen("transaction"); err != nil {
		return err
	}
	if kind.Value == "" {
		kind = Deferred
	}

	if err := c.Execute("BEGIN " + kind.Value + " TRANSACTION"); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		r := recover()
		c.unwind("ROLLBACK", log.KV{"kind": kind.Value})
		if r != nil {
			panic(r)
		}
	}()

	if err := body(); err != nil {
		return err
	}

	if err := c.Execute("COMMIT"); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true

	return nil
}

// Savepoint runs body inside a savepoint named name and releases it when
// body returns nil. Savepoints nest, inside or outside a transaction.
//
// When body returns an error or panics, or the release fails, the work
// since the savepoint is rolled back, the savepoint is released and the
// original error is returned (a panic is re-raised). Failures while
// unwinding are logged and do not replace it.
//
// The name is used as a quoted literal, so any text is accepted. An empty
// name is replaced by one derived from the nesting depth.
//
// https://www.sqlite.org/lang_savepoint.html
func (c *Connection) Savepoint(name string, body func() error) error {
	if err := c.checkOpen("savepoint"); err != nil {
		return err
	}
	if name == "" {
		name = fmt.Sprintf("savepoint_%d", c.savepointDepth)
	}
	quoted := quote.Literal(name)

	if err := c.Execute("SAVEPOINT " + quoted); err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}
	c.savepointDepth++

	released := false
	defer func() {
		c.savepointDepth--
		if released {
			return
		}
		r := recover()
		c.unwind("ROLLBACK TO SAVEPOINT "+quoted, log.KV{"savepoint": name})
		c.unwind("RELEASE SAVEPOINT "+quoted, log.KV{"savepoint": name})
		if r != nil {
			panic(r)
		}
	}()

	if err := body(); err != nil {
		return err
	}

	if err := c.Execute("RELEASE SAVEPOINT " + quoted); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	released = true

	return nil
}

// unwind runs a cleanup statement while another failure is propagating.
// Its own failure is only logged.
func (c *Connection) unwind(sql string, kv log.KV) {
	if c.closed {
		return
	}
	if err := c.Execute(sql); err != nil {
		fields := log.KV{"sql": sql, "error": err.Error()}
		for k, v := range kv {
			fields[k] = v
		}
		c.logger.WarnNs(log.NsTransaction, "cleanup statement failed", fields)
	}
}
