package sqlite

import (
	"fmt"

	"github.com/nsqlite/litebind/internal/engine"
	"github.com/nsqlite/litebind/internal/quote"
)

// AttachDatabase attaches the database at location under the schema name
// name.
//
// https://www.sqlite.org/lang_attach.html
func (c *Connection) AttachDatabase(location engine.Location, name string) error {
	sql := fmt.Sprintf("ATTACH DATABASE %s AS %s", quote.Literal(location.Filename()), quote.Literal(name))
	if err := c.Execute(sql); err != nil {
		return fmt.Errorf("failed to attach database %q: %w", name, err)
	}
	return nil
}

// DetachDatabase detaches the schema name.
//
// https://www.sqlite.org/lang_detach.html
func (c *Connection) DetachDatabase(name string) error {
	if err := c.Execute("DETACH DATABASE " + quote.Literal(name)); err != nil {
		return fmt.Errorf("failed to detach database %q: %w", name, err)
	}
	return nil
}
