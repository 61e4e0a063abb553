// Package engine is the narrow capability surface the rest of the module
// needs from SQLite: open, prepare, bind, step, read columns, reset,
// finalize and exec. It calls the SQLite C API directly through
// modernc.org/sqlite/lib, the library transpiled to Go, so every value is
// read by its storage class and parameter names, statement text and
// expanded SQL come from the engine itself.
//
//   - https://www.sqlite.org/cintro.html
//   - https://www.sqlite.org/c3ref/intro.html
package engine
