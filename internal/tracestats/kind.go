package tracestats

import (
	"strings"

	"github.com/orsinium-labs/enum"
)

// Kind is the class a traced statement is counted under.
type Kind enum.Member[string]

var (
	KindRead      = Kind{Value: "read"}
	KindWrite     = Kind{Value: "write"}
	KindBegin     = Kind{Value: "begin"}
	KindCommit    = Kind{Value: "commit"}
	KindRollback  = Kind{Value: "rollback"}
	KindSavepoint = Kind{Value: "savepoint"}

	Kinds = enum.New(KindRead, KindWrite, KindBegin, KindCommit, KindRollback, KindSavepoint)
)

// Classify detects the kind of a statement from its leading keyword,
// falling back to readOnly to tell reads from writes.
//
// ROLLBACK TO is a rollback even though it only unwinds a savepoint;
// RELEASE counts as a savepoint.
func Classify(sql string, readOnly bool) Kind {
	trimmed := strings.ToLower(strings.TrimSpace(sql))

	switch {
	case strings.HasPrefix(trimmed, "begin"):
		return KindBegin
	case strings.HasPrefix(trimmed, "commit"), strings.HasPrefix(trimmed, "end"):
		return KindCommit
	case strings.HasPrefix(trimmed, "rollback"):
		return KindRollback
	case strings.HasPrefix(trimmed, "savepoint"), strings.HasPrefix(trimmed, "release"):
		return KindSavepoint
	}

	if readOnly {
		return KindRead
	}
	return KindWrite
}
