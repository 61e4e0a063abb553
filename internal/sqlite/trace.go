package sqlite

import "time"

// TraceMask selects trace event kinds. The bits match SQLite's
// SQLITE_TRACE_* constants.
//
// https://www.sqlite.org/c3ref/c_trace.html
type TraceMask uint32

const (
	TraceStatement TraceMask = 0x01
	TraceProfile   TraceMask = 0x02
	TraceRow       TraceMask = 0x04
	TraceClose     TraceMask = 0x08

	TraceAll = TraceStatement | TraceProfile | TraceRow | TraceClose
)

// TraceEvent is one of StatementBegin, ProfileComplete, RowProduced or
// ConnectionClosed.
type TraceEvent interface {
	Mask() TraceMask
	traceEvent()
}

// StatementBegin is emitted when a statement starts running.
type StatementBegin struct {
	SQL         string
	ExpandedSQL string
	// ReadOnly is reported by the engine for prepared statements. It is
	// always false for text run through Execute.
	ReadOnly bool
}

// ProfileComplete is emitted when a run of a statement ends, with its
// wall clock duration.
type ProfileComplete struct {
	ExpandedSQL string
	Elapsed     time.Duration
}

// Seconds returns Elapsed in seconds.
func (p ProfileComplete) Seconds() float64 {
	return p.Elapsed.Seconds()
}

// RowProduced is emitted for every row a statement returns.
type RowProduced struct {
	ExpandedSQL string
}

// ConnectionClosed is emitted once, when the connection closes.
type ConnectionClosed struct{}

func (StatementBegin) Mask() TraceMask   { return TraceStatement }
func (ProfileComplete) Mask() TraceMask  { return TraceProfile }
func (RowProduced) Mask() TraceMask      { return TraceRow }
func (ConnectionClosed) Mask() TraceMask { return TraceClose }

func (StatementBegin) traceEvent()   {}
func (ProfileComplete) traceEvent()  {}
func (RowProduced) traceEvent()      {}
func (ConnectionClosed) traceEvent() {}

type tracer struct {
	mask TraceMask
	fn   func(TraceEvent)
}

// Trace registers fn to receive the expanded SQL of every statement as it
// starts. A nil fn unregisters. It replaces any handler set with Trace or
// TraceEvent.
func (c *Connection) Trace(fn func(sql string)) {
	if fn == nil {
		c.TraceEvent(0, nil)
		return
	}
	c.TraceEvent(TraceStatement, func(ev TraceEvent) {
		if begin, ok := ev.(StatementBegin); ok {
			fn(begin.ExpandedSQL)
		}
	})
}

// TraceEvent registers fn for the event kinds in mask; a zero mask means
// all of them. A nil fn unregisters. It replaces any handler set with
// Trace or TraceEvent.
func (c *Connection) TraceEvent(mask TraceMask, fn func(TraceEvent)) {
	if fn == nil || c.closed {
		c.tracer = nil
		return
	}
	if mask == 0 {
		mask = TraceAll
	}
	c.tracer = &tracer{mask: mask, fn: fn}
}

// emit builds and delivers an event only when a handler wants its kind.
func (c *Connection) emit(kind TraceMask, build func() TraceEvent) {
	if c.tracer == nil || c.tracer.mask&kind == 0 {
		return
	}
	c.tracer.fn(build())
}

// MultiTrace returns a TraceEvent handler that hands every event to each
// of fns in order, so several consumers can share a connection's single
// registration.
func MultiTrace(fns ...func(TraceEvent)) func(TraceEvent) {
	return func(ev TraceEvent) {
		for _, fn := range fns {
			if fn != nil {
				fn(ev)
			}
		}
	}
}
