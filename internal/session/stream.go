package session

import "sqlcriteria/internal/dbexec"

// Stream is a forward-only, single-pass cursor over a query result.
//
// When the query fetches a one-to-many association, consecutive rows of the
// same parent are collapsed into one. The planner orders by the parent keys
// ahead of any ordering on a fetched source, so parents stay adjacent.
type Stream struct {
	ex   *execution
	rows dbexec.Rows

	current *ResultRow
	pending *ResultRow
	read    int64
	merged  int64
	done    bool
	err     error
}

// Next advances to the next row. It returns false when the rows are
// exhausted, after an error, or after Close.
func (st *Stream) Next() bool {
	st.current = nil
	if st.err != nil {
		return false
	}
	if !st.ex.plan.Collapse {
		row, ok := st.readRow()
		st.current = row
		return ok
	}

	cur := st.pending
	st.pending = nil
	if cur == nil {
		row, ok := st.readRow()
		if !ok {
			return false
		}
		cur = row
	}
	key := rowKey(cur)
	for {
		next, ok := st.readRow()
		if !ok {
			break
		}
		if rowKey(next) != key {
			st.pending = next
			break
		}
		mergeRow(cur, next)
		st.merged++
	}
	if st.err != nil {
		return false
	}
	st.current = cur
	return true
}

func (st *Stream) readRow() (*ResultRow, bool) {
	if st.done {
		return nil, false
	}
	if !st.rows.Next() {
		st.done = true
		return nil, false
	}
	values, err := scanRow(st.rows, st.ex.plan)
	if err != nil {
		st.err = err
		st.done = true
		_ = st.rows.Close()
		return nil, false
	}
	st.read++
	return buildRow(st.ex.plan, values), true
}

// Row returns the current row.
func (st *Stream) Row() *ResultRow { return st.current }

// Err returns the error that ended the stream, if any.
func (st *Stream) Err() error { return st.err }

// Close releases the cursor. It is safe to call more than once.
func (st *Stream) Close() error {
	st.done = true
	st.pending = nil
	return st.rows.Close()
}

// release runs exactly once, when the cursor is exhausted or closed.
func (st *Stream) release() {
	if st.err == nil {
		if err := st.ex.rows.Err(); err != nil {
			st.err = dbexec.Classify(err, st.ex.construct)
		}
	}
	m := st.ex.session.metrics
	m.RecordCollapsed(st.ex.ctx, st.merged)
	m.StreamClosed(st.ex.ctx)
	st.ex.finish(st.read, st.err)
}
