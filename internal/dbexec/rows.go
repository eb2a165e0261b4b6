package dbexec

import "sync"

// ReleaseOnce wraps rows so that cleanup runs exactly once: on the first
// Close, or as soon as Next reports exhaustion. Further Close calls return
// the result of the first one.
func ReleaseOnce(rows Rows, cleanup func()) Rows {
	return &releasingRows{Rows: rows, cleanup: cleanup}
}

type releasingRows struct {
	Rows
	cleanup  func()
	once     sync.Once
	closeErr error
}

func (r *releasingRows) Next() bool {
	if r.Rows.Next() {
		return true
	}
	_ = r.Close()
	return false
}

func (r *releasingRows) Close() error {
	r.once.Do(func() {
		r.closeErr = r.Rows.Close()
		if r.cleanup != nil {
			r.cleanup()
		}
	})
	return r.closeErr
}
