package jobrun

import "context"

// Source provides the most recent run record of one job type.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: implementations must honor cancellation/deadlines.
// - Result: (nil, nil) means no run has ever been recorded.
// - Errors: any failure to read the record is returned as an error.
type Source interface {
	MostRecentRun(ctx context.Context) (*Record, error)
}

// SourceFunc adapts an ordinary function to a Source.
type SourceFunc func(ctx context.Context) (*Record, error)

// MostRecentRun calls f(ctx).
func (f SourceFunc) MostRecentRun(ctx context.Context) (*Record, error) {
	return f(ctx)
}

// StaticSource always returns the same record and error.
type StaticSource struct {
	Record *Record
	Err    error
}

// MostRecentRun returns the configured record and error.
func (s StaticSource) MostRecentRun(ctx context.Context) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Record, s.Err
}
