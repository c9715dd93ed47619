// Package resilience bounds calls to the metadata store.
//
// Health queries are never retried: a failed or slow lookup is reported once
// as unhealthy. The only protection applied is a deadline, so that a hung
// database connection cannot hold a health probe open indefinitely.
//
//	t := resilience.NewTimeout(resilience.TimeoutConfig{Timeout: 5 * time.Second})
//
//	rec, err := resilience.Call(ctx, t, source.MostRecentRun)
//	if errors.Is(err, resilience.ErrTimeout) {
//	    // the lookup did not finish in time
//	}
package resilience
