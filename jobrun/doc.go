// Package jobrun models the run records written by long-running background
// jobs (the scheduler and the triggerer) and answers one question about them:
// what is the most recent run of a given job type, and is it still alive.
//
// A Source is the collaborator the health aggregator consumes. Store is the
// database/sql implementation backed by the platform's metadata store; it
// works against PostgreSQL through pgx and against SQLite through the pure-Go
// modernc driver.
//
//	db, err := jobrun.OpenDB(ctx, jobrun.DBConfig{Driver: "pgx", DSN: dsn})
//	store, err := jobrun.NewStore(db, jobrun.StoreConfig{})
//	scheduler := store.Source("SchedulerJob", jobrun.LivenessPolicy{Threshold: 30 * time.Second})
//
//	rec, err := scheduler.MostRecentRun(ctx)
//	switch {
//	case err != nil:
//	    // metadata store unavailable
//	case rec == nil:
//	    // never ran
//	case rec.IsAlive():
//	    // heartbeat is fresh
//	}
package jobrun
