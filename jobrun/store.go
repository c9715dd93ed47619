package jobrun

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// StoreConfig configures a Store.
type StoreConfig struct {
	// Table is the job table name, optionally schema-qualified.
	// Default: "job"
	Table string

	// Driver selects the placeholder style. Default: "pgx"
	Driver string

	// Clock returns the current time for liveness evaluation.
	// Default: time.Now
	Clock func() time.Time
}

// Store reads run records from the metadata store.
type Store struct {
	db    *sql.DB
	query string
	clock func() time.Time
}

// NewStore creates a Store over db.
func NewStore(db *sql.DB, cfg StoreConfig) (*Store, error) {
	if cfg.Table == "" {
		cfg.Table = "job"
	}
	if !identPattern.MatchString(cfg.Table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, cfg.Table)
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverPostgres
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	var placeholder string
	switch cfg.Driver {
	case DriverPostgres:
		placeholder = "$1"
	case DriverSQLite:
		placeholder = "?"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}

	return &Store{
		db:    db,
		query: fmt.Sprintf(queryMostRecentRun, cfg.Table, placeholder),
		clock: cfg.Clock,
	}, nil
}

// Running jobs sort first so a live job is never shadowed by a newer,
// already finished one. NULLS LAST keeps PostgreSQL and SQLite in the same
// order.
const queryMostRecentRun = `
	SELECT id, job_type, state, hostname, start_date, latest_heartbeat
	FROM %s
	WHERE job_type = %s
	ORDER BY CASE WHEN state = 'running' THEN 0 ELSE 1 END, latest_heartbeat DESC NULLS LAST
	LIMIT 1`

// MostRecentRun returns the most recent run of jobType, or (nil, nil) when
// none exists. All failures wrap ErrSourceUnavailable.
func (s *Store) MostRecentRun(ctx context.Context, jobType string, policy LivenessPolicy) (*Record, error) {
	var (
		rec       Record
		state     sql.NullString
		hostname  sql.NullString
		startDate any
		heartbeat any
	)

	err := s.db.QueryRowContext(ctx, s.query, jobType).Scan(
		&rec.ID,
		&rec.JobType,
		&state,
		&hostname,
		&startDate,
		&heartbeat,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: most recent %s: %w", ErrSourceUnavailable, jobType, err)
	}

	rec.State = State(state.String)
	rec.Hostname = hostname.String
	if rec.StartDate, err = scanTime(startDate); err != nil {
		return nil, fmt.Errorf("%w: start_date: %w", ErrSourceUnavailable, err)
	}
	if rec.LatestHeartbeat, err = scanTime(heartbeat); err != nil {
		return nil, fmt.Errorf("%w: latest_heartbeat: %w", ErrSourceUnavailable, err)
	}
	rec.Alive = policy.Evaluate(&rec, s.clock())

	return &rec, nil
}

// Source returns a Source bound to one job type and liveness policy.
func (s *Store) Source(jobType string, policy LivenessPolicy) Source {
	return SourceFunc(func(ctx context.Context) (*Record, error) {
		return s.MostRecentRun(ctx, jobType, policy)
	})
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// scanTime normalizes the timestamp representations returned by the
// supported drivers to UTC. NULL becomes the zero time.
func scanTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t.UTC(), nil
	case int64:
		return time.Unix(t, 0).UTC(), nil
	case []byte:
		return parseTime(string(t))
	case string:
		return parseTime(t)
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
