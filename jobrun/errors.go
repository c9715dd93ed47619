package jobrun

import "errors"

var (
	// ErrSourceUnavailable wraps every failure to read run records.
	ErrSourceUnavailable = errors.New("jobrun: source unavailable")

	// ErrInvalidTable indicates the configured table name is not a plain identifier.
	ErrInvalidTable = errors.New("jobrun: invalid table name")

	// ErrUnsupportedDriver indicates a database driver other than pgx or sqlite.
	ErrUnsupportedDriver = errors.New("jobrun: unsupported database driver")

	// ErrMissingDSN indicates DBConfig.DSN is empty.
	ErrMissingDSN = errors.New("jobrun: dsn is required")
)
