package store

import "errors"

// Sentinel errors returned by the archive. Callers should use [errors.Is] to
// match against these values.
var (
	// ErrBuildingSQLQuery is returned when a query builder rejects its input.
	ErrBuildingSQLQuery = errors.New("error building SQL query")

	// ErrRunNotSaved is returned when the run insert succeeds but affects no
	// rows.
	ErrRunNotSaved = errors.New("run was not saved")

	// ErrEmptyDSN is returned when the archive is opened without a database
	// path.
	ErrEmptyDSN = errors.New("archive dsn is empty")
)
