package agreement

import "errors"

var (
	// ErrMalformedLabel is returned when a label-set cell cannot be parsed.
	ErrMalformedLabel = errors.New("malformed label cell")
	// ErrMalformedBinary is returned when a 0/1 indicator cell holds anything else.
	ErrMalformedBinary = errors.New("malformed binary cell")
	// ErrMissingColumn is returned when a required column is absent from a table.
	ErrMissingColumn = errors.New("missing column")
	// ErrDuplicateColumn is returned when a header names the same column twice.
	ErrDuplicateColumn = errors.New("duplicate column")
	// ErrRaggedRow is returned when a row has more cells than the header.
	ErrRaggedRow = errors.New("row wider than header")
	// ErrLengthMismatch is returned when paired label sequences differ in length.
	ErrLengthMismatch = errors.New("label sequences differ in length")
	// ErrEmptyTable is returned when an input file has no header row.
	ErrEmptyTable = errors.New("empty table")
	// ErrNoAnnotators is returned when fewer than two annotators are configured.
	ErrNoAnnotators = errors.New("at least two annotators are required")
	// ErrNoInputs is returned when a merge is requested without input tables.
	ErrNoInputs = errors.New("no input tables")
	// ErrUnknownOperator is returned when an export file has no annotator mapping.
	ErrUnknownOperator = errors.New("no operator found for file")
)
