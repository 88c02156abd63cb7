package domain

import "errors"

// Sentinel errors for the pipeline's precondition and feed failures.
// Callers match with errors.Is; the CLI entry points map them to non-zero
// exit codes with a descriptive message.
var (
	// ErrNotFound reports a missing profile, alias or list.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists reports a rename/create collision with an existing
	// canonical profile.
	ErrAlreadyExists = errors.New("already exists")

	// ErrAlreadyUpdated reports that the daily update already ran for the
	// current calendar date. The run is rejected before any write.
	ErrAlreadyUpdated = errors.New("already updated today")

	// ErrAliasConflict reports a rename source that is itself the target of
	// an existing alias.
	ErrAliasConflict = errors.New("alias conflict")

	// ErrMalformedFeed reports a feed response missing the expected
	// top-level fields.
	ErrMalformedFeed = errors.New("malformed feed response")

	// ErrRequestFailed reports a failed network fetch.
	ErrRequestFailed = errors.New("request failed")
)
