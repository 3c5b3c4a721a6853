package dictionary

import "errors"

// Import failure taxonomy. Callers classify with errors.Is; everything else
// surfaces as a generic import failure.
var (
	// ErrDuplicateDictionary means a dictionary with the same title and
	// revision is already imported. The attempt leaves no trace behind.
	ErrDuplicateDictionary = errors.New("dictionary already imported")

	// ErrExtraction means the archive could not be read or unpacked.
	ErrExtraction = errors.New("failed to extract archive")

	// ErrMissingIndex means the archive has no metadata document matching
	// the index naming convention.
	ErrMissingIndex = errors.New("archive has no index file")

	// ErrMalformedMetadata means the index document is present but not
	// decodable, or lacks a title.
	ErrMalformedMetadata = errors.New("malformed dictionary metadata")

	// ErrPersistence means a store insert or commit failed mid-import. The
	// import aborts; the half-built dictionary is swept at next startup.
	ErrPersistence = errors.New("failed to persist dictionary words")
)
