package model

import "errors"

// Error taxonomy. Extraction problems degrade (drop the mention, keep the
// document), external service problems fail the document (never the batch),
// configuration problems are fatal before any document is touched.
var (
	ErrExtraction      = errors.New("extraction failure")
	ErrExternalService = errors.New("external service failure")
	ErrConfiguration   = errors.New("configuration error")
)
