package ingest

import "errors"

// Sentinel kinds for ingestion errors.
var (
	ErrMalformedRun = errors.New("malformed run")
	ErrDatasetRead  = errors.New("dataset read failed")
	ErrDatasetWrite = errors.New("dataset write failed")
	ErrAPIRequest   = errors.New("records api request failed")
)
