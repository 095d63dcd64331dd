package dataset

import "errors"

// Error definitions for the dataset package.
var (
	ErrManifestNotFound = errors.New("manifest not found")
)
