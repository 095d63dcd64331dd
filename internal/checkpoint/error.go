package checkpoint

import "errors"

// ErrNoRuns reports that there is no previous run to resume.
var ErrNoRuns = errors.New("no previous training runs found")
