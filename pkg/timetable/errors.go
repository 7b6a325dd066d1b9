package timetable

import "errors"

// ErrInvalidIndex is returned by Builder.Build when the supplied data
// violates one of the feed's relationship invariants. It is fatal: no index
// is produced, and the process that built it is expected to abort rather
// than let a broken snapshot replace a good one.
var ErrInvalidIndex = errors.New("timetable: invalid index")
