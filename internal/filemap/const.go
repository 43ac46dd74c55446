package filemap

import "time"

const (
	lockTimeout       = 10 * time.Second
	lockRetryInterval = 50 * time.Millisecond
)
