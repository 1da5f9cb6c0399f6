package correlation

import "errors"

// ErrNilWaiter is returned by Await on a nil waiter.
var ErrNilWaiter = errors.New("correlation: nil waiter")
