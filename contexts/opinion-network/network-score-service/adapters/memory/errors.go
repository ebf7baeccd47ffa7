package memory

import "errors"

// errReplaceInjected is returned by Store when a test armed FailReplaceFor.
var errReplaceInjected = errors.New("memory store: injected replace failure")
