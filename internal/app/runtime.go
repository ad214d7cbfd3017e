package app

import (
	"os"
	"sync"
)

const testModeEnv = "QUILL_TEST_MODE"

// InTestMode reports whether QUILL_TEST_MODE=1 was set when first asked. The
// binaries exit early in test mode so package tests never open sockets.
var InTestMode = sync.OnceValue(func() bool {
	return os.Getenv(testModeEnv) == "1"
})
