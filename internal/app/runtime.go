package app

import (
	"os"
	"sync"
	"sync/atomic"
)

// AMPARO_TEST_MODE=1 makes the application skip runtime side effects
// such as opening real connections during handler tests.
const testModeEnv = "AMPARO_TEST_MODE"

var testMode struct {
	once sync.Once
	flag atomic.Bool
}

func readTestMode() {
	testMode.flag.Store(os.Getenv(testModeEnv) == "1")
}

// InTestMode reports whether the test-mode flag is set. The environment
// is consulted once; RefreshTestMode re-reads it.
func InTestMode() bool {
	testMode.once.Do(readTestMode)
	return testMode.flag.Load()
}

// RefreshTestMode re-reads the flag after the environment changed.
func RefreshTestMode() {
	readTestMode()
}
