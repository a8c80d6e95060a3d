// Package testing flips the application into test mode when blank
// imported from a _test package. Import it before constructing app
// components so they skip runtime side effects.
package testing

import (
	"os"
	stdtesting "testing"
)

func init() {
	if os.Getenv("AMPARO_TEST_MODE") == "" {
		_ = os.Setenv("AMPARO_TEST_MODE", "1")
	}
}

func TestMain(m *stdtesting.M) {
	os.Exit(m.Run())
}
