// Package guard forces in-memory test mode for any test binary that imports
// it, so entrypoints never dial PostgreSQL or Redis under go test.
package guard

import (
	"os"
	"sync"
)

// EnvVar is the switch read by app.InTestMode.
const EnvVar = "DAPUR_TEST_MODE"

var once sync.Once

func init() {
	Enable()
}

// Enable sets EnvVar to 1 unless the caller already chose a value.
func Enable() {
	once.Do(func() {
		if os.Getenv(EnvVar) == "" {
			_ = os.Setenv(EnvVar, "1")
		}
	})
}
