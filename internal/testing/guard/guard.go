// Package guard switches binaries into test mode when imported by tests, so
// calling main never dials PostgreSQL, Redis or the job queue.
package guard

import (
	"os"
	"sync"
)

// Env names the variable read by app.InTestMode.
const Env = "RESTOPRO_TEST_MODE"

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv(Env) == "" {
			_ = os.Setenv(Env, "1")
		}
	})
}
