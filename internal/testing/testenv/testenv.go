// Package testenv switches the binaries into test mode and builds configs for
// in-process API tests. Import it for its side effect from any test that
// constructs the app.
package testenv

import (
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/quill-api/quill/internal/app"
)

func init() {
	if os.Getenv("QUILL_TEST_MODE") == "" {
		_ = os.Setenv("QUILL_TEST_MODE", "1")
	}
}

// Config returns a config with the cheapest bcrypt cost and no rate limits.
func Config() *app.Config {
	return &app.Config{
		AppEnv:            "test",
		AppRequestTimeout: 5 * time.Second,
		JWTSecret:         "0123456789abcdef0123456789abcdef",
		JWTIssuer:         "quill",
		TokenTTL:          time.Hour,
		BcryptCost:        bcrypt.MinCost,
		PostCacheTTL:      time.Minute,
	}
}
