package warehouse

import (
	"errors"
	"strings"

	"github.com/snowflakedb/gosnowflake"
)

// Snowflake error number for an expired or failed authentication token.
const errAuthTokenExpired = 390144

// IsAuthError reports whether err indicates the warehouse session is no
// longer authenticated and the cached connection must be re-established.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	var sfErr *gosnowflake.SnowflakeError
	if errors.As(err, &sfErr) && sfErr.Number == errAuthTokenExpired {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "authentication")
}
