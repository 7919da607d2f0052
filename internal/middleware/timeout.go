package middleware

import (
	"fmt"
	"net/http"
	"time"

	"org-lifecycle/pkg/apierror"
)

// Timeout bounds handler time. The deadline also reaches the store through
// the request context.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	message := fmt.Sprintf(`{"success":false,"error":{"code":%q,"message":"request timed out"}}`, apierror.CodeTimeout)

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, message)
	}
}
