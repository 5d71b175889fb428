package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/lib/pq"
)

// IsUnavailable reports whether the error indicates the data store is
// unreachable (connection failures, admin shutdown) rather than a bad query.
// Callers use it to surface 503 instead of 500.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08: connection exceptions; class 57: operator intervention.
		class := pqErr.Code.Class()
		return class == "08" || class == "57"
	}
	return false
}
