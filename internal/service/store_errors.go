package service

import (
	"github.com/noah-isme/institute-fee-api/pkg/database"
	appErrors "github.com/noah-isme/institute-fee-api/pkg/errors"
)

// wrapStoreErr converts a repository error into the typed taxonomy: an
// unreachable store surfaces as 503, anything else as 500. Retry policy is
// left to the caller.
func wrapStoreErr(err error, message string) error {
	if database.IsUnavailable(err) {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
