package errors

import (
	pkgerrors "github.com/Conte777/affiliate-relay/pkg/errors"
)

var (
	ErrDomainNotFound = pkgerrors.NewNotFoundError("affiliate domain not found")
	ErrInvalidDomain  = pkgerrors.NewValidationError("invalid affiliate domain")
)
