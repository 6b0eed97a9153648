package errors

import (
	pkgerrors "github.com/Conte777/affiliate-relay/pkg/errors"
)

var (
	ErrInvalidGroupID = pkgerrors.NewValidationError("invalid source group ID")
	ErrEmptyURL       = pkgerrors.NewValidationError("tracked link URL is empty")
)
