package errors

import (
	pkgerrors "github.com/Conte777/affiliate-relay/pkg/errors"
)

var (
	ErrInvalidPurpose     = pkgerrors.NewValidationError("purpose must be destino or rastreio")
	ErrInvalidChatID      = pkgerrors.NewValidationError("invalid chat ID")
	ErrPreferenceNotFound = pkgerrors.NewNotFoundError("chat preference not found")
)
