package share

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("transfer not found")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidInput         = errors.New("invalid input")
	ErrDownloadLimitReached = errors.New("download limit reached")
	ErrInvalidGrant         = errors.New("invalid access grant")
)

// Reason is the machine-readable code returned to viewers when access is denied.
type Reason string

const (
	ReasonLinkExpired          Reason = "LINK_EXPIRED"
	ReasonLinkInactive         Reason = "LINK_INACTIVE"
	ReasonDownloadLimitReached Reason = "DOWNLOAD_LIMIT_REACHED"
	ReasonPasscodeRequired     Reason = "PASSCODE_REQUIRED"
	ReasonInvalidPasscode      Reason = "INVALID_PASSCODE"
	ReasonEmailRequired        Reason = "EMAIL_REQUIRED"
)

// Terminal reports whether no credentials can ever satisfy the gate again.
func (r Reason) Terminal() bool {
	switch r {
	case ReasonLinkExpired, ReasonLinkInactive, ReasonDownloadLimitReached:
		return true
	}
	return false
}

// AccessDeniedError is returned by viewer operations when the gate refuses a request.
type AccessDeniedError struct {
	Reason Reason
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied: %s", e.Reason)
}

func denied(r Reason) error {
	return &AccessDeniedError{Reason: r}
}

// DeniedReason extracts the denial reason from err, if any.
func DeniedReason(err error) (Reason, bool) {
	var ade *AccessDeniedError
	if errors.As(err, &ade) {
		return ade.Reason, true
	}
	return "", false
}
