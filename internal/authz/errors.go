package authz

import "errors"

var (
	ErrNotFound     = errors.New("authz: not found")
	ErrInvalidInput = errors.New("authz: invalid input")
	ErrStorage      = errors.New("authz: storage failure")
)

// Denied carries a deny verdict across service boundaries. The gate itself
// returns Decision values; services translate a deny into this error so the
// reason survives to the transport layer intact.
type Denied struct {
	Reason DenyReason
}

func (d *Denied) Error() string {
	return "authz: denied: " + string(d.Reason)
}

// DeniedError wraps a denial reason as an error value.
func DeniedError(reason DenyReason) error {
	return &Denied{Reason: reason}
}

// AsDenied reports whether err carries a deny verdict.
func AsDenied(err error) (*Denied, bool) {
	var d *Denied
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}
