package sandbox

import (
	"errors"
	"fmt"
)

// ErrDisposed is returned by every Context method after Dispose
var ErrDisposed = errors.New("sandbox: context disposed")

// PermissionError reports an operation the app's manifest does not grant
type PermissionError struct {
	AppID    string
	Resource string
	Action   string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("sandbox: %s denied %s on %s", e.AppID, e.Action, e.Resource)
}

// IsPermission reports whether err is a PermissionError
func IsPermission(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}
