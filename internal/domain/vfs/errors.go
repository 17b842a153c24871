package vfs

import "errors"

// Sentinel failure kinds, one per POSIX-style errno the file system
// reports. Match with errors.Is.
var (
	ErrNotExist = errors.New("no such file or directory")
	ErrExist    = errors.New("file exists")
	ErrNotDir   = errors.New("not a directory")
	ErrIsDir    = errors.New("is a directory")
	ErrNotEmpty = errors.New("directory not empty")
	ErrInvalid  = errors.New("invalid argument")
)

// Error is a structured file system failure: the operation that failed,
// the offending path, and the failure kind.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errno returns the wire code for a file system error, or "EIO" for
// anything unrecognized.
func Errno(err error) string {
	switch {
	case errors.Is(err, ErrNotExist):
		return "ENOENT"
	case errors.Is(err, ErrExist):
		return "EEXIST"
	case errors.Is(err, ErrNotDir):
		return "ENOTDIR"
	case errors.Is(err, ErrIsDir):
		return "EISDIR"
	case errors.Is(err, ErrNotEmpty):
		return "ENOTEMPTY"
	case errors.Is(err, ErrInvalid):
		return "EINVAL"
	default:
		return "EIO"
	}
}

func errNotExist(op, path string) error { return &Error{Op: op, Path: path, Err: ErrNotExist} }
func errExist(op, path string) error    { return &Error{Op: op, Path: path, Err: ErrExist} }
func errNotDir(op, path string) error   { return &Error{Op: op, Path: path, Err: ErrNotDir} }
func errIsDir(op, path string) error    { return &Error{Op: op, Path: path, Err: ErrIsDir} }
func errNotEmpty(op, path string) error { return &Error{Op: op, Path: path, Err: ErrNotEmpty} }
func errInvalid(op, path string) error  { return &Error{Op: op, Path: path, Err: ErrInvalid} }
