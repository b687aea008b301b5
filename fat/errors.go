package fat

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed file system operation.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalid
	KindExists
	KindNotFound
	KindNotFile
	KindNotDir
	KindPermission
	KindNoSpace
	KindDirFull
	KindNotEmpty
	KindRange
	KindReserved
	KindNotFormatted
)

var kindNames = map[ErrorKind]string{
	KindUnknown:      "unknown error",
	KindInvalid:      "invalid argument",
	KindExists:       "already exists",
	KindNotFound:     "no such file or directory",
	KindNotFile:      "not a file",
	KindNotDir:       "not a directory",
	KindPermission:   "permission denied",
	KindNoSpace:      "no free blocks",
	KindDirFull:      "directory full",
	KindNotEmpty:     "directory not empty",
	KindRange:        "block index out of range",
	KindReserved:     "reserved block already initialized",
	KindNotFormatted: "volume not formatted",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a domain failure of a file system operation.
type Error struct {
	Kind ErrorKind
	Path string
	Msg  string
}

var (
	ErrInvalid      = &Error{Kind: KindInvalid}
	ErrExists       = &Error{Kind: KindExists}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrNotFile      = &Error{Kind: KindNotFile}
	ErrNotDir       = &Error{Kind: KindNotDir}
	ErrPermission   = &Error{Kind: KindPermission}
	ErrNoSpace      = &Error{Kind: KindNoSpace}
	ErrDirFull      = &Error{Kind: KindDirFull}
	ErrNotEmpty     = &Error{Kind: KindNotEmpty}
	ErrRange        = &Error{Kind: KindRange}
	ErrReserved     = &Error{Kind: KindReserved}
	ErrNotFormatted = &Error{Kind: KindNotFormatted}
)

func newError(kind ErrorKind, path string, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, msg)
	}
	return msg
}

// Is matches any Error of the same kind, so the package sentinels can be
// used with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of a domain error, or KindUnknown for anything
// else (device failures included).
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
