// go-common local proxy functions

package image

import (
	"github.com/rstms/go-common"
)

func Fatal(err error) error {
	return common.Fatal(err)
}

func Fatalf(format string, args ...interface{}) error {
	return common.Fatalf(format, args...)
}

func IsFile(filename string) bool {
	return common.IsFile(filename)
}

// hostError wraps a failed operation on the host image file.
func hostError(verb, filename string, err error) error {
	return Fatalf("%s %s: %v", verb, filename, err)
}
