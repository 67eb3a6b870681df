//go:build !windows
// +build !windows

package fsutil

import (
	"os"

	"github.com/pkg/errors"
)

// CopyPermissions applies the portable permission bits from permissions to
// path using a plain chmod, which is sufficient on POSIX filesystems (the
// ACL rewrite in permissions_windows.go is only needed on Windows).
func CopyPermissions(path string, permissions os.FileMode) error {
	if err := os.Chmod(path, permissions); err != nil {
		return errors.Wrap(err, "unable to change file permissions")
	}
	return nil
}
