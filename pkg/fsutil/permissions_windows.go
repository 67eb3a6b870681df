//go:build windows
// +build windows

package fsutil

import (
	"os"

	"github.com/hectane/go-acl"
	"github.com/pkg/errors"
)

// CopyPermissions applies the portable permission bits from permissions to
// path via an ACL rewrite, since os.Chmod is a no-op for regular files on
// Windows. This mirrors the teacher's permissions_windows.go use of
// hectane/go-acl to emulate POSIX-style chmod semantics.
func CopyPermissions(path string, permissions os.FileMode) error {
	if err := acl.Chmod(path, permissions); err != nil {
		return errors.Wrap(err, "unable to apply ACL permissions")
	}
	return nil
}
