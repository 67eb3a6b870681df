//go:build !windows
// +build !windows

package fsutil

import (
	"os"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// isCrossDeviceError mirrors the teacher's atomic_posix.go sniffing of
// os.LinkError for a wrapped syscall.EXDEV.
func isCrossDeviceError(err error) bool {
	linkErr, ok := err.(*os.LinkError)
	if !ok {
		return false
	}
	return linkErr.Err == syscall.EXDEV
}

// sameVolume compares the device number recorded in each FileInfo's
// underlying syscall.Stat_t, following the teacher's device_posix.go use of
// stat_t.Dev for identity.
func sameVolume(a, b os.FileInfo) bool {
	statA, okA := a.Sys().(*syscall.Stat_t)
	statB, okB := b.Sys().(*syscall.Stat_t)
	if !okA || !okB {
		return false
	}
	return statA.Dev == statB.Dev
}

// VolumeID extracts the device number identifying which volume info resides
// on, for use by callers that need to detect filesystem-boundary crossings
// (e.g. the scanner refusing to descend into a different mounted volume).
func VolumeID(info os.FileInfo) uint64 {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return uint64(stat.Dev)
	}
	return 0
}

// FileID extracts a platform identifier suitable for move/rename detection
// (the inode number on POSIX), matching the spec's file_id field and the
// teacher's use of stat_t.Ino for content identity tracking.
func FileID(info os.FileInfo) uint64 {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return uint64(stat.Ino)
	}
	return 0
}

// modTimeFromUnix converts a stored modification time back into a time.Time
// in UTC, matching the spec's mtime_utc_seconds convention.
func modTimeFromUnix(unixSeconds int64) time.Time {
	return time.Unix(unixSeconds, 0).UTC()
}

// FreeSpace reports the number of free bytes available on the volume
// containing path, following the teacher's format_statfs_linux.go use of
// golang.org/x/sys/unix.Statfs.
func FreeSpace(path string) (uint64, error) {
	var statfs unix.Statfs_t
	if err := unix.Statfs(path, &statfs); err != nil {
		return 0, errors.Wrap(err, "unable to query filesystem statistics")
	}
	return uint64(statfs.Bavail) * uint64(statfs.Bsize), nil
}
