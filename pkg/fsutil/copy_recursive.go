package fsutil

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// CopyRecursive duplicates sourcePath (a file, symbolic link, or directory
// tree) at destinationPath, returning the total number of file bytes
// copied. It backs the cross-volume fallback paths used by both the
// deletion handler's versioning policy and the sync executor's move
// fallback, neither of which can rely on a plain rename once source and
// destination cross a volume boundary.
func CopyRecursive(sourcePath, destinationPath string) (uint64, error) {
	info, err := Lstat(sourcePath)
	if err != nil {
		return 0, err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return 0, CopySymlink(sourcePath, destinationPath)
	}
	if info.IsDir() {
		return copyRecursiveDir(sourcePath, destinationPath)
	}
	var total uint64
	if err := CopyFile(sourcePath, destinationPath, info.Mode().Perm(), nil, func(delta uint64) {
		total += delta
	}); err != nil {
		return total, err
	}
	return total, nil
}

func copyRecursiveDir(sourcePath, destinationPath string) (uint64, error) {
	if err := MakeDir(destinationPath); err != nil {
		return 0, err
	}
	entries, err := ReadDirEntries(sourcePath)
	if err != nil {
		return 0, err
	}

	var total uint64
	for _, entry := range entries {
		childSource := filepath.Join(sourcePath, entry.Name)
		childDestination := filepath.Join(destinationPath, entry.Name)
		copied, err := CopyRecursive(childSource, childDestination)
		total += copied
		if err != nil {
			return total, errors.Wrap(err, "unable to copy child during recursive copy")
		}
	}
	return total, nil
}
