package syncexec

import (
	"strings"

	"github.com/pathsync/pathsync/pkg/relpath"
)

// isPrefixOrEqual reports whether ancestor is path itself or a directory
// somewhere above it in the tree.
func isPrefixOrEqual(ancestor, path relpath.Path) bool {
	if ancestor == path {
		return true
	}
	if ancestor == relpath.Root {
		return path != relpath.Root
	}
	return strings.HasPrefix(string(path), string(ancestor)+"/")
}

// isStrictDescendant reports whether path lies somewhere underneath
// ancestor, excluding ancestor itself.
func isStrictDescendant(ancestor, path relpath.Path) bool {
	if ancestor == relpath.Root {
		return path != relpath.Root
	}
	return strings.HasPrefix(string(path), string(ancestor)+"/")
}
