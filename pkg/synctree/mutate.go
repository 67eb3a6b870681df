package synctree

import "github.com/pathsync/pathsync/pkg/relpath"

// Set returns a new tree equal to root except that path now holds value
// (nil removes whatever was there). Every directory along path is replaced
// with a CopyShallow copy rather than mutated in place, so any other
// reference to root (or an ancestor snapshot derived from it) keeps seeing
// the original contents — this is the build-new-trees-with-Copy mutation
// model Entry's own documentation calls for, applied here to let the sync
// executor record each operation's effect on the in-memory model without
// reaching back into the filesystem.
func Set(root *Entry, path relpath.Path, value *Entry) *Entry {
	if path == relpath.Root {
		return value
	}
	return setAt(root, path.Components(), value)
}

func setAt(node *Entry, components []string, value *Entry) *Entry {
	name := components[0]
	rest := components[1:]

	var result *Entry
	if node != nil && node.Kind == EntryDirectory {
		result = node.Copy(CopyShallow)
	} else {
		result = &Entry{Kind: EntryDirectory}
	}
	if result.Contents == nil {
		result.Contents = make(map[string]*Entry)
	}

	if len(rest) == 0 {
		if value == nil {
			delete(result.Contents, name)
		} else {
			result.Contents[name] = value
		}
		return result
	}

	result.Contents[name] = setAt(result.Contents[name], rest, value)
	return result
}
