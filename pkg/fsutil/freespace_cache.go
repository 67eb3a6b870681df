package fsutil

import (
	"github.com/golang/groupcache/singleflight"
)

// freeSpaceGroup deduplicates concurrent FreeSpace probes against the same
// volume. The pre-flight checks (C12) and the sync executor can both query
// free space for the same destination root within the same cycle; without
// deduplication that's two redundant statfs/GetDiskFreeSpaceEx calls for
// identical information. This mirrors the rationale behind the teacher's
// behaviorCache in synchronization/core/scan.go, which exists to avoid
// redundant expensive probes of the same path.
var freeSpaceGroup singleflight.Group

// CachedFreeSpace reports free bytes available at path, collapsing
// concurrent callers that ask about the same path into a single underlying
// FreeSpace call.
func CachedFreeSpace(path string) (uint64, error) {
	result, err := freeSpaceGroup.Do(path, func() (interface{}, error) {
		return FreeSpace(path)
	})
	if err != nil {
		return 0, err
	}
	return result.(uint64), nil
}
