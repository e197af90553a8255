package lease

import (
	"strconv"
	"strings"
)

// DefaultKeyPrefix namespaces lease keys in the store.
const DefaultKeyPrefix = "mosaic:tile:"

func (r *Repository) slotKey(slotID int) string {
	return r.prefix + strconv.Itoa(slotID)
}

// slotIDFromKey is the inverse of slotKey. Keys that slotKey could not have
// produced are rejected.
func (r *Repository) slotIDFromKey(key string) (int, bool) {
	raw, ok := strings.CutPrefix(key, r.prefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 || strconv.Itoa(id) != raw {
		return 0, false
	}
	return id, true
}
