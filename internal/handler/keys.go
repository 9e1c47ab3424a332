package handler

import (
	"fmt"
	"strings"
)

// ChunkKey returns the key of the chunk at index (0-based) cut from key.
// The marker and 1-based part number go before the extension:
// reports/manual.pdf -> reports/manual_part3.pdf for index 2.
// A key without an extension gets them appended.
func ChunkKey(key, marker string, index int) string {
	slash := strings.LastIndex(key, "/")
	if dot := strings.LastIndex(key, "."); dot > slash {
		return fmt.Sprintf("%s%s%d%s", key[:dot], marker, index+1, key[dot:])
	}
	return fmt.Sprintf("%s%s%d", key, marker, index+1)
}

// skipReason returns why key must not be split, or "" if it is a candidate.
// Rules are checked in order. None of them touch the store.
func (h *Handler) skipReason(key string) string {
	if !strings.HasSuffix(strings.ToLower(key), strings.ToLower(h.cfg.Extension)) {
		return "not a " + h.cfg.Extension + " file"
	}
	if strings.Contains(key, h.cfg.SplitMarker) {
		return "already a split file"
	}
	for _, excluded := range h.cfg.ExcludedPaths {
		if strings.Contains(key, excluded) {
			return "under excluded path " + excluded
		}
	}
	return ""
}
