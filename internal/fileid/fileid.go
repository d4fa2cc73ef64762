// Package fileid derives deterministic item IDs for records imported from files.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

const prefix = "imp_"

// ItemID returns a stable item ID for the record identified by key inside the file at
// absolutePath. The same path and key always yield the same ID, so re-importing a file updates
// its items instead of duplicating them. Keys are compared case-insensitively.
func ItemID(absolutePath, key string) string {
	normalized := filepath.Clean(absolutePath)
	h := sha256.New()
	h.Write([]byte(normalized))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(key))))
	return prefix + hex.EncodeToString(h.Sum(nil)[:16])
}

// RecordKey returns the import key of a record: its explicit ID when present, otherwise its
// title and company.
func RecordKey(explicitID, title, company string) string {
	if id := strings.TrimSpace(explicitID); id != "" {
		return "id:" + id
	}
	return "tc:" + strings.TrimSpace(title) + "\x1f" + strings.TrimSpace(company)
}
