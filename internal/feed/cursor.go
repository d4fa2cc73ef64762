package feed

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"

	"github.com/hyperjump/matchfeed/internal/models"
)

// ErrInvalidCursor is returned for tokens that fail to decode or validate.
var ErrInvalidCursor = fmt.Errorf("%w: invalid cursor", models.ErrInvalidInput)

// Cursor is the sort key of the last item on a page plus the profile generation it was built
// against.
type Cursor struct {
	Score      int
	ItemID     string
	Generation int64
}

type cursorPayload struct {
	Score      *int    `json:"s"`
	ItemID     *string `json:"i"`
	Generation int64   `json:"g"`
}

const checksumLen = 4

// EncodeCursor returns the opaque token for c.
func EncodeCursor(c Cursor) string {
	payload, _ := json.Marshal(cursorPayload{Score: &c.Score, ItemID: &c.ItemID, Generation: c.Generation})
	buf := make([]byte, checksumLen+len(payload))
	binary.BigEndian.PutUint32(buf, crc32.ChecksumIEEE(payload))
	copy(buf[checksumLen:], payload)
	return base64.RawURLEncoding.EncodeToString(buf)
}

// DecodeCursor parses a token produced by EncodeCursor. Any corruption yields ErrInvalidCursor.
func DecodeCursor(token string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: bad encoding", ErrInvalidCursor)
	}
	if len(raw) <= checksumLen {
		return nil, fmt.Errorf("%w: too short", ErrInvalidCursor)
	}
	payload := raw[checksumLen:]
	if binary.BigEndian.Uint32(raw) != crc32.ChecksumIEEE(payload) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidCursor)
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	var p cursorPayload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidCursor)
	}
	if p.ItemID == nil || *p.ItemID == "" {
		return nil, fmt.Errorf("%w: missing item id", ErrInvalidCursor)
	}
	if p.Score == nil || *p.Score < 0 || *p.Score > 100 {
		return nil, fmt.Errorf("%w: score out of range", ErrInvalidCursor)
	}
	if p.Generation < 0 {
		return nil, fmt.Errorf("%w: negative generation", ErrInvalidCursor)
	}
	return &Cursor{Score: *p.Score, ItemID: *p.ItemID, Generation: p.Generation}, nil
}
