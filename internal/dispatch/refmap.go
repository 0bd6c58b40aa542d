package dispatch

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"time"
)

var (
	// ErrUnknownReference is returned when a callback carries a short ID the
	// session does not know, either never issued or already expired.
	ErrUnknownReference = errors.New("unknown reference")
	// ErrRefCollision is returned when two channels map to the same short ID.
	ErrRefCollision = errors.New("short reference collision")
)

// refTTL bounds how long a short reference stays valid. Callback buttons
// older than this are treated as stale.
const refTTL = 15 * time.Minute

// ShortID derives the compact channel reference embedded in callback data.
// Callback payloads are limited to 64 bytes, so the full channel ID does not
// fit next to a post ID and a verb.
func ShortID(channelID int64) string {
	h := fnv.New64a()
	h.Write([]byte(strconv.FormatInt(channelID, 10)))
	return fmt.Sprintf("%016x", h.Sum64())[:8]
}

type refEntry struct {
	channelID int64
	issuedAt  time.Time
}

// RefMap resolves short references back to channel IDs. One map lives per
// moderator session; entries expire after refTTL.
type RefMap struct {
	entries map[string]refEntry
	now     func() time.Time
}

// NewRefMap creates an empty reference map.
func NewRefMap() *RefMap {
	return &RefMap{entries: make(map[string]refEntry), now: time.Now}
}

// BuildRefMap registers all channels at once, failing on the first short ID
// collision so a wrong channel can never be addressed.
func BuildRefMap(channelIDs []int64) (*RefMap, error) {
	m := NewRefMap()
	for _, id := range channelIDs {
		if _, err := m.Add(id); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Add registers a channel and returns its short reference. Registering the
// same channel again refreshes its expiry.
func (m *RefMap) Add(channelID int64) (string, error) {
	ref := ShortID(channelID)
	if existing, ok := m.entries[ref]; ok && existing.channelID != channelID {
		return "", fmt.Errorf("channels %d and %d share ref %s: %w", existing.channelID, channelID, ref, ErrRefCollision)
	}
	m.entries[ref] = refEntry{channelID: channelID, issuedAt: m.now()}
	return ref, nil
}

// Resolve maps a short reference back to its channel ID. Expired entries are
// removed and reported as unknown.
func (m *RefMap) Resolve(ref string) (int64, error) {
	entry, ok := m.entries[ref]
	if !ok {
		return 0, ErrUnknownReference
	}
	if m.now().Sub(entry.issuedAt) > refTTL {
		delete(m.entries, ref)
		return 0, ErrUnknownReference
	}
	return entry.channelID, nil
}
