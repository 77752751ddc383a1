package booking

import (
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"time"
)

// ConfirmationCode derives the 8-character code customers quote at the desk.
// Deterministic over (booking id, creation instant) so a replayed request
// always carries the same code.
func ConfirmationCode(bookingID int64, createdAt time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%d", bookingID, createdAt.UnixNano())))
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(sum[:5])[:8]
}
