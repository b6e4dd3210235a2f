// Package contentkey derives the short identifiers used to correlate a remote
// book with its local file and with the host's document index. A key is a pure
// function of the book's stable identifier, so it survives process restarts and
// repeated syncs.
package contentkey

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// 🔑 Key hashes a stable identifier down to a fixed-width hex string. The same
// identifier always produces the same key; two distinct identifiers colliding
// silently merges the two books, which the addressing scheme accepts.
func Key(stableIdentifier string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(stableIdentifier))
}
