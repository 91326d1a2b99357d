package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/zen-systems/unigate/pkg/schema"
)

// historyWindow bounds how many prior turns contribute to a key so
// long conversations cannot blow up key cardinality.
const historyWindow = 4

// Fingerprint derives the stable cache key for a request. The key
// covers the normalized query, the analyzer's category, the request
// context, a bounded window of history, and the performance hint; it
// excludes the caller identity so identical queries from different
// callers share an entry.
func Fingerprint(features *schema.IntentFeatures, req *schema.Request) string {
	h := sha256.New()
	h.Write([]byte(features.Category))
	h.Write([]byte{0})
	h.Write([]byte(normalizeQuery(req.Query)))
	h.Write([]byte{0})
	h.Write([]byte(features.Hint))
	h.Write([]byte{0})

	keys := make([]string, 0, len(req.Context))
	for k := range req.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{1})
		h.Write([]byte(req.Context[k]))
		h.Write([]byte{0})
	}

	history := req.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, turn := range history {
		h.Write([]byte(turn.Role))
		h.Write([]byte{1})
		h.Write([]byte(normalizeQuery(turn.Content)))
		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil))[:32]
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
