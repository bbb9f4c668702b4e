// Package textproc turns Features and Documents into Chunks (§4.3).
// Grounded on the teacher's services.SmartChunkingService for the
// sliding-window idiom (paragraph-aware splitting, overlap carried
// forward into the next window), adapted to the spec's exact window
// size, UTF-8 boundary rule, and byte-offset contract.
package textproc

import (
	"fmt"
	"sort"
	"strings"
)

// FeatureText renders a Feature's property bag as the concatenation of
// its textual properties in key-sorted order, one "key: value" line per
// property (§4.3). Non-string values are rendered with fmt's default
// verb so numeric and boolean properties still contribute text.
func FeatureText(properties map[string]any) string {
	keys := make([]string, 0, len(properties))
	for k := range properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %v", k, properties[k])
	}
	return b.String()
}
