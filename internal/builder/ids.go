package builder

import (
	"fmt"

	"github.com/google/uuid"
)

// Synthetic and generated entities need IDs that are both stable across
// rebuilds (so upserts dedupe instead of accumulating duplicate rows)
// and valid UUID text (the durable adapter declares these columns
// `type:uuid`). uuid.NewSHA1 over a namespace plus a logical key gives
// a deterministic UUID, the same trick content-addressed stores use to
// avoid a lookup table just to find an existing row's id.
var idNamespace = uuid.NameSpaceOID

func deterministicID(parts ...string) string {
	key := ""
	for _, p := range parts {
		key += p + "\x00"
	}
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}

func syntheticFeatureDocumentID(datasetID string) string {
	return deterministicID("feature-document", datasetID)
}

func chunkID(documentID string, index int) string {
	return deterministicID("chunk", documentID, fmt.Sprintf("%d", index))
}

func embeddingID(chunkID, model string) string {
	return deterministicID("embedding", chunkID, model)
}
