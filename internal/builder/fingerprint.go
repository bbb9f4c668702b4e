package builder

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"georag/internal/geo"
	"georag/models"
)

// chunkRecord is the ordering and hashing unit the fingerprint walks, one
// per produced Chunk, carrying just enough context to resolve the
// serialization fields of §4.7 without re-querying storage.
type chunkRecord struct {
	datasetName  string
	featureID    *string
	documentName *string
	chunk        *models.Chunk
}

// sortChunkRecords orders records per §4.7: dataset name asc, feature_id
// asc, then document name asc, chunk_index asc. A nil feature_id or
// document_name sorts before any non-nil value of the same field,
// keeping the order a strict total order regardless of which branch
// (feature-derived or document-derived) produced the chunk.
func sortChunkRecords(records []chunkRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.datasetName != b.datasetName {
			return a.datasetName < b.datasetName
		}
		if c := compareOptionalString(a.featureID, b.featureID); c != 0 {
			return c < 0
		}
		if c := compareOptionalString(a.documentName, b.documentName); c != 0 {
			return c < 0
		}
		return a.chunk.Index < b.chunk.Index
	})
}

func compareOptionalString(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a == *b:
		return 0
	case *a < *b:
		return -1
	default:
		return 1
	}
}

// fingerprint computes the SHA-256 digest of the serialized build inputs
// per §4.7: workspace CRS/distance-unit/geometry-validity, embedder model
// and dimension, then every chunk in deterministic order contributing
// its dataset name, feature id (or "-"), document name (or "-"), chunk
// index, content hash, and normalized geometry WKB (or "∅").
func fingerprint(ws *models.Workspace, embedderModel string, embedderDim int, records []chunkRecord) (string, error) {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%s|", ws.Crs.EPSG, ws.DistanceUnit.String(), ws.GeometryValidity.String())
	fmt.Fprintf(h, "%s|%d|", embedderModel, embedderDim)

	for _, r := range records {
		fmt.Fprintf(h, "%s|%s|%s|%d|", r.datasetName, orDash(r.featureID), orDash(r.documentName), r.chunk.Index)

		contentSum := sha256.Sum256([]byte(r.chunk.Content))
		fmt.Fprintf(h, "%s|", hex.EncodeToString(contentSum[:]))

		geomToken := "∅" // "∅", no geometry
		if r.chunk.Geometry != nil {
			wkb, err := geo.EncodeWKB(*r.chunk.Geometry)
			if err != nil {
				return "", err
			}
			geomToken = hex.EncodeToString(wkb)
		}
		fmt.Fprintf(h, "%s\n", geomToken)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func orDash(s *string) string {
	if s == nil {
		return "-"
	}
	return strings.ReplaceAll(*s, "|", "\\|")
}
