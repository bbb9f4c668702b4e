package geo

import (
	"github.com/paulmach/orb/encoding/wkb"

	"georag/models"
)

// EncodeWKB renders g as well-known binary, used both by the durable
// Postgres adapter's geometry columns and by the builder's fingerprint
// algorithm (§4.7), which hashes "normalized geometry WKB or ∅".
func EncodeWKB(g models.Geometry) ([]byte, error) {
	og := ToOrb(g)
	if og == nil {
		return nil, nil
	}
	return wkb.Marshal(og)
}

// DecodeWKB parses well-known binary back into a canonical Geometry.
func DecodeWKB(data []byte) (models.Geometry, error) {
	og, err := wkb.Unmarshal(data)
	if err != nil {
		return models.Geometry{}, err
	}
	return FromOrb(og), nil
}
