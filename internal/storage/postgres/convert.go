package postgres

import (
	"encoding/hex"

	"github.com/pgvector/pgvector-go"

	"georag/internal/errs"
	"georag/internal/geo"
	"georag/models"
)

// Geometry and bbox columns are declared `geometry(...)` in Postgres.
// PostGIS's geometry input function accepts hex-encoded (E)WKB text
// directly, so a plain hex string bound as a text parameter implicitly
// casts into the column -- no ST_GeomFromWKB() call needed on the Go
// side. geometryToHexWKB/hexWKBToGeometry are the two ends of that cast.
func geometryToHexWKB(g models.Geometry) (string, error) {
	b, err := geo.EncodeWKB(g)
	if err != nil {
		return "", err
	}
	if b == nil {
		return "", nil
	}
	return hex.EncodeToString(b), nil
}

func hexWKBToGeometry(s string) (models.Geometry, error) {
	if s == "" {
		return models.Geometry{}, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return models.Geometry{}, errs.Wrap(errs.Parse, "postgres.hexWKBToGeometry", err)
	}
	return geo.DecodeWKB(b)
}

func envelopeToPolygon(e models.Envelope) models.Geometry {
	ring := models.Ring{
		{e.MinLng, e.MinLat},
		{e.MaxLng, e.MinLat},
		{e.MaxLng, e.MaxLat},
		{e.MinLng, e.MaxLat},
		{e.MinLng, e.MinLat},
	}
	return models.NewPolygon([]models.Ring{ring})
}

func polygonToEnvelope(g models.Geometry) models.Envelope {
	bound := geo.Bound(g)
	return models.Envelope{MinLng: bound.Min[0], MinLat: bound.Min[1], MaxLng: bound.Max[0], MaxLat: bound.Max[1]}
}

func datasetToRow(d *models.Dataset) (*DatasetRow, error) {
	bboxHex, err := geometryToHexWKB(envelopeToPolygon(d.Bbox))
	if err != nil {
		return nil, err
	}
	return &DatasetRow{
		ID:           d.ID,
		WorkspaceID:  d.WorkspaceID,
		Name:         d.Name,
		Format:       string(d.Format),
		Crs:          d.DeclaredCrs.EPSG,
		GeometryType: d.GeometryKind.String(),
		FeatureCount: d.FeatureCount,
		Bbox:         bboxHex,
		Properties:   JSONMap(d.Properties),
	}, nil
}

func rowToDataset(r *DatasetRow) (*models.Dataset, error) {
	kind, err := parseGeometryKind(r.GeometryType)
	if err != nil {
		return nil, err
	}
	var env models.Envelope
	if r.Bbox != "" {
		g, err := hexWKBToGeometry(r.Bbox)
		if err != nil {
			return nil, err
		}
		env = polygonToEnvelope(g)
	}
	return &models.Dataset{
		ID:           r.ID,
		WorkspaceID:  r.WorkspaceID,
		Name:         r.Name,
		Format:       models.SourceFormat(r.Format),
		DeclaredCrs:  models.Crs{EPSG: r.Crs},
		GeometryKind: kind,
		FeatureCount: r.FeatureCount,
		Bbox:         env,
		Properties:   map[string]any(r.Properties),
		CreatedAt:    r.CreatedAt,
	}, nil
}

func parseGeometryKind(s string) (models.GeometryKind, error) {
	for k := models.GeometryKind(0); k <= models.KindGeometryCollection; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, errs.New(errs.Parse, "unknown geometry kind: "+s)
}

func featureToRow(f *models.Feature) (*FeatureRow, error) {
	hexWKB, err := geometryToHexWKB(f.Geometry)
	if err != nil {
		return nil, err
	}
	return &FeatureRow{
		ID:         f.ID,
		DatasetID:  f.DatasetID,
		FeatureID:  f.FeatureID,
		Geometry:   hexWKB,
		Properties: JSONMap(f.Properties),
	}, nil
}

func rowToFeature(r *FeatureRow) (*models.Feature, error) {
	g, err := hexWKBToGeometry(r.Geometry)
	if err != nil {
		return nil, err
	}
	return &models.Feature{
		ID:         r.ID,
		DatasetID:  r.DatasetID,
		FeatureID:  r.FeatureID,
		Geometry:   g,
		Properties: map[string]any(r.Properties),
	}, nil
}

func documentToRow(d *models.Document) (*DocumentRow, error) {
	row := &DocumentRow{
		ID:        d.ID,
		DatasetID: d.DatasetID,
		Name:      d.Name,
		Format:    string(d.Format),
		Text:      d.Text,
		Metadata:  JSONMap{},
	}
	if d.DefaultGeometry != nil {
		hexWKB, err := geometryToHexWKB(*d.DefaultGeometry)
		if err != nil {
			return nil, err
		}
		row.DefaultGeometry = &hexWKB
	}
	return row, nil
}

func rowToDocument(r *DocumentRow) (*models.Document, error) {
	doc := &models.Document{
		ID:        r.ID,
		DatasetID: r.DatasetID,
		Name:      r.Name,
		Format:    models.SourceFormat(r.Format),
		Text:      r.Text,
	}
	if r.DefaultGeometry != nil {
		g, err := hexWKBToGeometry(*r.DefaultGeometry)
		if err != nil {
			return nil, err
		}
		doc.DefaultGeometry = &g
	}
	return doc, nil
}

func chunkToRow(c *models.Chunk) (*ChunkRow, error) {
	row := &ChunkRow{
		ID:          c.ID,
		DocumentID:  c.DocumentID,
		ChunkIndex:  c.Index,
		Content:     c.Content,
		StartOffset: c.StartByte,
		EndOffset:   c.EndByte,
		SpatialRef:  c.FeatureRef,
	}
	if c.Geometry != nil {
		hexWKB, err := geometryToHexWKB(*c.Geometry)
		if err != nil {
			return nil, err
		}
		row.Geometry = &hexWKB
	}
	return row, nil
}

func rowToChunk(r *ChunkRow) (*models.Chunk, error) {
	c := &models.Chunk{
		ID:         r.ID,
		DocumentID: r.DocumentID,
		Index:      r.ChunkIndex,
		Content:    r.Content,
		StartByte:  r.StartOffset,
		EndByte:    r.EndOffset,
		FeatureRef: r.SpatialRef,
	}
	if r.Geometry != nil && *r.Geometry != "" {
		g, err := hexWKBToGeometry(*r.Geometry)
		if err != nil {
			return nil, err
		}
		c.Geometry = &g
	}
	return c, nil
}

func embeddingToRow(e *models.Embedding) *EmbeddingRow {
	vec := make([]float32, len(e.Vector))
	copy(vec, e.Vector)
	return &EmbeddingRow{
		ID:         e.ID,
		ChunkID:    e.ChunkID,
		Model:      e.Model,
		Dimensions: e.Dimension,
		Vector:     pgvector.NewVector(vec),
	}
}

func rowToEmbedding(r *EmbeddingRow) *models.Embedding {
	return &models.Embedding{
		ID:        r.ID,
		ChunkID:   r.ChunkID,
		Model:     r.Model,
		Dimension: r.Dimensions,
		Vector:    r.Vector.Slice(),
	}
}
