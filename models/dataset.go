package models

import "time"

// SourceFormat tags the origin file format a Dataset was ingested from.
// The parser that produced the entities is an external collaborator (§1);
// the core only records which format it declared.
type SourceFormat string

const (
	FormatGeoJSON   SourceFormat = "geojson"
	FormatShapefile SourceFormat = "shapefile"
	FormatGPX       SourceFormat = "gpx"
	FormatKML       SourceFormat = "kml"
	FormatPDF       SourceFormat = "pdf"
	FormatDOCX      SourceFormat = "docx"
)

// Envelope is an axis-aligned bounding box, always stored in EPSG:4326.
type Envelope struct {
	MinLng, MinLat, MaxLng, MaxLat float64
}

// Union returns the smallest envelope covering both e and o.
func (e Envelope) Union(o Envelope) Envelope {
	return Envelope{
		MinLng: min(e.MinLng, o.MinLng),
		MinLat: min(e.MinLat, o.MinLat),
		MaxLng: max(e.MaxLng, o.MaxLng),
		MaxLat: max(e.MaxLat, o.MaxLat),
	}
}

// Dataset is a named collection of Features and/or Documents ingested from
// one source, owned exclusively by a Workspace (§3). Immutable after
// ingestion except for Bbox, which is recomputed on repair.
type Dataset struct {
	ID           string
	WorkspaceID  string
	Name         string
	Format       SourceFormat
	DeclaredCrs  Crs
	GeometryKind GeometryKind
	FeatureCount int
	Bbox         Envelope
	Properties   map[string]any
	CreatedAt    time.Time
}
