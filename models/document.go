package models

// Document is a PDF/DOCX/KML description text container owned exclusively
// by a Dataset (§3). DefaultGeometry, if present, spatially anchors every
// Chunk that does not carry its own override geometry.
type Document struct {
	ID              string
	DatasetID       string
	Name            string
	Format          SourceFormat
	DefaultGeometry *Geometry
	// Text is the parser-extracted raw text the Index Builder chunks via
	// sliding-window (§4.3). Populated at ingestion time by the external
	// parser; the core never re-extracts it.
	Text string
}
