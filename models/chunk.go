package models

// Chunk is a unit of retrievable text, owned exclusively by a Document
// (§3). Offsets are zero-based, absolute, [start,end) byte offsets into
// the document's source text, monotone per document. FeatureRef is a weak
// back-reference: storage nulls it when the referenced Feature is
// deleted, it never cascades the deletion to the Chunk (§9).
type Chunk struct {
	ID         string
	DocumentID string
	Index      int
	Content    string
	StartByte  int
	EndByte    int
	Geometry   *Geometry
	FeatureRef *string
}
