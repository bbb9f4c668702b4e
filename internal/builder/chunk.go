package builder

import (
	"context"
	"sort"
	"strings"

	"georag/internal/concurrency"
	"georag/internal/errs"
	"georag/internal/storage"
	"georag/internal/textproc"
	"georag/models"
)

// chunkAllMode builds every chunkRecord for a workspace's datasets: one
// Chunk per Feature (its properties rendered as key-sorted "key: value"
// lines) plus N sliding-window Chunks per Document, per §4.3. Feature
// chunks are parked on a synthetic per-dataset Document so they still
// satisfy Chunk's Document ownership (§3) without Documents needing to
// know about Features.
// persist controls whether a dataset's missing synthetic
// feature-Document gets created in storage: Plan and Verify pass
// persist=false so a dry-run preview or an integrity check never
// mutates state. preNormalized, when non-nil, supplies the
// already-reprojected-and-repaired in-memory Feature geometry per
// dataset id from normalizeAndValidate; when nil, features are read
// fresh from storage as-is (the Plan/Verify path, §9).
func (b *Builder) chunkAllMode(ctx context.Context, ws *models.Workspace, datasets []*models.Dataset, persist bool, preNormalized map[string][]*models.Feature) ([]chunkRecord, error) {
	var records []chunkRecord

	for _, ds := range datasets {
		if err := concurrency.Check(ctx); err != nil {
			return nil, err
		}

		featureRecords, err := b.chunkFeatures(ctx, ds, persist, preNormalized[ds.ID])
		if err != nil {
			return nil, err
		}
		records = append(records, featureRecords...)

		docRecords, err := b.chunkDocuments(ctx, ds)
		if err != nil {
			return nil, err
		}
		records = append(records, docRecords...)
	}

	return records, nil
}

func (b *Builder) chunkFeatures(ctx context.Context, ds *models.Dataset, persist bool, preFetched []*models.Feature) ([]chunkRecord, error) {
	features := preFetched
	if features == nil {
		fetched, err := b.store.Spatial().ListFeatures(ctx, ds.ID)
		if err != nil {
			return nil, err
		}
		features = fetched
	}
	if len(features) == 0 {
		return nil, nil
	}

	sort.SliceStable(features, func(i, j int) bool { return features[i].FeatureID < features[j].FeatureID })

	doc, err := b.featureDocument(ctx, ds, persist)
	if err != nil {
		return nil, err
	}

	records := make([]chunkRecord, 0, len(features))
	for i, f := range features {
		if err := concurrency.CheckBatch(ctx, i, concurrency.SpatialBatchSize); err != nil {
			return nil, err
		}
		featureID := f.FeatureID
		geom := f.Geometry
		content := textproc.FeatureText(f.Properties)
		if strings.TrimSpace(content) == "" {
			continue // no textual properties to ground a chunk on (§3 content non-empty)
		}
		records = append(records, chunkRecord{
			datasetName: ds.Name,
			featureID:   &featureID,
			chunk: &models.Chunk{
				ID:         chunkID(doc.ID, i),
				DocumentID: doc.ID,
				Index:      i,
				Content:    content,
				StartByte:  0,
				EndByte:    len(content),
				Geometry:   &geom,
				FeatureRef: &featureID,
			},
		})
	}
	return records, nil
}

// featureDocument returns the synthetic Document that owns a dataset's
// Feature-derived chunks, creating it in storage on first use when
// persist is true. The id is deterministic so repeated builds reuse
// the same row instead of accumulating one synthetic document per
// build, and so a persist=false preview computes the exact id a real
// build would use.
func (b *Builder) featureDocument(ctx context.Context, ds *models.Dataset, persist bool) (*models.Document, error) {
	id := syntheticFeatureDocumentID(ds.ID)
	placeholder := &models.Document{
		ID:        id,
		DatasetID: ds.ID,
		Name:      ds.Name + featureDocumentSuffix,
		Format:    ds.Format,
	}

	doc, err := b.store.Document().GetDocument(ctx, id)
	if err == nil {
		return doc, nil
	}
	if errs.KindOf(err) != errs.NotFound {
		return nil, err
	}
	if !persist {
		return placeholder, nil
	}

	if err := b.store.Document().CreateDocument(ctx, nil, placeholder); err != nil {
		return nil, err
	}
	return placeholder, nil
}

func (b *Builder) chunkDocuments(ctx context.Context, ds *models.Dataset) ([]chunkRecord, error) {
	docs, err := b.store.Document().ListDocumentsByDataset(ctx, ds.ID)
	if err != nil {
		return nil, err
	}

	var real []*models.Document
	for _, d := range docs {
		if d.Name == ds.Name+featureDocumentSuffix {
			continue // the synthetic feature-chunk carrier, not a real ingested Document
		}
		real = append(real, d)
	}
	sort.SliceStable(real, func(i, j int) bool { return real[i].Name < real[j].Name })

	var records []chunkRecord
	for _, doc := range real {
		windows := textproc.SlidingWindow(doc.Text, b.cfg.ChunkWindowSize, b.cfg.ChunkOverlap)
		for i, w := range windows {
			if err := concurrency.CheckBatch(ctx, i, concurrency.SpatialBatchSize); err != nil {
				return nil, err
			}
			docName := doc.Name
			records = append(records, chunkRecord{
				datasetName:  ds.Name,
				documentName: &docName,
				chunk: &models.Chunk{
					ID:         chunkID(doc.ID, i),
					DocumentID: doc.ID,
					Index:      i,
					Content:    w.Content,
					StartByte:  w.Start,
					EndByte:    w.End,
					Geometry:   doc.DefaultGeometry,
				},
			})
		}
	}
	return records, nil
}

// persistChunks upserts every produced chunk in one transaction per
// document ownership boundary, matching the "exactly one transaction
// per dataset" rule of §4.6 at the chunk granularity it actually holds
// a lock for.
func (b *Builder) persistChunks(ctx context.Context, records []chunkRecord) error {
	byDocument := make(map[string][]*models.Chunk)
	for _, r := range records {
		byDocument[r.chunk.DocumentID] = append(byDocument[r.chunk.DocumentID], r.chunk)
	}

	for _, chunks := range byDocument {
		if err := concurrency.Check(ctx); err != nil {
			return err
		}
		tx, err := beginChunkTx(ctx, b.store)
		if err != nil {
			return err
		}
		if err := b.store.Document().UpsertChunks(ctx, tx, chunks); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}
	return nil
}

// beginChunkTx opens a transaction via the Spatial port, the only port
// that exposes BeginTx; DocumentStore shares the same underlying
// transaction abstraction (storage.Transaction) across all three ports
// in both adapters.
func beginChunkTx(ctx context.Context, store storage.Adapter) (storage.Transaction, error) {
	return store.Spatial().BeginTx(ctx)
}
