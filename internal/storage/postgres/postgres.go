package postgres

import (
	"context"
	"time"

	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"georag/internal/config"
	"georag/internal/errs"
	"georag/internal/storage"
)

// Adapter is the durable implementation of storage.Adapter, backed by one
// *gorm.DB connection pool shared across every port.
type Adapter struct {
	db *gorm.DB
}

// Open dials Postgres per cfg's DSN and pool sizing (§5 "storage pool;
// default min 2 / max 10; acquire 30s") and runs AutoMigrate for every
// row type in this package.
func Open(cfg *config.Config) (*Adapter, error) {
	db, err := gorm.Open(gormpg.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		return nil, errs.Wrap(errs.Io, "postgres.Open", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errs.Wrap(errs.Io, "postgres.Open", err)
	}
	sqlDB.SetMaxOpenConns(cfg.StoragePoolMaxConns)
	sqlDB.SetMaxIdleConns(cfg.StoragePoolMinConns)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.StoragePoolAcquireTimeoutSeconds) * time.Second)

	if err := db.AutoMigrate(
		&WorkspaceRow{}, &DatasetRow{}, &FeatureRow{},
		&DocumentRow{}, &ChunkRow{}, &EmbeddingRow{}, &IndexBuildRow{},
	); err != nil {
		return nil, errs.Wrap(errs.Io, "postgres.AutoMigrate", err)
	}

	return &Adapter{db: db}, nil
}

func (a *Adapter) Spatial() storage.SpatialStore     { return (*spatialStore)(a) }
func (a *Adapter) Vector() storage.VectorStore       { return (*vectorStore)(a) }
func (a *Adapter) Document() storage.DocumentStore   { return (*documentStore)(a) }
func (a *Adapter) Workspace() storage.WorkspaceStore { return (*workspaceStore)(a) }

// tx wraps a *gorm.DB transaction handle opened by BeginTx, giving every
// port method a consistent (ctx, Transaction) signature whether it runs
// inside an explicit transaction or against the pool directly.
type tx struct {
	db *gorm.DB
}

func (t *tx) Commit(ctx context.Context) error {
	if err := t.db.WithContext(ctx).Commit().Error; err != nil {
		return errs.Wrap(errs.Io, "postgres.Commit", err)
	}
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	if err := t.db.WithContext(ctx).Rollback().Error; err != nil {
		return errs.Wrap(errs.Io, "postgres.Rollback", err)
	}
	return nil
}

// dbFor resolves the *gorm.DB to run a statement against: the open
// transaction's handle if t is a *tx from this adapter's BeginTx, or the
// pool directly for read-only calls that take a nil Transaction.
func (a *Adapter) dbFor(ctx context.Context, t storage.Transaction) *gorm.DB {
	if pgTx, ok := t.(*tx); ok && pgTx != nil {
		return pgTx.db
	}
	return a.db.WithContext(ctx)
}

func beginTx(ctx context.Context, db *gorm.DB) (storage.Transaction, error) {
	gtx := db.WithContext(ctx).Begin()
	if gtx.Error != nil {
		return nil, errs.Wrap(errs.Io, "postgres.BeginTx", gtx.Error)
	}
	return &tx{db: gtx}, nil
}

func wrapGormErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if err == gorm.ErrRecordNotFound {
		return errs.New(errs.NotFound, "record not found").WithOp(op)
	}
	return errs.Wrap(errs.Io, op, err)
}
