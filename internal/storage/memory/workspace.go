package memory

import (
	"context"

	"georag/internal/errs"
	"georag/internal/storage"
	"georag/models"
)

type workspaceStore Adapter

func (w *workspaceStore) a() *Adapter { return (*Adapter)(w) }

func (w *workspaceStore) CreateWorkspace(ctx context.Context, ws *models.Workspace) error {
	a := w.a()
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.workspaces[ws.ID]; exists {
		return errs.New(errs.Conflict, "workspace already exists").WithEntity(ws.ID)
	}
	a.workspaces[ws.ID] = ws
	return nil
}

func (w *workspaceStore) GetWorkspace(ctx context.Context, id string) (*models.Workspace, error) {
	a := w.a()
	a.mu.RLock()
	defer a.mu.RUnlock()
	ws, ok := a.workspaces[id]
	if !ok {
		return nil, errs.New(errs.NotFound, "workspace not found").WithEntity(id)
	}
	return ws, nil
}

func (w *workspaceStore) CreateIndexBuild(ctx context.Context, tx storage.Transaction, b *models.IndexBuild) error {
	a := w.a()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.indexBuilds[b.WorkspaceID] = append(a.indexBuilds[b.WorkspaceID], b)
	return nil
}

func (w *workspaceStore) CurrentIndexBuild(ctx context.Context, workspaceID string) (*models.IndexBuild, error) {
	a := w.a()
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, b := range a.indexBuilds[workspaceID] {
		if b.Current {
			return b, nil
		}
	}
	return nil, errs.New(errs.IndexNotBuilt, "no current index build for workspace").WithEntity(workspaceID)
}

// SupersedeIndexBuild atomically flips Current off every prior build and
// on for newBuildID, the tear-down-on-success-only rule of §4.7: a build
// that fails leaves the previously current build untouched.
func (w *workspaceStore) SupersedeIndexBuild(ctx context.Context, tx storage.Transaction, workspaceID, newBuildID string) error {
	a := w.a()
	a.mu.Lock()
	defer a.mu.Unlock()

	found := false
	for _, b := range a.indexBuilds[workspaceID] {
		if b.ID == newBuildID {
			found = true
			continue
		}
	}
	if !found {
		return errs.New(errs.NotFound, "index build not found").WithEntity(newBuildID)
	}

	for _, b := range a.indexBuilds[workspaceID] {
		b.Current = b.ID == newBuildID
	}
	return nil
}
