// Package jobs defines the asynq task types that drive background index
// builds, following the teacher's internal/queue task-definition pattern
// (type constants, typed payloads, a Processor that dispatches them).
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"georag/internal/logger"
)

const (
	// TaskBuildIndex asks the worker to (re)build a workspace's index.
	TaskBuildIndex = "index:build"
)

// BuildIndexPayload identifies the workspace to build and whether an
// already-current build should be superseded anyway (§4.7 force-rebuild).
type BuildIndexPayload struct {
	WorkspaceID string `json:"workspace_id"`
	Force       bool   `json:"force"`
}

// NewBuildIndexTask enqueues a build for workspaceID. Builds run on the
// "default" queue with no retry, so asynq never re-runs a stage that is
// not idempotent across partial progress. A failed build is logged and
// returned as the task's error; it writes no IndexBuild record.
func NewBuildIndexTask(workspaceID string, force bool) (*asynq.Task, error) {
	payload, err := json.Marshal(BuildIndexPayload{WorkspaceID: workspaceID, Force: force})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(
		TaskBuildIndex,
		payload,
		asynq.MaxRetry(0),
		asynq.Timeout(30*time.Minute),
		asynq.Queue("default"),
	), nil
}

// Builder is the subset of internal/builder's Builder the job processor
// depends on. Declared here, rather than imported, to keep internal/jobs
// free of a dependency on the builder package's storage/embedder wiring.
type Builder interface {
	Build(ctx context.Context, workspaceID string, force bool) error
}

// Processor dispatches asynq tasks to the workspace's Builder.
type Processor struct {
	builder Builder
}

func NewProcessor(builder Builder) *Processor {
	return &Processor{builder: builder}
}

func (p *Processor) HandleBuildIndex(ctx context.Context, t *asynq.Task) error {
	var payload BuildIndexPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal build index payload: %w: %w", err, asynq.SkipRetry)
	}

	logger.Info("build job starting", "workspace_id", payload.WorkspaceID, "force", payload.Force)

	if err := p.builder.Build(ctx, payload.WorkspaceID, payload.Force); err != nil {
		logger.Error("build job failed", "workspace_id", payload.WorkspaceID, "error", err)
		return err
	}

	logger.Info("build job completed", "workspace_id", payload.WorkspaceID)
	return nil
}
