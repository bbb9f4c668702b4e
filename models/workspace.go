package models

import "time"

// Workspace is the top-level namespace owning configuration, datasets,
// and the current index build (§3).
type Workspace struct {
	ID               string
	Name             string
	Crs              Crs
	DistanceUnit     DistanceUnit
	GeometryValidity ValidityMode
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
