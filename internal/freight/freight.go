// Package freight moves data objects from a source geodatabase to a target geodatabase.
//
// A run takes inventories of both workspaces, lines up a train of freight cars (one per
// feature class, table or raster dataset to ship) and sends each car down the track:
// new objects are copied, existing ones are refreshed (optionally only when a change is
// detected) and raster datasets are reloaded.
package freight

import (
	"time"

	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
)

// Car is one data object lined up for shipping.
type Car struct {
	SourcePrefix  string         `json:"sourcePrefix"`
	Dataset       string         `json:"dataset,omitempty"` // containing feature dataset, without prefix
	Name          string         `json:"name"`              // without prefix
	Type          gdb.ObjectType `json:"type"`
	DetectChanges bool           `json:"detectChanges"`
	SortField     string         `json:"sortField,omitempty"`
	AlreadyThere  bool           `json:"alreadyThere"`
	TargetPrefix  string         `json:"targetPrefix"`
}

// SourceName returns the car's full name in the source geodatabase.
func (c Car) SourceName() string { return c.SourcePrefix + c.Name }

// Action is what happened to a car.
type Action string

const (
	ActionCopied    Action = "copied"
	ActionRefreshed Action = "refreshed"
	ActionUnchanged Action = "unchanged"
	ActionSkipped   Action = "skipped"
	ActionFailed    Action = "failed"
)

// Waybill records the outcome of one car.
type Waybill struct {
	Car        Car    `json:"car"`
	Action     Action `json:"action"`
	Target     string `json:"target,omitempty"`
	SourceRows int64  `json:"sourceRows"`
	TargetRows int64  `json:"targetRows"`
	Digest     string `json:"digest,omitempty"`
	Archive    string `json:"archive,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Report summarizes a run. It is returned by scheduled runs and must stay serializable.
type Report struct {
	RunID      string    `json:"runId"`
	Source     string    `json:"source"`
	Target     string    `json:"target"`
	SourceRole string    `json:"sourceRole,omitempty"`
	TargetRole string    `json:"targetRole,omitempty"`
	Started    time.Time `json:"started"`
	Finished   time.Time `json:"finished"`
	Waybills   []Waybill `json:"waybills"`
	Failed     bool      `json:"failed"`
	Error      string    `json:"error,omitempty"`
	EmailError string    `json:"emailError,omitempty"`
	Body       string    `json:"body"`
}

// Count returns the number of waybills with the given action.
func (r *Report) Count(action Action) int {
	n := 0
	for _, w := range r.Waybills {
		if w.Action == action {
			n++
		}
	}
	return n
}
