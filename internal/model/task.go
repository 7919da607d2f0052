package model

import (
	"encoding/json"
	"time"
)

type TaskType string

const TaskArchiveCleanup TaskType = "archive_cleanup"

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
)

// PurgedTable records how many rows a cascade removed from one table.
type PurgedTable struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

// TaskData is the JSON payload stored with a scheduled task.
type TaskData struct {
	OrganizationID   int64         `json:"organization_id"`
	OrganizationName string        `json:"organization_name,omitempty"`
	Purged           []PurgedTable `json:"purged"`
}

// DecodeTaskData parses a stored payload. A payload that cannot be parsed
// degrades to an empty TaskData with an empty Purged list.
func DecodeTaskData(raw []byte) TaskData {
	data := TaskData{Purged: []PurgedTable{}}
	if len(raw) == 0 {
		return data
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return TaskData{Purged: []PurgedTable{}}
	}
	if data.Purged == nil {
		data.Purged = []PurgedTable{}
	}
	return data
}

func (d TaskData) TotalRows() int64 {
	var total int64
	for _, p := range d.Purged {
		total += p.Rows
	}
	return total
}

// ScheduledTask is a row of the idempotency ledger. OrganizationID is the
// typed key that completion checks compare against.
type ScheduledTask struct {
	ID             int64      `json:"id"`
	TaskType       TaskType   `json:"task_type"`
	OrganizationID int64      `json:"organization_id"`
	Data           TaskData   `json:"task_data"`
	ScheduledFor   time.Time  `json:"scheduled_for"`
	Status         TaskStatus `json:"status"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type CleanupFailure struct {
	OrganizationID int64  `json:"organization_id"`
	Reason         string `json:"reason"`
}

// CleanupReport summarizes one archive cleanup run.
type CleanupReport struct {
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Cutoff     time.Time        `json:"cutoff"`
	Eligible   int              `json:"eligible"`
	Processed  int              `json:"processed"`
	Failed     []CleanupFailure `json:"failed"`
}
