package jobs

import (
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSnapshotWarmup refreshes cached process-flow snapshots.
	TaskSnapshotWarmup = "processflow:snapshot_warmup"
)

// SnapshotWarmupPayload selects the companies to warm. An empty list warms
// every company with process-flow data.
type SnapshotWarmupPayload struct {
	CompanyIDs []int64 `json:"company_ids,omitempty"`
}

// NewSnapshotWarmupTask constructs an Asynq task for the snapshot warmup job.
func NewSnapshotWarmupTask(companyIDs ...int64) (*asynq.Task, error) {
	for _, id := range companyIDs {
		if id <= 0 {
			return nil, errors.New("snapshot warmup: company ids must be positive")
		}
	}
	body, err := json.Marshal(SnapshotWarmupPayload{CompanyIDs: companyIDs})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSnapshotWarmup, body, asynq.Queue(QueueDefault)), nil
}
