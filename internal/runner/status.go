package runner

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const statusChannel = "run_updates"

// statusUpdate mirrors the JSON blob stored in the run:{run_id} hash, read
// by the control plane when it polls a run's status.
type statusUpdate struct {
	RunID     string      `json:"run_id"`
	Status    string      `json:"status"`
	UpdatedAt float64     `json:"updated_at"`
	Result    interface{} `json:"result,omitempty"`
}

type statusNotification struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// publishStatus writes the run's status into its Redis hash and publishes a
// short notification on the run_updates channel, in that order: readers
// polling the hash must never observe a status change before it's durable.
func publishStatus(ctx context.Context, client *redis.Client, runID, status string, result interface{}, now time.Time) error {
	update := statusUpdate{
		RunID:     runID,
		Status:    status,
		UpdatedAt: float64(now.UnixNano()) / 1e9,
		Result:    result,
	}

	payload, err := json.Marshal(update)
	if err != nil {
		return err
	}

	if err := client.HSet(ctx, "run:"+runID, map[string]interface{}{"status": string(payload)}).Err(); err != nil {
		return err
	}

	notification, err := json.Marshal(statusNotification{RunID: runID, Status: status})
	if err != nil {
		return err
	}

	return client.Publish(ctx, statusChannel, string(notification)).Err()
}
