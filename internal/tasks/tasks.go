package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/plantdash/plantdash/internal/client"
)

// Task type constants
const (
	TypeSubmitReport = "report:submit"
)

// Queue names
const (
	QueueReports = "reports"
)

// SubmitReportPayload identifies the browser session whose token submits
// the report. The token itself never enters the queue.
type SubmitReportPayload struct {
	SessionID string                     `json:"session_id"`
	Request   client.CreateReportRequest `json:"request"`
}

// NewSubmitReportTask creates a task that sends a report request to the
// backend on behalf of a browser session
func NewSubmitReportTask(sessionID string, req client.CreateReportRequest) (*asynq.Task, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	payload, err := json.Marshal(SubmitReportPayload{
		SessionID: sessionID,
		Request:   req,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeSubmitReport, payload, asynq.Queue(QueueReports), asynq.MaxRetry(5)), nil
}

// ParseSubmitReportPayload parses the payload of a report task
func ParseSubmitReportPayload(task *asynq.Task) (SubmitReportPayload, error) {
	var payload SubmitReportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if payload.SessionID == "" {
		return payload, fmt.Errorf("payload has no session id")
	}
	return payload, nil
}
