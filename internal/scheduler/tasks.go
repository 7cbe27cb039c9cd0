package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskFollowUpDue delivers one outbox row.
const TaskFollowUpDue = "followup.due"

type FollowUpDuePayload struct {
	OutboxID string `json:"outboxId"`
	StudioID string `json:"studioId"`
}

func NewFollowUpDueTask(payload FollowUpDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowUpDue, data), nil
}

func ParseFollowUpDuePayload(task *asynq.Task) (FollowUpDuePayload, error) {
	var payload FollowUpDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FollowUpDuePayload{}, err
	}
	return payload, nil
}
