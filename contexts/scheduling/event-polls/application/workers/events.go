package workers

import (
	"encoding/json"
	"strings"

	"sheepyard/contexts/scheduling/event-polls/ports"
)

const moduleName = "scheduling/event-polls"

type pollEventPayload struct {
	PollID string `json:"poll_id"`
}

func decodePollID(event ports.EventEnvelope) string {
	var payload pollEventPayload
	if len(event.Data) > 0 {
		_ = json.Unmarshal(event.Data, &payload)
	}
	if pollID := strings.TrimSpace(payload.PollID); pollID != "" {
		return pollID
	}
	return strings.TrimSpace(event.PartitionKey)
}
