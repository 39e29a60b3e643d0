package chat

import "time"

// Session captures a transient anonymous conversation with one soul blueprint.
type Session struct {
	ID          string    `json:"id"`
	BlueprintID string    `json:"blueprintId"`
	CreatedAt   time.Time `json:"createdAt"`
}
