package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const NotificationTitleTaskAssigned = "new task assigned"

type Notification struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifications is stored as a JSONB array on the users row.
type Notifications []Notification

func (n Notifications) Value() (driver.Value, error) {
	if n == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(n)
}

func (n *Notifications) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*n = Notifications{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("notifications: unsupported scan type %T", src)
	}
	out := Notifications{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("notifications: %w", err)
	}
	*n = out
	return nil
}

// NotificationEvent is what the live stream pushes to a connected client.
type NotificationEvent struct {
	Index        int          `json:"index"`
	Notification Notification `json:"notification"`
}
