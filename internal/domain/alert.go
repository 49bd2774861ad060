package domain

import "time"

// MaxAlerts is the number of alerts retained on the floor
const MaxAlerts = 10

// AlertType represents the severity of an alert
type AlertType string

const (
	AlertTypeUrgent  AlertType = "urgent"
	AlertTypeWarning AlertType = "warning"
	AlertTypeInfo    AlertType = "info"
	AlertTypeSuccess AlertType = "success"
)

// Alert is a notice shown to floor supervisors
type Alert struct {
	ID      string    `bson:"id" json:"id"`
	Type    AlertType `bson:"type" json:"type"`
	Title   string    `bson:"title" json:"title"`
	Message string    `bson:"message" json:"message"`
	Time    time.Time `bson:"time" json:"time"`
	OrderID string    `bson:"orderId,omitempty" json:"orderId,omitempty"`
	BatchID string    `bson:"batchId,omitempty" json:"batchId,omitempty"`
}

// ActivityType categorizes activity log entries
type ActivityType string

const (
	ActivityTypeOrder   ActivityType = "order"
	ActivityTypeStaff   ActivityType = "staff"
	ActivityTypeSLA     ActivityType = "sla"
	ActivityTypePicking ActivityType = "picking"
)

// ActivityLogEntry is an append-only record of something that happened on the floor
type ActivityLogEntry struct {
	ID     string       `bson:"_id" json:"id"`
	Type   ActivityType `bson:"type" json:"type"`
	Action string       `bson:"action" json:"action"`
	User   string       `bson:"user" json:"user"`
	Time   time.Time    `bson:"time" json:"time"`
}
