package cloudevents

import (
	"time"
)

// Event types published by the batching service
const (
	BatchPlanned          = "wms.batch.planned"
	BatchStarted          = "wms.batch.started"
	BatchCompleted        = "wms.batch.completed"
	OrderAssigned         = "wms.order.assigned"
	OrderSLAAtRisk        = "wms.order.sla-at-risk"
	EmployeeStatusChanged = "wms.employee.status-changed"
)

// SourceBatching is the CloudEvents source of this service
const SourceBatching = "/wms/batching-service"

// WMSCloudEvent is a CloudEvents v1.0 envelope with WMS extensions
type WMSCloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	CorrelationID string `json:"wmscorrelationid,omitempty"`
	BatchID       string `json:"wmsbatchid,omitempty"`
	WorkflowID    string `json:"wmsworkflowid,omitempty"`
}

// Extensions returns the WMS extension attributes that are set
func (e *WMSCloudEvent) Extensions() map[string]string {
	ext := make(map[string]string, 3)
	if e.CorrelationID != "" {
		ext["wmscorrelationid"] = e.CorrelationID
	}
	if e.BatchID != "" {
		ext["wmsbatchid"] = e.BatchID
	}
	if e.WorkflowID != "" {
		ext["wmsworkflowid"] = e.WorkflowID
	}
	return ext
}
