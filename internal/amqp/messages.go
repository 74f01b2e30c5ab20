package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// ReportExportMessage asks the worker to export a stored run. The worker
// loads the run itself; the message only carries its id.
type ReportExportMessage struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReportExportMessage(runID string) *ReportExportMessage {
	return &ReportExportMessage{
		RunID:     runID,
		Timestamp: time.Now(),
	}
}

func (m *ReportExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportExportMessageFromJSON(data []byte) (*ReportExportMessage, error) {
	var msg ReportExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.RunID == "" {
		return nil, errors.New("message has no run_id")
	}
	return &msg, nil
}
