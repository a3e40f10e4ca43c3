package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/campuspulse/attendance-api/internal/models"
)

// CSVExporter renders checkpoint mark listings for offline operator review.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

var markHeaders = []string{"participant_id", "participant_name", "layer", "method", "marked_at", "actor_id", "actor_role", "device_fingerprint"}

// RenderMarks produces CSV encoded bytes for a checkpoint's marks.
func (e *CSVExporter) RenderMarks(marks []models.CheckpointMarkRecord) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(markHeaders); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, mark := range marks {
		fingerprint := ""
		if mark.DeviceFingerprint != nil {
			fingerprint = *mark.DeviceFingerprint
		}
		record := []string{
			mark.ParticipantID,
			mark.ParticipantName,
			string(mark.Layer),
			string(mark.Method),
			mark.MarkedAt.UTC().Format(time.RFC3339),
			mark.ActorID,
			mark.ActorRole,
			fingerprint,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
