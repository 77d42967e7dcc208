package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"emri-dispatch/internal/domain"
	"emri-dispatch/internal/repository"

	"go.uber.org/zap"
)

// telemetryMessage is the tracker feed payload. The vendor batches multiple
// vehicles per publish, so the wire format is an array.
type telemetryMessage struct {
	VehicleNo string  `json:"vehicleNo"`
	Speed     float64 `json:"speed"`
	RecTime   string  `json:"recTime"`
}

// TelemetryIngest refreshes vehicle_telemetry from the tracker MQTT feed.
// Eligibility stays read-only over this table; this is the write side.
type TelemetryIngest struct {
	vehicles repository.VehiclesRepository
	logger   *zap.Logger
}

func NewTelemetryIngest(vehicles repository.VehiclesRepository, logger *zap.Logger) *TelemetryIngest {
	return &TelemetryIngest{
		vehicles: vehicles,
		logger:   logger,
	}
}

// HandleMessage parses one publish and upserts every well-formed entry.
// Malformed entries are skipped with a warning rather than failing the batch.
func (t *TelemetryIngest) HandleMessage(topic string, payload []byte) error {
	var messages []telemetryMessage
	if err := json.Unmarshal(payload, &messages); err != nil {
		// single-object publishes happen too
		var single telemetryMessage
		if err2 := json.Unmarshal(payload, &single); err2 != nil {
			return fmt.Errorf("failed to parse telemetry payload: %w", err)
		}
		messages = []telemetryMessage{single}
	}

	ctx := context.Background()
	for _, msg := range messages {
		if msg.VehicleNo == "" {
			t.logger.Warn("telemetry entry without vehicleNo skipped", zap.String("topic", topic))
			continue
		}

		recTime, err := time.Parse(time.RFC3339, msg.RecTime)
		if err != nil {
			t.logger.Warn("telemetry entry with bad recTime skipped",
				zap.String("vehicle_no", msg.VehicleNo),
				zap.String("rec_time", msg.RecTime))
			continue
		}

		err = t.vehicles.UpsertTelemetry(ctx, &domain.VehicleTelemetry{
			VehicleNumber: msg.VehicleNo,
			Speed:         msg.Speed,
			RecTime:       recTime,
		})
		if err != nil {
			return fmt.Errorf("failed to store telemetry for %s: %w", msg.VehicleNo, err)
		}
	}

	return nil
}
