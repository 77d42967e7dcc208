package repository

import (
	"context"
	"database/sql"
	"fmt"

	"emri-dispatch/internal/domain"

	"github.com/google/uuid"
)

// Trigger criteria: minimum speed for a vehicle to count as moving, and the
// telemetry recency window. Vehicle types 108/420 are the ambulance fleet.
const (
	MotionThreshold = 10.0
)

// PostgresVehiclesRepository VehiclesRepository implementation
type PostgresVehiclesRepository struct {
	db *sql.DB
}

func NewPostgresVehiclesRepository(db *sql.DB) *PostgresVehiclesRepository {
	return &PostgresVehiclesRepository{db: db}
}

var _ VehiclesRepository = (*PostgresVehiclesRepository)(nil)

// FindEligibleVehicle selects at most one vehicle meeting every trigger
// predicate. Ordering by vehicle number keeps re-polls deterministic: the same
// candidate comes back until someone claims it.
func (r *PostgresVehiclesRepository) FindEligibleVehicle(ctx context.Context, agentID string) (*domain.EligibleVehicle, error) {
	if agentID == "" {
		return nil, fmt.Errorf("agent_id is required")
	}

	query := `
		SELECT
			vs.vehicle_number,
			vt.speed,
			vs.last_assigned_time,
			vt.rec_time,
			md.district_name,
			mv.location_name,
			mv.contact_number
		FROM vehicle_status vs
		JOIN m_vehicle mv ON mv.vehicle_no = vs.vehicle_number
		JOIN vehicle_telemetry vt ON vt.vehicle_number = vs.vehicle_number
		JOIN m_district md ON md.district_id = mv.district_id
		WHERE vs.status_id = '1'
		  AND mv.is_active = '1'
		  AND mv.vehicle_type_id IN ('108', '420')
		  AND vt.speed > $2
		  AND (vs.claiming_agent IS NULL OR vs.claiming_agent = '' OR vs.claiming_agent = '-' OR vs.claiming_agent = $1)
		  AND (vs.expected_stop IS NULL OR vs.expected_stop < NOW())
		  AND vt.rec_time >= NOW() - INTERVAL '1 hour'
		ORDER BY vs.vehicle_number
		LIMIT 1
	`

	var v domain.EligibleVehicle
	var district, location, contact sql.NullString

	err := r.db.QueryRowContext(ctx, query, agentID, MotionThreshold).Scan(
		&v.VehicleNumber,
		&v.Speed,
		&v.LastAssignedTime,
		&v.RecTime,
		&district,
		&location,
		&contact,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find eligible vehicle: %w", err)
	}

	if district.Valid {
		v.DistrictName = district.String
	}
	if location.Valid {
		v.LocationName = location.String
	}
	if contact.Valid {
		v.ContactNumber = contact.String
	}
	v.TriggerTime = v.LastAssignedTime

	return &v, nil
}

// ClaimVehicle is a compare-and-swap on claiming_agent. Re-claiming a vehicle
// the agent already holds succeeds, so the poll loop can safely retry.
func (r *PostgresVehiclesRepository) ClaimVehicle(ctx context.Context, agentID, vehicleNo string) (ClaimOutcome, error) {
	if agentID == "" || vehicleNo == "" {
		return ClaimVehicleNotFound, fmt.Errorf("agent_id and vehicle_no are required")
	}

	query := `
		UPDATE vehicle_status
		SET claiming_agent = $1
		WHERE vehicle_number = $2
		  AND (claiming_agent IS NULL OR claiming_agent = '' OR claiming_agent = '-' OR claiming_agent = $1)
	`

	result, err := r.db.ExecContext(ctx, query, agentID, vehicleNo)
	if err != nil {
		return ClaimVehicleNotFound, fmt.Errorf("failed to claim vehicle: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return ClaimVehicleNotFound, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return ClaimAcquired, nil
	}

	// Zero rows: either the row does not exist or another agent won the race.
	var holder sql.NullString
	err = r.db.QueryRowContext(ctx,
		`SELECT claiming_agent FROM vehicle_status WHERE vehicle_number = $1`,
		vehicleNo,
	).Scan(&holder)
	if err != nil {
		if err == sql.ErrNoRows {
			return ClaimVehicleNotFound, nil
		}
		return ClaimVehicleNotFound, fmt.Errorf("failed to inspect claim holder: %w", err)
	}

	return ClaimHeldByOther, nil
}

// SubmitDisposition runs the remark append and the claim release in a single
// transaction so a crash cannot leave one without the other.
func (r *PostgresVehiclesRepository) SubmitDisposition(ctx context.Context, remark *domain.AmbulanceRemark) error {
	if remark == nil || remark.VehicleNo == "" || remark.VehicleNo == domain.ClaimAgentNone {
		return fmt.Errorf("invalid vehicle_no")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if remark.RemarkID == "" {
		remark.RemarkID = uuid.NewString()
	}

	insertQuery := `
		INSERT INTO ambulance_remarks (
			remark_id,
			vehicle_no,
			speed,
			last_assigned,
			record_time,
			trigger_time,
			district,
			location,
			contact_no,
			selected_remark,
			other_remarks,
			expected_stop,
			submitted_by,
			submitted_by_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = tx.ExecContext(ctx, insertQuery,
		remark.RemarkID,
		remark.VehicleNo,
		nullFloat(remark.Speed),
		nullTime(remark.LastAssigned),
		nullTime(remark.RecordTime),
		nullTime(remark.TriggerTime),
		nullIfEmpty(remark.District),
		nullIfEmpty(remark.Location),
		nullIfEmpty(remark.ContactNo),
		nullIfEmpty(remark.SelectedRemark),
		nullIfEmpty(remark.OtherRemarks),
		nullTime(remark.ExpectedStop),
		nullIfEmpty(remark.SubmittedBy),
		nullIfEmpty(remark.SubmittedByID),
	)
	if err != nil {
		return fmt.Errorf("failed to insert remark: %w", err)
	}

	updateQuery := `
		UPDATE vehicle_status
		SET claiming_agent = NULL,
		    expected_stop = $1,
		    trigger_handle_time = NOW()
		WHERE vehicle_number = $2
	`

	result, err := tx.ExecContext(ctx, updateQuery, nullTime(remark.ExpectedStop), remark.VehicleNo)
	if err != nil {
		return fmt.Errorf("failed to release claim: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("vehicle not found")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit disposition: %w", err)
	}

	return nil
}

// UpsertTelemetry keeps one live row per vehicle.
func (r *PostgresVehiclesRepository) UpsertTelemetry(ctx context.Context, t *domain.VehicleTelemetry) error {
	if t == nil || t.VehicleNumber == "" {
		return fmt.Errorf("vehicle_number is required")
	}

	query := `
		INSERT INTO vehicle_telemetry (vehicle_number, speed, rec_time)
		VALUES ($1, $2, $3)
		ON CONFLICT (vehicle_number)
		DO UPDATE SET speed = EXCLUDED.speed,
		              rec_time = EXCLUDED.rec_time
	`

	if _, err := r.db.ExecContext(ctx, query, t.VehicleNumber, t.Speed, t.RecTime); err != nil {
		return fmt.Errorf("failed to upsert telemetry: %w", err)
	}
	return nil
}
