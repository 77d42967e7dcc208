package repository

import (
	"context"
	"database/sql"
	"fmt"

	"emri-dispatch/internal/domain"
)

// PostgresRemarksRepository RemarksRepository implementation
type PostgresRemarksRepository struct {
	db *sql.DB
}

func NewPostgresRemarksRepository(db *sql.DB) *PostgresRemarksRepository {
	return &PostgresRemarksRepository{db: db}
}

var _ RemarksRepository = (*PostgresRemarksRepository)(nil)

// ListRemarkOptions returns the canned remark strings shown in the
// disposition form dropdown.
func (r *PostgresRemarksRepository) ListRemarkOptions(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT remark FROM remarks ORDER BY remark`)
	if err != nil {
		return nil, fmt.Errorf("failed to list remark options: %w", err)
	}
	defer rows.Close()

	options := []string{}
	for rows.Next() {
		var remark string
		if err := rows.Scan(&remark); err != nil {
			return nil, fmt.Errorf("failed to scan remark: %w", err)
		}
		options = append(options, remark)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate remarks: %w", err)
	}

	return options, nil
}

// ListDispositions returns the full disposition audit, newest first. Feeds the
// supervisor export.
func (r *PostgresRemarksRepository) ListDispositions(ctx context.Context) ([]*domain.AmbulanceRemark, error) {
	query := `
		SELECT
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
			submitted_by_id,
			created_at
		FROM ambulance_remarks
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list dispositions: %w", err)
	}
	defer rows.Close()

	var dispositions []*domain.AmbulanceRemark
	for rows.Next() {
		var rem domain.AmbulanceRemark
		var speed sql.NullFloat64
		var lastAssigned, recordTime, triggerTime, expectedStop sql.NullTime
		var district, location, contactNo, selectedRemark, otherRemarks, submittedBy, submittedByID sql.NullString

		if err := rows.Scan(
			&rem.RemarkID,
			&rem.VehicleNo,
			&speed,
			&lastAssigned,
			&recordTime,
			&triggerTime,
			&district,
			&location,
			&contactNo,
			&selectedRemark,
			&otherRemarks,
			&expectedStop,
			&submittedBy,
			&submittedByID,
			&rem.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan disposition: %w", err)
		}

		if speed.Valid {
			rem.Speed = &speed.Float64
		}
		if lastAssigned.Valid {
			rem.LastAssigned = &lastAssigned.Time
		}
		if recordTime.Valid {
			rem.RecordTime = &recordTime.Time
		}
		if triggerTime.Valid {
			rem.TriggerTime = &triggerTime.Time
		}
		if expectedStop.Valid {
			rem.ExpectedStop = &expectedStop.Time
		}
		rem.District = district.String
		rem.Location = location.String
		rem.ContactNo = contactNo.String
		rem.SelectedRemark = selectedRemark.String
		rem.OtherRemarks = otherRemarks.String
		rem.SubmittedBy = submittedBy.String
		rem.SubmittedByID = submittedByID.String

		dispositions = append(dispositions, &rem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dispositions: %w", err)
	}

	return dispositions, nil
}
