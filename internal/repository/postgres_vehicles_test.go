package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emri-dispatch/internal/domain"
)

func setupMockVehiclesDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresVehiclesRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewPostgresVehiclesRepository(db)
	return db, mock, repo
}

func eligibleColumns() []string {
	return []string{
		"vehicle_number", "speed", "last_assigned_time", "rec_time",
		"district_name", "location_name", "contact_number",
	}
}

// ============================================
// FindEligibleVehicle
// ============================================

func TestFindEligibleVehicle_Success(t *testing.T) {
	db, mock, repo := setupMockVehiclesDB(t)
	defer db.Close()

	lastAssigned := time.Now().Add(-30 * time.Minute)
	recTime := time.Now().Add(-2 * time.Minute)

	rows := sqlmock.NewRows(eligibleColumns()).AddRow(
		"RJ14PD7019", 25.0, lastAssigned, recTime,
		"Jaipur", "SMS Hospital", "9990001111",
	)

	mock.ExpectQuery(`SELECT`).
		WithArgs("agent-1", MotionThreshold).
		WillReturnRows(rows)

	v, err := repo.FindEligibleVehicle(context.Background(), "agent-1")

	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "RJ14PD7019", v.VehicleNumber)
	assert.Equal(t, 25.0, v.Speed)
	assert.Equal(t, "Jaipur", v.DistrictName)
	assert.Equal(t, "SMS Hospital", v.LocationName)
	assert.Equal(t, "9990001111", v.ContactNumber)
	// trigger time mirrors last assignment
	assert.Equal(t, lastAssigned, v.TriggerTime)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindEligibleVehicle_NoMatchIsNotAnError(t *testing.T) {
	db, mock, repo := setupMockVehiclesDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WithArgs("agent-1", MotionThreshold).
		WillReturnError(sql.ErrNoRows)

	v, err := repo.FindEligibleVehicle(context.Background(), "agent-1")

	require.NoError(t, err)
	assert.Nil(t, v)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindEligibleVehicle_MissingAgentRejectedBeforeQuery(t *testing.T) {
	db, mock, repo := setupMockVehiclesDB(t)
	defer db.Close()

	v, err := repo.FindEligibleVehicle(context.Background(), "")

	assert.Error(t, err)
	assert.Nil(t, v)
	// no query was issued
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindEligibleVehicle_QueryCarriesEveryPredicate(t *testing.T) {
	db, mock, repo := setupMockVehiclesDB(t)
	defer db.Close()

	// Each trigger predicate must appear in the statement: active status,
	// active vehicle, type set, speed floor, claim state, cool-down,
	// telemetry freshness.
	mock.ExpectQuery(`status_id = '1'[\s\S]*is_active = '1'[\s\S]*vehicle_type_id IN \('108', '420'\)[\s\S]*speed > \$2[\s\S]*claiming_agent IS NULL[\s\S]*claiming_agent = \$1[\s\S]*expected_stop IS NULL OR vs\.expected_stop < NOW\(\)[\s\S]*rec_time >= NOW\(\) - INTERVAL '1 hour'[\s\S]*ORDER BY vs\.vehicle_number[\s\S]*LIMIT 1`).
		WithArgs("agent-1", MotionThreshold).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindEligibleVehicle(context.Background(), "agent-1")

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindEligibleVehicle_DBFailureSurfaced(t *testing.T) {
	db, mock, repo := setupMockVehiclesDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WithArgs("agent-1", MotionThreshold).
		WillReturnError(errors.New("connection refused"))

	v, err := repo.FindEligibleVehicle(context.Background(), "agent-1")

	assert.Error(t, err)
	assert.Nil(t, v)
	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// ClaimVehicle
// ============================================

func TestClaimVehicle_Acquired(t *testing.T) {
	db, mock, repo := setupMockVehiclesDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE vehicle_status`).
		WithArgs("agent-1", "RJ14PD7019").
		WillReturnResult(sqlmock.NewResult(0, 1))

	outcome, err := repo.ClaimVehicle(context.Background(), "agent-1", "RJ14PD7019")

	require.NoError(t, err)
	assert.Equal(t, ClaimAcquired, outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimVehicle_ConditionalUpdateGuardsClaimColumn(t *testing.T) {
	db, mock, repo := setupMockVehiclesDB(t)
	defer db.Close()

	// The UPDATE must carry the compare-and-swap predicate; an unconditional
	// write would let two agents both believe they hold the vehicle.
	mock.ExpectExec(`UPDATE vehicle_status[\s\S]*claiming_agent IS NULL OR claiming_agent = '' OR claiming_agent = '-' OR claiming_agent = \$1`).
		WithArgs("agent-1", "RJ14PD7019").
		WillReturnResult(sqlmock.NewResult(0, 1))

	outcome, err := repo.ClaimVehicle(context.Background(), "agent-1", "RJ14PD7019")

	require.NoError(t, err)
	assert.Equal(t, ClaimAcquired, outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimVehicle_LostRaceReportsHolder(t *testing.T) {
	db, mock, repo := setupMockVehiclesDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE vehicle_status`).
		WithArgs("agent-2", "RJ14PD7019").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT claiming_agent`).
		WithArgs("RJ14PD7019").
		WillReturnRows(sqlmock.NewRows([]string{"claiming_agent"}).AddRow("agent-1"))

	outcome, err := repo.ClaimVehicle(context.Background(), "agent-2", "RJ14PD7019")

	require.NoError(t, err)
	assert.Equal(t, ClaimHeldByOther, outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimVehicle_UnknownVehicle(t *testing.T) {
	db, mock, repo := setupMockVehiclesDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE vehicle_status`).
		WithArgs("agent-1", "NOPE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT claiming_agent`).
		WithArgs("NOPE").
		WillReturnError(sql.ErrNoRows)

	outcome, err := repo.ClaimVehicle(context.Background(), "agent-1", "NOPE")

	require.NoError(t, err)
	assert.Equal(t, ClaimVehicleNotFound, outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimVehicle_EmptyArgsRejected(t *testing.T) {
	db, mock, repo := setupMockVehiclesDB(t)
	defer db.Close()

	_, err := repo.ClaimVehicle(context.Background(), "", "RJ14PD7019")
	assert.Error(t, err)

	_, err = repo.ClaimVehicle(context.Background(), "agent-1", "")
	assert.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// SubmitDisposition
// ============================================

func TestSubmitDisposition_CommitsInsertAndRelease(t *testing.T) {
	db, mock, repo := setupMockVehiclesDB(t)
	defer db.Close()

	speed := 25.0
	expectedStop := time.Now().Add(time.Hour)
	remark := &domain.AmbulanceRemark{
		VehicleNo:      "RJ14PD7019",
		Speed:          &speed,
		SelectedRemark: "No patient found",
		ExpectedStop:   &expectedStop,
		SubmittedBy:    "sapan",
		SubmittedByID:  "agent-1",
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO ambulance_remarks`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE vehicle_status[\s\S]*claiming_agent = NULL[\s\S]*trigger_handle_time = NOW\(\)`).
		WithArgs(expectedStop, "RJ14PD7019").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SubmitDisposition(context.Background(), remark)

	require.NoError(t, err)
	assert.NotEmpty(t, remark.RemarkID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitDisposition_RollsBackWhenInsertFails(t *testing.T) {
	db, mock, repo := setupMockVehiclesDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO ambulance_remarks`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.SubmitDisposition(context.Background(), &domain.AmbulanceRemark{VehicleNo: "RJ14PD7019"})

	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitDisposition_RollsBackWhenVehicleMissing(t *testing.T) {
	db, mock, repo := setupMockVehiclesDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO ambulance_remarks`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE vehicle_status`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SubmitDisposition(context.Background(), &domain.AmbulanceRemark{VehicleNo: "GHOST"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitDisposition_SentinelVehicleRejectedWithoutWrites(t *testing.T) {
	db, mock, repo := setupMockVehiclesDB(t)
	defer db.Close()

	err := repo.SubmitDisposition(context.Background(), &domain.AmbulanceRemark{VehicleNo: "-"})
	assert.Error(t, err)

	err = repo.SubmitDisposition(context.Background(), &domain.AmbulanceRemark{VehicleNo: ""})
	assert.Error(t, err)

	// no Begin/Exec expected
	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// UpsertTelemetry
// ============================================

func TestUpsertTelemetry(t *testing.T) {
	db, mock, repo := setupMockVehiclesDB(t)
	defer db.Close()

	recTime := time.Now()
	mock.ExpectExec(`INSERT INTO vehicle_telemetry[\s\S]*ON CONFLICT \(vehicle_number\)`).
		WithArgs("RJ14PD7019", 32.5, recTime).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertTelemetry(context.Background(), &domain.VehicleTelemetry{
		VehicleNumber: "RJ14PD7019",
		Speed:         32.5,
		RecTime:       recTime,
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
