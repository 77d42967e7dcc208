package repository

import (
	"context"

	"emri-dispatch/internal/domain"
)

// ClaimOutcome is the tri-state result of a claim attempt. The claim is a
// single conditional UPDATE, so concurrent claimers for the same vehicle
// resolve at the database: exactly one gets ClaimAcquired.
type ClaimOutcome int

const (
	ClaimAcquired ClaimOutcome = iota
	ClaimHeldByOther
	ClaimVehicleNotFound
)

func (o ClaimOutcome) String() string {
	switch o {
	case ClaimAcquired:
		return "acquired"
	case ClaimHeldByOther:
		return "held-by-other"
	case ClaimVehicleNotFound:
		return "not-found"
	default:
		return "unknown"
	}
}

// VehiclesRepository covers the claim workflow's reads and writes on
// vehicle_status and its joined reference/telemetry tables.
type VehiclesRepository interface {
	// FindEligibleVehicle returns at most one candidate for the agent, or
	// (nil, nil) when nothing qualifies.
	FindEligibleVehicle(ctx context.Context, agentID string) (*domain.EligibleVehicle, error)

	// ClaimVehicle stamps the agent onto the vehicle row iff it is unclaimed
	// or already held by the same agent.
	ClaimVehicle(ctx context.Context, agentID, vehicleNo string) (ClaimOutcome, error)

	// SubmitDisposition appends the remark and clears the claim in one
	// transaction; either both writes land or neither does.
	SubmitDisposition(ctx context.Context, remark *domain.AmbulanceRemark) error

	// UpsertTelemetry refreshes the live speed/position row for a vehicle.
	UpsertTelemetry(ctx context.Context, t *domain.VehicleTelemetry) error
}

// RemarksRepository reads the canned remark options and the disposition audit.
type RemarksRepository interface {
	ListRemarkOptions(ctx context.Context) ([]string, error)
	ListDispositions(ctx context.Context) ([]*domain.AmbulanceRemark, error)
}

// UsersRepository looks up operator accounts for login.
type UsersRepository interface {
	FindByUserID(ctx context.Context, userID string) (*domain.User, error)
}
