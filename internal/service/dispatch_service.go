package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"emri-dispatch/internal/domain"
	"emri-dispatch/internal/repository"

	"go.uber.org/zap"
)

// Validation errors, rejected before any database access.
var (
	ErrAgentIDRequired   = errors.New("missing userId")
	ErrClaimArgsRequired = errors.New("missing agentId or vehicleNo")
	ErrInvalidVehicleNo  = errors.New("invalid vehicleNo")
)

// DispositionRequest carries the submit form as received on the wire. Date
// fields stay strings here; the service parses them permissively and logs
// anything unparsable instead of failing the request.
type DispositionRequest struct {
	VehicleNo      string
	Speed          *float64
	LastAssigned   string
	RecordTime     string
	TriggerTime    string
	District       string
	Location       string
	ContactNo      string
	SelectedRemark string
	OtherRemarks   string
	ExpectedStop   string
	SubmittedBy    string
	SubmittedByID  string
}

// DispatchService is the vehicle-claim assignment workflow: eligibility poll,
// claim, disposition submit, plus the remark reads backing the form and the
// supervisor export.
type DispatchService interface {
	FindEligibleVehicle(ctx context.Context, agentID string) (*domain.EligibleVehicle, error)
	ClaimVehicle(ctx context.Context, agentID, vehicleNo string) (repository.ClaimOutcome, error)
	SubmitDisposition(ctx context.Context, req DispositionRequest) error
	ListRemarkOptions(ctx context.Context) ([]string, error)
	ListDispositions(ctx context.Context) ([]*domain.AmbulanceRemark, error)
}

type dispatchService struct {
	vehicles repository.VehiclesRepository
	remarks  repository.RemarksRepository
	logger   *zap.Logger
}

func NewDispatchService(vehicles repository.VehiclesRepository, remarks repository.RemarksRepository, logger *zap.Logger) DispatchService {
	return &dispatchService{
		vehicles: vehicles,
		remarks:  remarks,
		logger:   logger,
	}
}

func (s *dispatchService) FindEligibleVehicle(ctx context.Context, agentID string) (*domain.EligibleVehicle, error) {
	if agentID == "" || agentID == domain.ClaimAgentNone {
		return nil, ErrAgentIDRequired
	}

	v, err := s.vehicles.FindEligibleVehicle(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("eligibility query failed: %w", err)
	}
	return v, nil
}

func (s *dispatchService) ClaimVehicle(ctx context.Context, agentID, vehicleNo string) (repository.ClaimOutcome, error) {
	if agentID == "" || vehicleNo == "" {
		return repository.ClaimVehicleNotFound, ErrClaimArgsRequired
	}

	outcome, err := s.vehicles.ClaimVehicle(ctx, agentID, vehicleNo)
	if err != nil {
		return outcome, fmt.Errorf("claim failed: %w", err)
	}

	if outcome != repository.ClaimAcquired {
		s.logger.Info("claim not acquired",
			zap.String("agent_id", agentID),
			zap.String("vehicle_no", vehicleNo),
			zap.String("outcome", outcome.String()))
	}
	return outcome, nil
}

func (s *dispatchService) SubmitDisposition(ctx context.Context, req DispositionRequest) error {
	if req.VehicleNo == "" || req.VehicleNo == domain.ClaimAgentNone {
		return ErrInvalidVehicleNo
	}

	remark := &domain.AmbulanceRemark{
		VehicleNo:      req.VehicleNo,
		Speed:          req.Speed,
		LastAssigned:   s.parseTimestamp("lastAssigned", req.LastAssigned),
		RecordTime:     s.parseTimestamp("recordTime", req.RecordTime),
		TriggerTime:    s.parseTimestamp("triggerTime", req.TriggerTime),
		District:       req.District,
		Location:       req.Location,
		ContactNo:      req.ContactNo,
		SelectedRemark: req.SelectedRemark,
		OtherRemarks:   req.OtherRemarks,
		ExpectedStop:   s.parseTimestamp("expectedStop", req.ExpectedStop),
		SubmittedBy:    req.SubmittedBy,
		SubmittedByID:  req.SubmittedByID,
	}

	if err := s.vehicles.SubmitDisposition(ctx, remark); err != nil {
		return fmt.Errorf("disposition failed: %w", err)
	}

	s.logger.Info("disposition submitted",
		zap.String("vehicle_no", remark.VehicleNo),
		zap.String("submitted_by_id", remark.SubmittedByID),
		zap.String("remark", remark.SelectedRemark))
	return nil
}

// parseTimestamp wraps ParseOptionalTimestamp with the warning the redesign
// requires: a non-empty unparsable value becomes NULL, but never silently.
func (s *dispatchService) parseTimestamp(field, value string) *time.Time {
	ts, ok := ParseOptionalTimestamp(value)
	if !ok {
		s.logger.Warn("unparsable timestamp stored as null",
			zap.String("field", field),
			zap.String("value", value))
	}
	return ts
}

func (s *dispatchService) ListRemarkOptions(ctx context.Context) ([]string, error) {
	return s.remarks.ListRemarkOptions(ctx)
}

func (s *dispatchService) ListDispositions(ctx context.Context) ([]*domain.AmbulanceRemark, error) {
	return s.remarks.ListDispositions(ctx)
}
