package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"emri-dispatch/internal/domain"
	"emri-dispatch/internal/repository"
	"emri-dispatch/internal/service"

	"go.uber.org/zap"
)

// DispatchHandler serves the claim workflow: /eligible, /claim, /submit,
// /remarks and /remarks/export.
type DispatchHandler struct {
	dispatch service.DispatchService
	logger   *zap.Logger
}

func NewDispatchHandler(dispatch service.DispatchService, logger *zap.Logger) *DispatchHandler {
	return &DispatchHandler{dispatch: dispatch, logger: logger}
}

// Eligible answers the poll: zero or one candidate vehicles. An empty result
// is a success, not an error.
func (h *DispatchHandler) Eligible(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("userId")

	vehicle, err := h.dispatch.FindEligibleVehicle(r.Context(), agentID)
	if err != nil {
		if err == service.ErrAgentIDRequired {
			writeJSON(w, http.StatusBadRequest, statusFailed("Missing userId"))
			return
		}
		h.logger.Error("eligibility query failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, statusError(err.Error()))
		return
	}

	data := make([]*domain.EligibleVehicle, 0, 1)
	if vehicle != nil {
		data = append(data, vehicle)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data":   data,
	})
}

// Claim stamps the agent onto the vehicle. Losing the race or naming an
// unknown vehicle is a soft failure; only infrastructure trouble is a 500.
func (h *DispatchHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AgentID   string `json:"agentId"`
		VehicleNo string `json:"vehicleNo"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, statusFailed("Invalid request body"))
		return
	}

	outcome, err := h.dispatch.ClaimVehicle(r.Context(), body.AgentID, body.VehicleNo)
	if err != nil {
		if err == service.ErrClaimArgsRequired {
			writeJSON(w, http.StatusBadRequest, statusFailed("Missing agentId or vehicleNo"))
			return
		}
		h.logger.Error("claim failed",
			zap.String("agent_id", body.AgentID),
			zap.String("vehicle_no", body.VehicleNo),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, statusFailed(err.Error()))
		return
	}

	switch outcome {
	case repository.ClaimAcquired:
		writeJSON(w, http.StatusOK, statusSuccess())
	case repository.ClaimHeldByOther:
		writeJSON(w, http.StatusOK, statusFailed("Vehicle already claimed by another agent"))
	default:
		writeJSON(w, http.StatusOK, statusFailed("No rows updated — invalid vehicleNo?"))
	}
}

// Submit records the disposition remark and releases the claim.
func (h *DispatchHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VehicleNo      string   `json:"vehicleNo"`
		Speed          *float64 `json:"speed"`
		LastAssigned   string   `json:"lastAssigned"`
		RecordTime     string   `json:"recordTime"`
		TriggerTime    string   `json:"triggerTime"`
		District       string   `json:"district"`
		Location       string   `json:"location"`
		ContactNo      string   `json:"contactNo"`
		SelectedRemark string   `json:"selectedRemark"`
		OtherRemarks   string   `json:"otherRemarks"`
		ExpectedStop   string   `json:"expectedStop"`
		SubmittedBy    string   `json:"submittedBy"`
		SubmittedByID  string   `json:"submittedById"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, statusFailed("Invalid request body"))
		return
	}

	err := h.dispatch.SubmitDisposition(r.Context(), service.DispositionRequest{
		VehicleNo:      body.VehicleNo,
		Speed:          body.Speed,
		LastAssigned:   body.LastAssigned,
		RecordTime:     body.RecordTime,
		TriggerTime:    body.TriggerTime,
		District:       body.District,
		Location:       body.Location,
		ContactNo:      body.ContactNo,
		SelectedRemark: body.SelectedRemark,
		OtherRemarks:   body.OtherRemarks,
		ExpectedStop:   body.ExpectedStop,
		SubmittedBy:    body.SubmittedBy,
		SubmittedByID:  body.SubmittedByID,
	})
	if err != nil {
		if err == service.ErrInvalidVehicleNo {
			writeJSON(w, http.StatusBadRequest, statusFailed("Invalid vehicleNo"))
			return
		}
		h.logger.Error("disposition failed",
			zap.String("vehicle_no", body.VehicleNo),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, statusFailed(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, statusSuccess())
}

// Remarks returns the canned remark strings as a bare array.
func (h *DispatchHandler) Remarks(w http.ResponseWriter, r *http.Request) {
	options, err := h.dispatch.ListRemarkOptions(r.Context())
	if err != nil {
		h.logger.Error("remark options query failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"status": "failed", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, options)
}

// ExportRemarks streams the disposition audit as an Excel workbook.
func (h *DispatchHandler) ExportRemarks(w http.ResponseWriter, r *http.Request) {
	dispositions, err := h.dispatch.ListDispositions(r.Context())
	if err != nil {
		h.logger.Error("disposition export query failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"status": "failed", "error": err.Error()})
		return
	}

	workbook, err := GenerateRemarksExport(dispositions)
	if err != nil {
		h.logger.Error("disposition export build failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"status": "failed", "error": err.Error()})
		return
	}

	filename := fmt.Sprintf("ambulance-remarks-%s.xlsx", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = bytes.NewReader(workbook).WriteTo(w)
}
