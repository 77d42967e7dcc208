package domain

import "time"

// ClaimAgentNone is the sentinel the legacy data uses for "no claim" besides
// NULL and the empty string. All three forms mean the vehicle is unclaimed.
const ClaimAgentNone = "-"

// VehicleStatus is the shared mutable row of the claim workflow. A vehicle is
// claimable iff StatusID is active, ClaimingAgent is empty (NULL/""/"-") or
// equal to the requesting agent, and ExpectedStop is unset or in the past.
type VehicleStatus struct {
	VehicleNumber     string     `json:"vehicle_number"`
	StatusID          string     `json:"status_id"`
	ClaimingAgent     string     `json:"claiming_agent"`
	LastAssignedTime  time.Time  `json:"last_assigned_time"`
	ExpectedStop      *time.Time `json:"expected_stop"`
	TriggerHandleTime *time.Time `json:"trigger_handle_time"`
}

// VehicleTelemetry is the externally fed live position/speed feed. Eligibility
// only trusts rows recorded within the last hour.
type VehicleTelemetry struct {
	VehicleNumber string    `json:"vehicleNo"`
	Speed         float64   `json:"speed"`
	RecTime       time.Time `json:"recTime"`
}

// EligibleVehicle is the joined candidate row offered to an operator. JSON
// field names match what the dashboard front-end already consumes.
type EligibleVehicle struct {
	VehicleNumber    string    `json:"Vehicle_Number"`
	Speed            float64   `json:"Speed"`
	LastAssignedTime time.Time `json:"last_assigned_time"`
	RecTime          time.Time `json:"Rec_Time"`
	DistrictName     string    `json:"district_name"`
	LocationName     string    `json:"location_name"`
	ContactNumber    string    `json:"contact_number"`
	TriggerTime      time.Time `json:"trigger_time"`
}
