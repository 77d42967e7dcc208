package domain

import "time"

// AmbulanceRemark is the append-only disposition record. Rows are created once
// when an operator closes out a claimed vehicle and are never updated.
type AmbulanceRemark struct {
	RemarkID       string     `json:"remark_id"`
	VehicleNo      string     `json:"vehicleNo"`
	Speed          *float64   `json:"speed"`
	LastAssigned   *time.Time `json:"lastAssigned"`
	RecordTime     *time.Time `json:"recordTime"`
	TriggerTime    *time.Time `json:"triggerTime"`
	District       string     `json:"district"`
	Location       string     `json:"location"`
	ContactNo      string     `json:"contactNo"`
	SelectedRemark string     `json:"selectedRemark"`
	OtherRemarks   string     `json:"otherRemarks"`
	ExpectedStop   *time.Time `json:"expectedStop"`
	SubmittedBy    string     `json:"submittedBy"`
	SubmittedByID  string     `json:"submittedById"`
	CreatedAt      time.Time  `json:"createdAt"`
}
