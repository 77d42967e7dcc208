package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// State of the poll loop. Polling only happens in StateFree; a held vehicle
// pauses the loop until its disposition is submitted.
type State int

const (
	StateFree State = iota
	StateClaiming
	StateHolding
)

func (s State) String() string {
	switch s {
	case StateFree:
		return "free"
	case StateClaiming:
		return "claiming"
	case StateHolding:
		return "holding"
	default:
		return "unknown"
	}
}

var ErrNotHolding = errors.New("no vehicle is currently held")

// Vehicle mirrors the eligibility response items.
type Vehicle struct {
	VehicleNumber    string    `json:"Vehicle_Number"`
	Speed            float64   `json:"Speed"`
	LastAssignedTime time.Time `json:"last_assigned_time"`
	RecTime          time.Time `json:"Rec_Time"`
	DistrictName     string    `json:"district_name"`
	LocationName     string    `json:"location_name"`
	ContactNumber    string    `json:"contact_number"`
	TriggerTime      time.Time `json:"trigger_time"`
}

// SubmitForm is what the operator fills in before closing out a vehicle.
type SubmitForm struct {
	SelectedRemark string
	OtherRemarks   string
	ExpectedStop   string
}

// Config for one operator's poll session.
type Config struct {
	BaseURL       string
	AgentID       string
	Username      string
	Token         string
	PollInterval  time.Duration
	FailureBanner time.Duration
	Timeout       time.Duration
}

// Callbacks surface state transitions to the UI. All are optional.
type Callbacks struct {
	OnVehicle func(v *Vehicle)
	OnFailure func(message string)
	OnRelease func()
}

// Poller drives the dispatch workflow for one agent session: poll for an
// eligible vehicle, claim it, hold it until the operator submits the
// disposition, then resume polling. One Poller per session; cancel the Run
// context on teardown so no timer leaks.
type Poller struct {
	client *resty.Client
	cfg    Config
	cb     Callbacks
	logger *zap.Logger

	mu          sync.Mutex
	state       State
	vehicle     *Vehicle
	failure     string
	failedUntil time.Time
}

func New(cfg Config, cb Callbacks, logger *zap.Logger) *Poller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.FailureBanner <= 0 {
		cfg.FailureBanner = 4 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}

	return &Poller{
		client: client,
		cfg:    cfg,
		cb:     cb,
		logger: logger,
		state:  StateFree,
	}
}

// Run polls until the context is cancelled. It polls once immediately, then
// on every tick while the session is Free.
func (p *Poller) Run(ctx context.Context) {
	p.poll(ctx)

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// State returns the current loop state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Vehicle returns the held vehicle, if any.
func (p *Poller) Vehicle() *Vehicle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vehicle
}

// FailureBanner returns the transient failure message, or "" once the banner
// delay has elapsed.
func (p *Poller) FailureBanner() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if time.Now().After(p.failedUntil) {
		return ""
	}
	return p.failure
}

type eligibleResponse struct {
	Status  string    `json:"status"`
	Data    []Vehicle `json:"data"`
	Message string    `json:"message"`
}

type ackResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// poll runs one eligibility cycle. The state check doubles as the
// re-entrancy guard: only a Free session issues a request, so there is never
// more than one in flight and a Holding session stays paused.
func (p *Poller) poll(ctx context.Context) {
	p.mu.Lock()
	if p.state != StateFree {
		p.mu.Unlock()
		return
	}
	p.state = StateClaiming
	p.mu.Unlock()

	vehicle, err := p.fetchEligible(ctx)
	if err != nil {
		p.fail(fmt.Sprintf("Failed: %v", err))
		return
	}
	if vehicle == nil {
		p.toFree()
		return
	}

	if err := p.claim(ctx, vehicle.VehicleNumber); err != nil {
		p.fail(fmt.Sprintf("Failed: %v", err))
		return
	}

	p.mu.Lock()
	p.state = StateHolding
	p.vehicle = vehicle
	p.mu.Unlock()

	p.logger.Info("vehicle claimed",
		zap.String("agent_id", p.cfg.AgentID),
		zap.String("vehicle_no", vehicle.VehicleNumber))
	if p.cb.OnVehicle != nil {
		p.cb.OnVehicle(vehicle)
	}
}

func (p *Poller) fetchEligible(ctx context.Context) (*Vehicle, error) {
	var out eligibleResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("userId", p.cfg.AgentID).
		SetResult(&out).
		Get("/eligible")
	if err != nil {
		return nil, err
	}
	if resp.IsError() || out.Status != "success" {
		return nil, fmt.Errorf("eligibility poll rejected: %s", out.Message)
	}
	if len(out.Data) == 0 {
		return nil, nil
	}
	return &out.Data[0], nil
}

func (p *Poller) claim(ctx context.Context, vehicleNo string) error {
	var out ackResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"agentId":   p.cfg.AgentID,
			"vehicleNo": vehicleNo,
		}).
		SetResult(&out).
		Post("/claim")
	if err != nil {
		return err
	}
	if resp.IsError() || out.Status != "success" {
		return fmt.Errorf("claim rejected: %s", out.Message)
	}
	return nil
}

// Submit closes out the held vehicle and returns the session to Free.
func (p *Poller) Submit(ctx context.Context, form SubmitForm) error {
	p.mu.Lock()
	if p.state != StateHolding || p.vehicle == nil {
		p.mu.Unlock()
		return ErrNotHolding
	}
	vehicle := p.vehicle
	p.mu.Unlock()

	payload := map[string]any{
		"vehicleNo":      vehicle.VehicleNumber,
		"speed":          vehicle.Speed,
		"lastAssigned":   vehicle.LastAssignedTime.Format(time.RFC3339),
		"recordTime":     vehicle.RecTime.Format(time.RFC3339),
		"triggerTime":    vehicle.TriggerTime.Format(time.RFC3339),
		"district":       vehicle.DistrictName,
		"location":       vehicle.LocationName,
		"contactNo":      vehicle.ContactNumber,
		"selectedRemark": form.SelectedRemark,
		"otherRemarks":   form.OtherRemarks,
		"expectedStop":   form.ExpectedStop,
		"submittedBy":    p.cfg.Username,
		"submittedById":  p.cfg.AgentID,
	}

	var out ackResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&out).
		Post("/submit")
	if err != nil {
		p.fail(fmt.Sprintf("Failed: %v", err))
		return err
	}
	if resp.IsError() || out.Status != "success" {
		err := fmt.Errorf("submit rejected: %s", out.Message)
		p.fail(fmt.Sprintf("Failed: %v", err))
		return err
	}

	p.mu.Lock()
	p.state = StateFree
	p.vehicle = nil
	p.mu.Unlock()

	p.logger.Info("disposition submitted",
		zap.String("agent_id", p.cfg.AgentID),
		zap.String("vehicle_no", vehicle.VehicleNumber))
	if p.cb.OnRelease != nil {
		p.cb.OnRelease()
	}
	return nil
}

func (p *Poller) toFree() {
	p.mu.Lock()
	p.state = StateFree
	p.mu.Unlock()
}

// fail reverts to Free with a transient banner; the loop keeps running.
func (p *Poller) fail(message string) {
	p.mu.Lock()
	p.state = StateFree
	p.vehicle = nil
	p.failure = message
	p.failedUntil = time.Now().Add(p.cfg.FailureBanner)
	p.mu.Unlock()

	p.logger.Warn("poll cycle failed", zap.String("message", message))
	if p.cb.OnFailure != nil {
		p.cb.OnFailure(message)
	}
}
