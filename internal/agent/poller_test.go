package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type dispatchStub struct {
	eligibleCalls atomic.Int64
	claimCalls    atomic.Int64
	submitCalls   atomic.Int64
	eligibleBody  string
	claimBody     string
	submitBody    string
	failEligible  bool
	lastSubmit    map[string]any
}

func newDispatchStub() *dispatchStub {
	return &dispatchStub{
		eligibleBody: `{"status":"success","data":[{"Vehicle_Number":"RJ14PD7019","Speed":25.5,"district_name":"Jaipur","location_name":"SMS Hospital","contact_number":"9999999999"}]}`,
		claimBody:    `{"status":"success","message":"Vehicle claimed successfully"}`,
		submitBody:   `{"status":"success","message":"Disposition recorded"}`,
	}
}

func (s *dispatchStub) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/eligible", func(w http.ResponseWriter, r *http.Request) {
		s.eligibleCalls.Add(1)
		if s.failEligible {
			http.Error(w, `{"status":"error","message":"database unavailable"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(s.eligibleBody))
	})
	mux.HandleFunc("/claim", func(w http.ResponseWriter, r *http.Request) {
		s.claimCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(s.claimBody))
	})
	mux.HandleFunc("/submit", func(w http.ResponseWriter, r *http.Request) {
		s.submitCalls.Add(1)
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		s.lastSubmit = body
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(s.submitBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestPoller(baseURL string, cb Callbacks) *Poller {
	return New(Config{
		BaseURL:       baseURL,
		AgentID:       "agent-1",
		Username:      "sapan",
		PollInterval:  10 * time.Millisecond,
		FailureBanner: 50 * time.Millisecond,
	}, cb, zap.NewNop())
}

func TestPoll_ClaimsEligibleVehicle(t *testing.T) {
	stub := newDispatchStub()
	srv := stub.server(t)

	var claimed *Vehicle
	p := newTestPoller(srv.URL, Callbacks{OnVehicle: func(v *Vehicle) { claimed = v }})

	p.poll(context.Background())

	assert.Equal(t, StateHolding, p.State())
	require.NotNil(t, claimed)
	assert.Equal(t, "RJ14PD7019", claimed.VehicleNumber)
	assert.Equal(t, 25.5, claimed.Speed)
	assert.Equal(t, int64(1), stub.claimCalls.Load())
}

func TestPoll_NoEligibleVehicleStaysFree(t *testing.T) {
	stub := newDispatchStub()
	stub.eligibleBody = `{"status":"success","data":[]}`
	srv := stub.server(t)

	p := newTestPoller(srv.URL, Callbacks{})
	p.poll(context.Background())

	assert.Equal(t, StateFree, p.State())
	assert.Nil(t, p.Vehicle())
	assert.Equal(t, int64(0), stub.claimCalls.Load())
}

func TestPoll_PausesWhileHolding(t *testing.T) {
	stub := newDispatchStub()
	srv := stub.server(t)

	p := newTestPoller(srv.URL, Callbacks{})
	p.poll(context.Background())
	require.Equal(t, StateHolding, p.State())

	before := stub.eligibleCalls.Load()
	p.poll(context.Background())
	p.poll(context.Background())

	assert.Equal(t, before, stub.eligibleCalls.Load())
	assert.Equal(t, StateHolding, p.State())
}

func TestPoll_ServerFailureRevertsToFreeWithBanner(t *testing.T) {
	stub := newDispatchStub()
	stub.failEligible = true
	srv := stub.server(t)

	var failure string
	p := newTestPoller(srv.URL, Callbacks{OnFailure: func(msg string) { failure = msg }})

	p.poll(context.Background())

	assert.Equal(t, StateFree, p.State())
	assert.NotEmpty(t, failure)
	assert.NotEmpty(t, p.FailureBanner())

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, p.FailureBanner())
}

func TestPoll_ClaimRejectionRevertsToFree(t *testing.T) {
	stub := newDispatchStub()
	stub.claimBody = `{"status":"failed","message":"Vehicle already claimed by another agent"}`
	srv := stub.server(t)

	p := newTestPoller(srv.URL, Callbacks{})
	p.poll(context.Background())

	assert.Equal(t, StateFree, p.State())
	assert.Nil(t, p.Vehicle())
	assert.Contains(t, p.FailureBanner(), "already claimed")
}

func TestSubmit_ReleasesVehicleAndResumes(t *testing.T) {
	stub := newDispatchStub()
	srv := stub.server(t)

	released := false
	p := newTestPoller(srv.URL, Callbacks{OnRelease: func() { released = true }})
	p.poll(context.Background())
	require.Equal(t, StateHolding, p.State())

	err := p.Submit(context.Background(), SubmitForm{
		SelectedRemark: "No patient found",
		ExpectedStop:   "2026-08-28 11:00:00",
	})

	require.NoError(t, err)
	assert.Equal(t, StateFree, p.State())
	assert.Nil(t, p.Vehicle())
	assert.True(t, released)

	require.NotNil(t, stub.lastSubmit)
	assert.Equal(t, "RJ14PD7019", stub.lastSubmit["vehicleNo"])
	assert.Equal(t, "No patient found", stub.lastSubmit["selectedRemark"])
	assert.Equal(t, "sapan", stub.lastSubmit["submittedBy"])
	assert.Equal(t, "agent-1", stub.lastSubmit["submittedById"])

	p.poll(context.Background())
	assert.Equal(t, StateHolding, p.State())
}

func TestSubmit_WithoutHeldVehicle(t *testing.T) {
	stub := newDispatchStub()
	srv := stub.server(t)

	p := newTestPoller(srv.URL, Callbacks{})

	err := p.Submit(context.Background(), SubmitForm{SelectedRemark: "No patient found"})

	assert.ErrorIs(t, err, ErrNotHolding)
	assert.Equal(t, int64(0), stub.submitCalls.Load())
}

func TestSubmit_RejectionKeepsHoldReleasedButReportsError(t *testing.T) {
	stub := newDispatchStub()
	srv := stub.server(t)

	p := newTestPoller(srv.URL, Callbacks{})
	p.poll(context.Background())
	require.Equal(t, StateHolding, p.State())

	stub.submitBody = `{"status":"error","message":"Database error"}`
	err := p.Submit(context.Background(), SubmitForm{SelectedRemark: "Wrong number"})

	assert.Error(t, err)
	assert.Equal(t, StateFree, p.State())
	assert.NotEmpty(t, p.FailureBanner())
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	stub := newDispatchStub()
	stub.eligibleBody = `{"status":"success","data":[]}`
	srv := stub.server(t)

	p := newTestPoller(srv.URL, Callbacks{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return stub.eligibleCalls.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancellation")
	}
}
