// Package visit owns the authoritative answer to "what visit is this
// workspace about, and what stage is it at". Every other workstation store
// consults it before acting and reports confirmed server transitions back
// to it.
package visit

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Context is the per-workspace visit state. Status only changes through
// InitContext/Refresh (server truth), UpdateStatus (mirror of a transition
// the caller just confirmed with the server), or the SetCaseID auto-advance.
type Context struct {
	gw  Gateway
	log zerolog.Logger

	mu             sync.Mutex
	generation     uint64
	registrationID int64
	caseID         int64
	status         Status
	patient        PatientSummary
	loading        bool
}

func NewContext(gw Gateway, log zerolog.Logger) *Context {
	return &Context{
		gw:  gw,
		log: log.With().Str("component", "visit-context").Logger(),
	}
}

// InitContext loads the visit context for registrationID and atomically
// replaces the held state. A zero id is a no-op. On failure the prior state
// stays untouched and the error is returned for the caller to surface; the
// workstation must not proceed without a context.
func (c *Context) InitContext(ctx context.Context, registrationID int64) error {
	if registrationID == 0 {
		return nil
	}

	c.mu.Lock()
	gen := c.generation
	c.loading = true
	c.mu.Unlock()

	data, err := c.gw.FetchContext(ctx, registrationID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false

	if err != nil {
		c.log.Error().Err(err).Int64("registration_id", registrationID).Msg("fetch visit context failed")
		return fmt.Errorf("init visit context: %w", err)
	}
	if c.generation != gen {
		// Torn down (or re-pointed) while the fetch was in flight; a late
		// response must not resurrect stale state.
		return nil
	}

	c.registrationID = data.RegistrationID
	if data.CaseID != nil {
		c.caseID = *data.CaseID
	} else {
		c.caseID = 0
	}
	c.status = Status(data.VisitStatus)
	c.patient = PatientSummary{
		Name:      data.PatientName,
		Gender:    data.PatientGender,
		Age:       data.PatientAge,
		MedicalNo: data.MedicalNo,
	}

	if !c.status.Known() {
		c.log.Warn().Str("status", string(c.status)).Msg("unrecognized visit status from HIS")
	}
	return nil
}

// SetCaseID records that a clinical case now exists for this visit. When the
// visit is still awaiting its first consultation, creating the chart is the
// first consultation, so the status advances one step locally without
// waiting for a server push. The next Refresh resynchronizes.
func (c *Context) SetCaseID(caseID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.caseID = caseID
	if c.status == StatusWaitingForConsultation {
		c.status = StatusInitialConsultationDone
	}
}

// UpdateStatus overwrites the held status. Only call it with a transition
// the server has just confirmed; it saves the round-trip refetch.
func (c *Context) UpdateStatus(status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
}

// Refresh re-fetches the context for the currently held visit. No-op when
// no visit is held.
func (c *Context) Refresh(ctx context.Context) error {
	c.mu.Lock()
	registrationID := c.registrationID
	c.mu.Unlock()
	if registrationID == 0 {
		return nil
	}
	return c.InitContext(ctx, registrationID)
}

// Clear resets the context for workspace teardown. An in-flight fetch
// started before Clear will see the generation bump and discard its result.
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.registrationID = 0
	c.caseID = 0
	c.status = ""
	c.patient = PatientSummary{}
	c.loading = false
}

// RegistrationID returns the held visit id; ok is false before InitContext.
func (c *Context) RegistrationID() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registrationID, c.registrationID != 0
}

// CaseID returns the held case id; ok is false while the visit is uncharted.
func (c *Context) CaseID() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.caseID, c.caseID != 0
}

// Status returns the current visit status.
func (c *Context) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Patient returns the banner summary for the active visit.
func (c *Context) Patient() PatientSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.patient
}

// Snapshot builds the full session view served to the workstation.
func (c *Context) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Session{
		Status:        c.status,
		Display:       c.status.Display(),
		Patient:       c.patient,
		Gates:         GatesFor(c.status, c.caseID != 0),
		CanOrderTests: c.status.CanOrderTests(),
		ChartEditable: c.status.IsChartEditable(),
		CanPrescribe:  c.status.CanPrescribe(),
		Loading:       c.loading,
	}
	if c.registrationID != 0 {
		id := c.registrationID
		s.RegistrationID = &id
	}
	if c.caseID != 0 {
		id := c.caseID
		s.CaseID = &id
	}
	return s
}
