// Package workspace owns the per-tab working set of a consultation. Each
// open chart gets its own Workspace holding freshly constructed store
// instances, so two patients open side by side can never share or leak
// state through module singletons.
package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/domain/caserecord"
	"github.com/clinicdesk/clinicdesk/internal/domain/fees"
	"github.com/clinicdesk/clinicdesk/internal/domain/orders"
	"github.com/clinicdesk/clinicdesk/internal/domain/prescription"
	"github.com/clinicdesk/clinicdesk/internal/domain/results"
	"github.com/clinicdesk/clinicdesk/internal/domain/visit"
	"github.com/clinicdesk/clinicdesk/internal/platform/draft"
	"github.com/clinicdesk/clinicdesk/internal/platform/telemetry"
)

// Deps carries everything a workspace needs to build its stores. Tests
// swap the gateways for fakes.
type Deps struct {
	VisitGW        visit.Gateway
	RecordGW       caserecord.Gateway
	OrdersGW       orders.Gateway
	PrescriptionGW prescription.Gateway
	ResultsGW      results.Gateway
	FeesGW         fees.Gateway

	Drafts   draft.Store
	Debounce time.Duration
	Logger   zerolog.Logger
	Metrics  *telemetry.Metrics
}

// Workspace is one open consultation tab: the visit context plus one
// instance of every clinical store, bound to a single registration.
type Workspace struct {
	ID            string
	Visit         *visit.Context
	Record        *caserecord.Editor
	Orders        *orders.Store
	Prescriptions *prescription.Store
	Results       *results.Store
	Fees          *fees.Store

	createdAt time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

func newWorkspace(id string, deps Deps) *Workspace {
	log := deps.Logger.With().Str("workspace_id", id).Logger()
	vc := visit.NewContext(deps.VisitGW, log)
	now := time.Now()
	return &Workspace{
		ID:            id,
		Visit:         vc,
		Record:        caserecord.NewEditor(deps.RecordGW, vc, deps.Drafts, deps.Debounce, log, deps.Metrics),
		Orders:        orders.NewStore(deps.OrdersGW, vc, deps.Drafts, deps.Debounce, log, deps.Metrics),
		Prescriptions: prescription.NewStore(deps.PrescriptionGW, vc, deps.Drafts, deps.Debounce, log, deps.Metrics),
		Results:       results.NewStore(deps.ResultsGW, log),
		Fees:          fees.NewStore(deps.FeesGW, log),
		createdAt:     now,
		lastSeen:      now,
	}
}

// open binds the workspace to a registration: it loads the visit context,
// activates draft shadowing, and, when a case already exists, pulls the
// stored note so a stale draft cannot overwrite it.
func (w *Workspace) open(ctx context.Context, registrationID int64, log zerolog.Logger) error {
	if err := w.Visit.InitContext(ctx, registrationID); err != nil {
		return err
	}

	if caseID, ok := w.Visit.CaseID(); ok {
		if err := w.Record.LoadCaseData(ctx, caseID); err != nil {
			log.Warn().Err(err).Int64("case_id", caseID).Msg("stored note unavailable at open")
		}
	}

	w.Record.InitAutoSave(registrationID)
	w.Orders.InitAutoSave(registrationID)
	w.Prescriptions.InitAutoSave(registrationID)
	return nil
}

// teardown resets every store. Stored drafts survive; only the live
// in-memory state and the draft watchers go away.
func (w *Workspace) teardown() {
	w.Record.ResetForms()
	w.Orders.ResetState()
	w.Prescriptions.ResetState()
	w.Results.Reset()
	w.Fees.Reset()
	w.Visit.Clear()
}

func (w *Workspace) touch() {
	w.mu.Lock()
	w.lastSeen = time.Now()
	w.mu.Unlock()
}

func (w *Workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}
