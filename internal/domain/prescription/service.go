package prescription

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/domain/cart"
	"github.com/clinicdesk/clinicdesk/internal/domain/catalog"
	"github.com/clinicdesk/clinicdesk/internal/domain/visit"
	"github.com/clinicdesk/clinicdesk/internal/platform/draft"
	"github.com/clinicdesk/clinicdesk/internal/platform/telemetry"
	"github.com/clinicdesk/clinicdesk/pkg/precond"
)

// Store holds the drug cart and issued-prescription history for one
// workspace. Like the order cart, unsubmitted rows are shadowed to a
// per-visit draft.
type Store struct {
	gw      Gateway
	visit   *visit.Context
	cart    *cart.Cart[CartLine]
	saver   *draft.Autosaver
	log     zerolog.Logger
	metrics *telemetry.Metrics

	mu         sync.Mutex
	history    []HistoryEntry
	loading    bool
	submitting bool
}

func NewStore(gw Gateway, vc *visit.Context, store draft.Store, debounce time.Duration, log zerolog.Logger, metrics *telemetry.Metrics) *Store {
	s := &Store{
		gw:      gw,
		visit:   vc,
		log:     log.With().Str("component", "prescription").Logger(),
		metrics: metrics,
	}
	s.cart = cart.New[CartLine](func() { s.saver.MarkDirty() })
	s.saver = draft.NewAutosaver(store, debounce, s.cart.Snapshot, log, metrics)
	return s
}

func draftKey(registrationID int64) string {
	return fmt.Sprintf("prescription_cart_draft_%d", registrationID)
}

// InitAutoSave points the saver at the visit's draft key and restores a
// saved cart if nothing has been placed this session.
func (s *Store) InitAutoSave(registrationID int64) {
	payload, ok := s.saver.Activate(draftKey(registrationID))
	if !ok {
		return
	}
	if err := s.cart.Restore(payload); err != nil {
		s.log.Warn().Err(err).Int64("registration_id", registrationID).Msg("prescription draft unreadable")
	}
}

// BatchAdd places formulary entries in the cart with quantity 1 and a
// blank dosage, skipping drugs already present, and reports both counts.
func (s *Store) BatchAdd(drugs []catalog.DrugInfo) (added, skipped int) {
	lines := make([]CartLine, 0, len(drugs))
	for _, drug := range drugs {
		d := drug
		lines = append(lines, CartLine{
			TempID:   uuid.NewString(),
			DrugID:   drug.DrugID,
			Quantity: 1,
			Drug:     &d,
		})
	}
	return s.cart.BatchAdd(lines)
}

// EditLine updates dosage, quantity and remark of the row at index i.
func (s *Store) EditLine(i int, edit LineEdit) error {
	lines := s.cart.Items()
	if i < 0 || i >= len(lines) {
		return precond.Failf("no prescription row at position %d", i)
	}
	line := lines[i]
	line.Dosage = edit.Dosage
	line.Quantity = edit.Quantity
	line.Remark = edit.Remark
	return s.cart.Update(i, line)
}

// RemoveAt drops the row at index i from the cart.
func (s *Store) RemoveAt(i int) error {
	return s.cart.RemoveAt(i)
}

// Submit issues every cart row as one prescription batch. Each row needs
// a dosage and a positive quantity within the cached stock; the first bad
// row aborts the whole batch. On success the cart and its draft are
// cleared and the history is refreshed.
func (s *Store) Submit(ctx context.Context) error {
	lines := s.cart.Items()
	if len(lines) == 0 {
		return precond.Failf("the prescription list is empty")
	}
	for _, line := range lines {
		if line.Dosage == "" {
			return precond.Failf("%s needs a dosage", line.drugName())
		}
		if line.Quantity <= 0 {
			return precond.Failf("%s needs a positive quantity", line.drugName())
		}
		if stock := line.stock(); line.Quantity > stock {
			return precond.Failf("%s has only %d in stock", line.drugName(), stock)
		}
	}

	regID, ok := s.visit.RegistrationID()
	if !ok {
		return precond.Failf("no active visit to prescribe against")
	}
	caseID, ok := s.visit.CaseID()
	if !ok {
		return precond.Failf("no case on file, submit the initial consultation first")
	}

	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return precond.Failf("a submission is already in progress")
	}
	s.submitting = true
	s.mu.Unlock()

	req := CreateRequest{RegistrationID: regID, Prescriptions: make([]PrescriptionLine, 0, len(lines))}
	for _, line := range lines {
		req.Prescriptions = append(req.Prescriptions, PrescriptionLine{
			DrugID:   line.DrugID,
			Dosage:   line.Dosage,
			Quantity: line.Quantity,
			Remark:   line.Remark,
		})
	}

	err := s.gw.CreatePrescriptions(ctx, caseID, req)

	s.mu.Lock()
	s.submitting = false
	s.mu.Unlock()

	if err != nil {
		s.countSubmission("error")
		return fmt.Errorf("create prescriptions: %w", err)
	}

	s.cart.Clear()
	s.saver.Clear()
	s.countSubmission("ok")
	s.log.Info().Int64("case_id", caseID).Int("lines", len(lines)).Msg("prescription batch issued")

	if err := s.FetchHistory(ctx); err != nil {
		s.log.Warn().Err(err).Int64("case_id", caseID).Msg("history refresh after submit failed")
	}
	return nil
}

// FetchHistory reloads the issued-prescription list for the bound case.
// A visit without a case has no history and is a no-op.
func (s *Store) FetchHistory(ctx context.Context) error {
	caseID, ok := s.visit.CaseID()
	if !ok {
		return nil
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	entries, err := s.gw.ListPrescriptions(ctx, caseID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		return fmt.Errorf("list prescriptions: %w", err)
	}
	s.history = entries
	return nil
}

// Revoke withdraws an issued prescription, releasing its reserved stock,
// and refreshes the history. Dispensed or refunded lines are rejected
// locally.
func (s *Store) Revoke(ctx context.Context, prescriptionID int64) error {
	s.mu.Lock()
	for _, entry := range s.history {
		if entry.PrescriptionID == prescriptionID && !entry.Status.Revocable() {
			s.mu.Unlock()
			return precond.Failf("%s can no longer be revoked (%s)", entry.DrugName, entry.Status)
		}
	}
	s.mu.Unlock()

	if err := s.gw.RevokePrescription(ctx, prescriptionID); err != nil {
		return fmt.Errorf("revoke prescription %d: %w", prescriptionID, err)
	}
	s.log.Info().Int64("prescription_id", prescriptionID).Msg("prescription revoked")

	if err := s.FetchHistory(ctx); err != nil {
		s.log.Warn().Err(err).Msg("history refresh after revoke failed")
	}
	return nil
}

// ResetState empties the cart and history and detaches the autosaver.
// The stored draft is kept so reopening the visit restores it.
func (s *Store) ResetState() {
	s.saver.Deactivate()
	s.cart.Clear()
	s.mu.Lock()
	s.history = nil
	s.loading = false
	s.submitting = false
	s.mu.Unlock()
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	history := make([]HistoryEntry, len(s.history))
	copy(history, s.history)
	st := State{
		Loading:    s.loading,
		Submitting: s.submitting,
		History:    history,
	}
	s.mu.Unlock()
	st.Cart = s.cart.Items()
	return st
}

func (s *Store) countSubmission(result string) {
	if s.metrics != nil {
		s.metrics.SubmissionsTotal.WithLabelValues("prescription", result).Inc()
	}
}
