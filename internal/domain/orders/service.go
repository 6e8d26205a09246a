package orders

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

// Store holds the exam/lab/disposal order cart and submitted-order
// history for one workspace. Cart contents are shadowed to a per-visit
// draft so an interrupted session keeps its unsubmitted rows.
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
		log:     log.With().Str("component", "orders").Logger(),
		metrics: metrics,
	}
	s.cart = cart.New[CartLine](func() { s.saver.MarkDirty() })
	s.saver = draft.NewAutosaver(store, debounce, s.cart.Snapshot, log, metrics)
	return s
}

func draftKey(registrationID int64) string {
	return fmt.Sprintf("order_cart_draft_%d", registrationID)
}

// InitAutoSave points the saver at the visit's draft key and restores a
// saved cart if nothing has been placed this session.
func (s *Store) InitAutoSave(registrationID int64) {
	payload, ok := s.saver.Activate(draftKey(registrationID))
	if !ok {
		return
	}
	if err := s.cart.Restore(payload); err != nil {
		s.log.Warn().Err(err).Int64("registration_id", registrationID).Msg("order draft unreadable")
	}
}

// AddItem places a catalog item in the cart with a fresh row id and blank
// order details. A duplicate catalog item is a precondition failure.
func (s *Store) AddItem(item catalog.MedicalItem) (CartLine, error) {
	it := item
	line := CartLine{
		TempID:    uuid.NewString(),
		ItemID:    item.ItemID,
		ApplyType: item.ItemType,
		Unit:      1,
		Item:      &it,
	}
	if err := s.cart.Add(line); err != nil {
		return CartLine{}, precond.Failf("%s is already in the order list", item.ItemName)
	}
	return line, nil
}

// BatchAdd places several catalog items at once, skipping those already
// in the cart, and reports both counts.
func (s *Store) BatchAdd(items []catalog.MedicalItem) (added, skipped int) {
	lines := make([]CartLine, 0, len(items))
	for _, item := range items {
		it := item
		lines = append(lines, CartLine{
			TempID:    uuid.NewString(),
			ItemID:    item.ItemID,
			ApplyType: item.ItemType,
			Unit:      1,
			Item:      &it,
		})
	}
	return s.cart.BatchAdd(lines)
}

// EditLine updates the order details of the row at index i.
func (s *Store) EditLine(i int, edit LineEdit) error {
	lines := s.cart.Items()
	if i < 0 || i >= len(lines) {
		return precond.Failf("no order row at position %d", i)
	}
	line := lines[i]
	line.Purpose = edit.Purpose
	line.Site = edit.Site
	line.Unit = edit.Unit
	line.Remark = edit.Remark
	return s.cart.Update(i, line)
}

// RemoveAt drops the row at index i from the cart.
func (s *Store) RemoveAt(i int) error {
	return s.cart.RemoveAt(i)
}

// Submit sends every cart row as one apply batch. Each row needs a
// purpose and a site; the first incomplete row aborts the whole
// submission so the batch stays atomic. On success the cart and its
// draft are cleared and the history is refreshed.
func (s *Store) Submit(ctx context.Context) error {
	lines := s.cart.Items()
	if len(lines) == 0 {
		return precond.Failf("the order list is empty")
	}
	for _, line := range lines {
		if line.Purpose == "" || line.Site == "" {
			return precond.Failf("%s needs both a purpose and a site", line.itemName())
		}
		if line.Unit <= 0 {
			return precond.Failf("%s needs a positive unit count", line.itemName())
		}
	}

	regID, ok := s.visit.RegistrationID()
	if !ok {
		return precond.Failf("no active visit to order against")
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

	req := ApplyRequest{RegistrationID: regID, Items: make([]ApplyLine, 0, len(lines))}
	for _, line := range lines {
		req.Items = append(req.Items, ApplyLine{
			ItemID:    line.ItemID,
			ApplyType: line.ApplyType,
			Purpose:   line.Purpose,
			Site:      line.Site,
			Unit:      line.Unit,
			Remark:    line.Remark,
		})
	}

	err := s.gw.SubmitApplies(ctx, caseID, req)

	s.mu.Lock()
	s.submitting = false
	s.mu.Unlock()

	if err != nil {
		s.countSubmission("error")
		return fmt.Errorf("submit applies: %w", err)
	}

	s.cart.Clear()
	s.saver.Clear()
	s.countSubmission("ok")
	s.log.Info().Int64("case_id", caseID).Int("lines", len(lines)).Msg("order batch submitted")

	if err := s.FetchHistory(ctx); err != nil {
		s.log.Warn().Err(err).Int64("case_id", caseID).Msg("history refresh after submit failed")
	}
	return nil
}

// FetchHistory reloads the submitted-order list for the bound case. A
// visit without a case has no history and is a no-op.
func (s *Store) FetchHistory(ctx context.Context) error {
	caseID, ok := s.visit.CaseID()
	if !ok {
		return nil
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	entries, err := s.gw.ListApplies(ctx, caseID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		return fmt.Errorf("list applies: %w", err)
	}
	s.history = entries
	return nil
}

// Revoke withdraws a submitted order line and refreshes the history. A
// line the doctor can see is already paid or completed is rejected
// locally; refunds go through the cashier workflow.
func (s *Store) Revoke(ctx context.Context, applyID int64) error {
	s.mu.Lock()
	for _, entry := range s.history {
		if entry.ApplyID == applyID && !entry.Status.Revocable() {
			s.mu.Unlock()
			return precond.Failf("%s can no longer be revoked (%s)", entry.ItemName, entry.Status)
		}
	}
	s.mu.Unlock()

	if err := s.gw.RevokeApply(ctx, applyID); err != nil {
		return fmt.Errorf("revoke apply %d: %w", applyID, err)
	}
	s.log.Info().Int64("apply_id", applyID).Msg("order line revoked")

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
		s.metrics.SubmissionsTotal.WithLabelValues("order", result).Inc()
	}
}
