package caserecord

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/domain/visit"
	"github.com/clinicdesk/clinicdesk/internal/platform/draft"
	"github.com/clinicdesk/clinicdesk/internal/platform/telemetry"
	"github.com/clinicdesk/clinicdesk/pkg/precond"
)

// Editor holds the two-stage clinical note for one workspace: the initial
// consultation note and the revisit diagnosis. Unsubmitted edits are
// shadowed to a draft key per registration so a crashed or reloaded client
// picks up where it left off.
type Editor struct {
	gw      Gateway
	visit   *visit.Context
	saver   *draft.Autosaver
	log     zerolog.Logger
	metrics *telemetry.Metrics

	mu         sync.Mutex
	initial    InitialNote
	diagnosis  DiagnosisNote
	detail     *CaseDetail
	loading    bool
	submitting bool
}

func NewEditor(gw Gateway, vc *visit.Context, store draft.Store, debounce time.Duration, log zerolog.Logger, metrics *telemetry.Metrics) *Editor {
	e := &Editor{
		gw:      gw,
		visit:   vc,
		log:     log.With().Str("component", "caserecord").Logger(),
		metrics: metrics,
	}
	e.saver = draft.NewAutosaver(store, debounce, e.draftSnapshot, log, metrics)
	return e
}

func draftKey(registrationID int64) string {
	return fmt.Sprintf("medical_draft_%d", registrationID)
}

// draftSnapshot serializes both note stages for the autosaver. A fully
// empty note returns nil so the draft key is deleted instead of written.
func (e *Editor) draftSnapshot() ([]byte, error) {
	e.mu.Lock()
	d := noteDraft{Initial: e.initial, Diagnosis: e.diagnosis}
	e.mu.Unlock()
	if d.Initial.Empty() && d.Diagnosis.Empty() {
		return nil, nil
	}
	return json.Marshal(d)
}

// InitAutoSave points the saver at the visit's draft key and restores any
// saved draft. Restoration is per stage and only fills stages that are
// still empty in memory; state already loaded from the server wins.
func (e *Editor) InitAutoSave(registrationID int64) {
	payload, ok := e.saver.Activate(draftKey(registrationID))
	if !ok {
		return
	}
	var d noteDraft
	if err := json.Unmarshal(payload, &d); err != nil {
		e.log.Warn().Err(err).Int64("registration_id", registrationID).Msg("note draft unreadable")
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initial.Empty() && !d.Initial.Empty() {
		e.initial = d.Initial
	}
	if e.diagnosis.Empty() && !d.Diagnosis.Empty() {
		e.diagnosis = d.Diagnosis
	}
}

// SetInitialNote replaces the initial-stage note and schedules a draft
// write.
func (e *Editor) SetInitialNote(n InitialNote) {
	e.mu.Lock()
	e.initial = n
	e.mu.Unlock()
	e.saver.MarkDirty()
}

// SetDiagnosisNote replaces the revisit-stage note and schedules a draft
// write.
func (e *Editor) SetDiagnosisNote(n DiagnosisNote) {
	e.mu.Lock()
	e.diagnosis = n
	e.mu.Unlock()
	e.saver.MarkDirty()
}

// LoadCaseData fetches the stored note and overwrites both stages with the
// server copy. A zero caseID is a no-op.
func (e *Editor) LoadCaseData(ctx context.Context, caseID int64) error {
	if caseID == 0 {
		return nil
	}
	e.mu.Lock()
	e.loading = true
	e.mu.Unlock()

	detail, err := e.gw.GetCaseDetail(ctx, caseID)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.loading = false
	if err != nil {
		return fmt.Errorf("load case %d: %w", caseID, err)
	}
	e.detail = detail
	e.initial = InitialNote{
		ChiefComplaint: detail.ChiefComplaint,
		PresentHistory: detail.PresentHistory,
		PhysicalExam:   detail.PhysicalExam,
	}
	e.diagnosis = DiagnosisNote{
		Diagnosis:     detail.Diagnosis,
		TreatmentPlan: detail.TreatmentPlan,
	}
	return nil
}

// SubmitInitialCase creates the case from the initial note. On success the
// visit learns its new case id (advancing a waiting visit to
// in-consultation), the draft is cleared, and the stored note is reloaded.
func (e *Editor) SubmitInitialCase(ctx context.Context) (int64, error) {
	regID, ok := e.visit.RegistrationID()
	if !ok {
		return 0, precond.Failf("no active visit to chart against")
	}

	e.mu.Lock()
	if e.submitting {
		e.mu.Unlock()
		return 0, precond.Failf("a submission is already in progress")
	}
	if e.initial.ChiefComplaint == "" {
		e.mu.Unlock()
		return 0, precond.Failf("chief complaint is required")
	}
	if e.initial.PresentHistory == "" {
		e.mu.Unlock()
		return 0, precond.Failf("present history is required")
	}
	e.submitting = true
	req := e.buildUpsertLocked(regID)
	e.mu.Unlock()

	caseID, err := e.gw.CreateCase(ctx, req)

	e.mu.Lock()
	e.submitting = false
	e.mu.Unlock()

	if err != nil {
		e.countSubmission("initial", "error")
		return 0, fmt.Errorf("create case: %w", err)
	}

	e.visit.SetCaseID(caseID)
	e.saver.Clear()
	e.countSubmission("initial", "ok")
	e.log.Info().Int64("registration_id", regID).Int64("case_id", caseID).Msg("initial case created")

	if err := e.LoadCaseData(ctx, caseID); err != nil {
		e.log.Warn().Err(err).Int64("case_id", caseID).Msg("reload after create failed")
	}
	return caseID, nil
}

// SubmitDiagnosis confirms the revisit diagnosis. The write carries the
// full note, both stages, so the HIS never sees a partial record. On
// success the visit moves to REVISITED and the draft is cleared.
func (e *Editor) SubmitDiagnosis(ctx context.Context) error {
	regID, ok := e.visit.RegistrationID()
	if !ok {
		return precond.Failf("no active visit to chart against")
	}
	caseID, ok := e.visit.CaseID()
	if !ok {
		return precond.Failf("no case on file, submit the initial consultation first")
	}

	e.mu.Lock()
	if e.submitting {
		e.mu.Unlock()
		return precond.Failf("a submission is already in progress")
	}
	if e.diagnosis.Diagnosis == "" {
		e.mu.Unlock()
		return precond.Failf("diagnosis is required")
	}
	if e.diagnosis.TreatmentPlan == "" {
		e.mu.Unlock()
		return precond.Failf("treatment plan is required")
	}
	e.submitting = true
	req := e.buildUpsertLocked(regID)
	e.mu.Unlock()

	err := e.gw.ConfirmDiagnosis(ctx, caseID, req)

	e.mu.Lock()
	e.submitting = false
	e.mu.Unlock()

	if err != nil {
		e.countSubmission("diagnosis", "error")
		return fmt.Errorf("confirm diagnosis: %w", err)
	}

	e.visit.UpdateStatus(visit.StatusRevisited)
	e.saver.Clear()
	e.countSubmission("diagnosis", "ok")
	e.log.Info().Int64("case_id", caseID).Msg("diagnosis confirmed")

	if err := e.LoadCaseData(ctx, caseID); err != nil {
		e.log.Warn().Err(err).Int64("case_id", caseID).Msg("reload after diagnosis failed")
	}
	return nil
}

func (e *Editor) buildUpsertLocked(regID int64) CaseUpsert {
	return CaseUpsert{
		PatientNo:      e.visit.Patient().MedicalNo,
		RegistrationID: regID,
		ChiefComplaint: e.initial.ChiefComplaint,
		PresentHistory: e.initial.PresentHistory,
		PhysicalExam:   e.initial.PhysicalExam,
		Diagnosis:      e.diagnosis.Diagnosis,
		TreatmentPlan:  e.diagnosis.TreatmentPlan,
	}
}

// ResetForms blanks both stages and detaches the autosaver. The stored
// draft is left alone so switching back to the visit can restore it.
func (e *Editor) ResetForms() {
	e.saver.Deactivate()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.initial = InitialNote{}
	e.diagnosis = DiagnosisNote{}
	e.detail = nil
	e.loading = false
	e.submitting = false
}

func (e *Editor) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := State{
		Loading:    e.loading,
		Submitting: e.submitting,
		Initial:    e.initial,
		Diagnosis:  e.diagnosis,
	}
	if e.detail != nil {
		d := *e.detail
		s.Detail = &d
	}
	return s
}

func (e *Editor) countSubmission(kind, result string) {
	if e.metrics != nil {
		e.metrics.SubmissionsTotal.WithLabelValues(kind, result).Inc()
	}
}
