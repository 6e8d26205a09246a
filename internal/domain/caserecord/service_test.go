package caserecord

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/domain/visit"
	"github.com/clinicdesk/clinicdesk/internal/platform/draft"
	"github.com/clinicdesk/clinicdesk/pkg/precond"
)

const testDebounce = 20 * time.Millisecond

func settle() { time.Sleep(4 * testDebounce) }

// -- Mock Gateway --

type mockGateway struct {
	nextCaseID   int64
	details      map[int64]*CaseDetail
	lastUpsert   CaseUpsert
	createCalls  int
	confirmCalls int
	failWith     error
}

func newMockCaseGateway() *mockGateway {
	return &mockGateway{nextCaseID: 55, details: make(map[int64]*CaseDetail)}
}

func (m *mockGateway) CreateCase(_ context.Context, req CaseUpsert) (int64, error) {
	m.createCalls++
	m.lastUpsert = req
	if m.failWith != nil {
		return 0, m.failWith
	}
	id := m.nextCaseID
	m.details[id] = detailFromUpsert(req)
	return id, nil
}

func (m *mockGateway) GetCaseDetail(_ context.Context, caseID int64) (*CaseDetail, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	d, ok := m.details[caseID]
	if !ok {
		return nil, fmt.Errorf("case %d not found", caseID)
	}
	cp := *d
	return &cp, nil
}

func (m *mockGateway) ConfirmDiagnosis(_ context.Context, caseID int64, req CaseUpsert) error {
	m.confirmCalls++
	m.lastUpsert = req
	if m.failWith != nil {
		return m.failWith
	}
	m.details[caseID] = detailFromUpsert(req)
	return nil
}

func detailFromUpsert(req CaseUpsert) *CaseDetail {
	return &CaseDetail{
		PatientNo:      req.PatientNo,
		RegistrationID: req.RegistrationID,
		ChiefComplaint: req.ChiefComplaint,
		PresentHistory: req.PresentHistory,
		PhysicalExam:   req.PhysicalExam,
		Diagnosis:      req.Diagnosis,
		TreatmentPlan:  req.TreatmentPlan,
	}
}

type visitStub struct {
	data map[int64]*visit.ContextData
}

func (s *visitStub) FetchContext(_ context.Context, registrationID int64) (*visit.ContextData, error) {
	d, ok := s.data[registrationID]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	cp := *d
	return &cp, nil
}

func newActiveVisit(t *testing.T, status visit.Status, caseID *int64) *visit.Context {
	t.Helper()
	stub := &visitStub{data: map[int64]*visit.ContextData{
		1001: {
			RegistrationID: 1001,
			CaseID:         caseID,
			VisitStatus:    string(status),
			PatientName:    "Wang Lei",
			MedicalNo:      "MR-0042",
		},
	}}
	vc := visit.NewContext(stub, zerolog.Nop())
	if err := vc.InitContext(context.Background(), 1001); err != nil {
		t.Fatalf("init visit: %v", err)
	}
	return vc
}

func newTestEditor(t *testing.T, vc *visit.Context) (*Editor, *mockGateway, *draft.MemoryStore) {
	t.Helper()
	gw := newMockCaseGateway()
	store := draft.NewMemoryStore()
	e := NewEditor(gw, vc, store, testDebounce, zerolog.Nop(), nil)
	return e, gw, store
}

func TestSubmitInitialCase_Succeeds(t *testing.T) {
	vc := newActiveVisit(t, visit.StatusWaitingForConsultation, nil)
	e, gw, store := newTestEditor(t, vc)
	e.InitAutoSave(1001)

	e.SetInitialNote(InitialNote{ChiefComplaint: "fever", PresentHistory: "3 days"})
	settle()
	if _, ok, _ := store.Get("medical_draft_1001"); !ok {
		t.Fatal("expected draft before submission")
	}

	caseID, err := e.SubmitInitialCase(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if caseID != 55 {
		t.Errorf("case id = %d, want 55", caseID)
	}
	if id, ok := vc.CaseID(); !ok || id != 55 {
		t.Errorf("visit case id = %d, %v", id, ok)
	}
	if vc.Status() != visit.StatusInitialConsultationDone {
		t.Errorf("status = %s, want %s", vc.Status(), visit.StatusInitialConsultationDone)
	}
	if _, ok, _ := store.Get("medical_draft_1001"); ok {
		t.Error("draft survived a confirmed submission")
	}
	if gw.lastUpsert.PatientNo != "MR-0042" || gw.lastUpsert.RegistrationID != 1001 {
		t.Errorf("upsert = %+v", gw.lastUpsert)
	}

	snap := e.Snapshot()
	if snap.Detail == nil || snap.Detail.ChiefComplaint != "fever" {
		t.Errorf("detail not reloaded: %+v", snap.Detail)
	}
}

func TestSubmitInitialCase_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		note InitialNote
	}{
		{"missing chief complaint", InitialNote{PresentHistory: "3 days"}},
		{"missing present history", InitialNote{ChiefComplaint: "fever"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vc := newActiveVisit(t, visit.StatusWaitingForConsultation, nil)
			e, gw, _ := newTestEditor(t, vc)
			e.SetInitialNote(tt.note)

			_, err := e.SubmitInitialCase(context.Background())
			if !precond.IsFailure(err) {
				t.Fatalf("error = %v, want precondition failure", err)
			}
			if gw.createCalls != 0 {
				t.Error("gateway called despite failed validation")
			}
			if _, ok := vc.CaseID(); ok {
				t.Error("case id set despite failed validation")
			}
		})
	}
}

func TestSubmitInitialCase_NoActiveVisit(t *testing.T) {
	vc := visit.NewContext(&visitStub{}, zerolog.Nop())
	e, gw, _ := newTestEditor(t, vc)
	e.SetInitialNote(InitialNote{ChiefComplaint: "fever", PresentHistory: "3 days"})

	if _, err := e.SubmitInitialCase(context.Background()); !precond.IsFailure(err) {
		t.Fatalf("error = %v, want precondition failure", err)
	}
	if gw.createCalls != 0 {
		t.Error("gateway called with no visit bound")
	}
}

func TestSubmitInitialCase_GatewayFailureKeepsNote(t *testing.T) {
	vc := newActiveVisit(t, visit.StatusWaitingForConsultation, nil)
	e, gw, _ := newTestEditor(t, vc)
	gw.failWith = fmt.Errorf("upstream down")
	e.SetInitialNote(InitialNote{ChiefComplaint: "fever", PresentHistory: "3 days"})

	_, err := e.SubmitInitialCase(context.Background())
	if err == nil || precond.IsFailure(err) {
		t.Fatalf("error = %v, want plain failure", err)
	}
	if _, ok := vc.CaseID(); ok {
		t.Error("case id set despite failed create")
	}
	if e.Snapshot().Initial.ChiefComplaint != "fever" {
		t.Error("note lost after failed create")
	}
}

func TestSubmitDiagnosis_AdvancesToRevisited(t *testing.T) {
	vc := newActiveVisit(t, visit.StatusWaitingForRevisit, int64Ptr(55))
	e, gw, store := newTestEditor(t, vc)
	gw.details[55] = &CaseDetail{ChiefComplaint: "fever", PresentHistory: "3 days"}
	e.InitAutoSave(1001)

	e.SetInitialNote(InitialNote{ChiefComplaint: "fever", PresentHistory: "3 days"})
	e.SetDiagnosisNote(DiagnosisNote{Diagnosis: "viral URI", TreatmentPlan: "rest and fluids"})

	if err := e.SubmitDiagnosis(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vc.Status() != visit.StatusRevisited {
		t.Errorf("status = %s, want %s", vc.Status(), visit.StatusRevisited)
	}
	if !vc.Status().CanPrescribe() {
		t.Error("prescribing still closed after confirmed diagnosis")
	}
	if gw.lastUpsert.ChiefComplaint != "fever" || gw.lastUpsert.Diagnosis != "viral URI" {
		t.Errorf("upsert missing a stage: %+v", gw.lastUpsert)
	}
	if _, ok, _ := store.Get("medical_draft_1001"); ok {
		t.Error("draft survived a confirmed submission")
	}
}

func TestSubmitDiagnosis_RequiresCase(t *testing.T) {
	vc := newActiveVisit(t, visit.StatusWaitingForConsultation, nil)
	e, gw, _ := newTestEditor(t, vc)
	e.SetDiagnosisNote(DiagnosisNote{Diagnosis: "viral URI", TreatmentPlan: "rest"})

	if err := e.SubmitDiagnosis(context.Background()); !precond.IsFailure(err) {
		t.Fatalf("error = %v, want precondition failure", err)
	}
	if gw.confirmCalls != 0 {
		t.Error("gateway called with no case on file")
	}
}

func TestSubmitDiagnosis_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		note DiagnosisNote
	}{
		{"missing diagnosis", DiagnosisNote{TreatmentPlan: "rest"}},
		{"missing treatment plan", DiagnosisNote{Diagnosis: "viral URI"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vc := newActiveVisit(t, visit.StatusWaitingForRevisit, int64Ptr(55))
			e, gw, _ := newTestEditor(t, vc)
			e.SetDiagnosisNote(tt.note)

			if err := e.SubmitDiagnosis(context.Background()); !precond.IsFailure(err) {
				t.Fatalf("error = %v, want precondition failure", err)
			}
			if gw.confirmCalls != 0 {
				t.Error("gateway called despite failed validation")
			}
		})
	}
}

func TestLoadCaseData_OverwritesBothStages(t *testing.T) {
	vc := newActiveVisit(t, visit.StatusWaitingForRevisit, int64Ptr(55))
	e, gw, _ := newTestEditor(t, vc)
	gw.details[55] = &CaseDetail{
		ChiefComplaint: "fever",
		PresentHistory: "3 days",
		Diagnosis:      "viral URI",
		TreatmentPlan:  "rest",
	}
	e.SetInitialNote(InitialNote{ChiefComplaint: "typed locally"})

	if err := e.LoadCaseData(context.Background(), 55); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := e.Snapshot()
	if snap.Initial.ChiefComplaint != "fever" || snap.Initial.PresentHistory != "3 days" {
		t.Errorf("initial stage = %+v", snap.Initial)
	}
	if snap.Diagnosis.Diagnosis != "viral URI" {
		t.Errorf("diagnosis stage = %+v", snap.Diagnosis)
	}
}

func TestLoadCaseData_ZeroIDIsNoOp(t *testing.T) {
	vc := newActiveVisit(t, visit.StatusWaitingForConsultation, nil)
	e, _, _ := newTestEditor(t, vc)
	e.SetInitialNote(InitialNote{ChiefComplaint: "fever"})

	if err := e.LoadCaseData(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Snapshot().Initial.ChiefComplaint != "fever" {
		t.Error("zero id load touched local state")
	}
}

func TestInitAutoSave_RestoresOnlyEmptyStages(t *testing.T) {
	vc := newActiveVisit(t, visit.StatusWaitingForConsultation, nil)
	e, _, store := newTestEditor(t, vc)

	payload, _ := json.Marshal(noteDraft{
		Initial:   InitialNote{ChiefComplaint: "drafted complaint"},
		Diagnosis: DiagnosisNote{Diagnosis: "drafted dx"},
	})
	rec, _ := json.Marshal(draft.Record{Payload: payload, SavedAt: time.Now()})
	if err := store.Put("medical_draft_1001", rec); err != nil {
		t.Fatalf("seed draft: %v", err)
	}

	e.SetInitialNote(InitialNote{ChiefComplaint: "from server"})
	e.InitAutoSave(1001)

	snap := e.Snapshot()
	if snap.Initial.ChiefComplaint != "from server" {
		t.Errorf("draft overwrote loaded state: %+v", snap.Initial)
	}
	if snap.Diagnosis.Diagnosis != "drafted dx" {
		t.Errorf("empty stage not restored: %+v", snap.Diagnosis)
	}
}

func TestAutosave_WritesAndDeletesDraft(t *testing.T) {
	vc := newActiveVisit(t, visit.StatusWaitingForConsultation, nil)
	e, _, store := newTestEditor(t, vc)
	e.InitAutoSave(1001)

	e.SetInitialNote(InitialNote{ChiefComplaint: "fever"})
	settle()

	value, ok, _ := store.Get("medical_draft_1001")
	if !ok {
		t.Fatal("no draft written after quiet period")
	}
	var rec draft.Record
	if err := json.Unmarshal(value, &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	var d noteDraft
	if err := json.Unmarshal(rec.Payload, &d); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if d.Initial.ChiefComplaint != "fever" {
		t.Errorf("draft payload = %+v", d)
	}

	e.SetInitialNote(InitialNote{})
	settle()
	if _, ok, _ := store.Get("medical_draft_1001"); ok {
		t.Error("blanked note left a draft behind")
	}
}

func TestResetForms_KeepsStoredDraft(t *testing.T) {
	vc := newActiveVisit(t, visit.StatusWaitingForConsultation, nil)
	e, _, store := newTestEditor(t, vc)
	e.InitAutoSave(1001)

	e.SetInitialNote(InitialNote{ChiefComplaint: "fever"})
	settle()

	e.ResetForms()
	snap := e.Snapshot()
	if !snap.Initial.Empty() || !snap.Diagnosis.Empty() || snap.Detail != nil {
		t.Errorf("forms not blanked: %+v", snap)
	}
	if _, ok, _ := store.Get("medical_draft_1001"); !ok {
		t.Error("teardown deleted the stored draft")
	}

	e.SetInitialNote(InitialNote{ChiefComplaint: "after reset"})
	settle()
	value, _, _ := store.Get("medical_draft_1001")
	var rec draft.Record
	if err := json.Unmarshal(value, &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	var d noteDraft
	_ = json.Unmarshal(rec.Payload, &d)
	if d.Initial.ChiefComplaint != "fever" {
		t.Error("detached editor still writing drafts")
	}
}

func int64Ptr(v int64) *int64 { return &v }
