package results

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/domain/catalog"
)

type mockGateway struct {
	results  []ExamResult
	calls    int
	failWith error
}

func (m *mockGateway) ListResults(_ context.Context, _ int64) ([]ExamResult, error) {
	m.calls++
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.results, nil
}

func TestSnapshot_SplitsAndCounts(t *testing.T) {
	gw := &mockGateway{results: []ExamResult{
		{ApplyID: 1, ItemName: "Chest X-ray", Status: catalog.StatusFinished, Result: "no infiltrate"},
		{ApplyID: 2, ItemName: "Blood panel", Status: catalog.StatusUnfinished},
		{ApplyID: 3, ItemName: "ECG", Status: catalog.StatusPendingPayment},
		{ApplyID: 4, ItemName: "Urinalysis", Status: catalog.StatusRevoked},
		{ApplyID: 5, ItemName: "CT head", Status: catalog.StatusCancelled},
	}}
	s := NewStore(gw, zerolog.Nop())
	if err := s.Fetch(context.Background(), 55); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st := s.Snapshot()
	if len(st.Finished) != 1 || st.Finished[0].ApplyID != 1 {
		t.Errorf("finished = %+v", st.Finished)
	}
	if len(st.Pending) != 4 {
		t.Errorf("pending = %+v", st.Pending)
	}
	want := Statistics{Total: 5, Finished: 1, Checking: 1, Unpaid: 1, Cancelled: 2}
	if st.Statistics != want {
		t.Errorf("statistics = %+v, want %+v", st.Statistics, want)
	}
}

func TestFetch_ZeroCaseIsNoOp(t *testing.T) {
	gw := &mockGateway{}
	s := NewStore(gw, zerolog.Nop())
	if err := s.Fetch(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.calls != 0 {
		t.Error("gateway called for zero case id")
	}
}

func TestFetch_FailureKeepsPriorResults(t *testing.T) {
	gw := &mockGateway{results: []ExamResult{{ApplyID: 1, Status: catalog.StatusFinished}}}
	s := NewStore(gw, zerolog.Nop())
	if err := s.Fetch(context.Background(), 55); err != nil {
		t.Fatalf("seed fetch: %v", err)
	}

	gw.failWith = fmt.Errorf("upstream down")
	if err := s.Fetch(context.Background(), 55); err == nil {
		t.Fatal("expected error")
	}
	if got := s.Snapshot().Statistics.Total; got != 1 {
		t.Errorf("total = %d, want 1 (prior results kept)", got)
	}
}

func TestReset(t *testing.T) {
	gw := &mockGateway{results: []ExamResult{{ApplyID: 1, Status: catalog.StatusFinished}}}
	s := NewStore(gw, zerolog.Nop())
	if err := s.Fetch(context.Background(), 55); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	s.Reset()
	if got := s.Snapshot().Statistics.Total; got != 0 {
		t.Errorf("total after reset = %d", got)
	}
}
