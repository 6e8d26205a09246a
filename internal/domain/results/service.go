package results

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/domain/catalog"
	"github.com/clinicdesk/clinicdesk/internal/platform/his"
)

// Gateway fetches recorded results for a case.
type Gateway interface {
	ListResults(ctx context.Context, caseID int64) ([]ExamResult, error)
}

type hisGateway struct {
	client *his.Client
}

func NewHISGateway(client *his.Client) Gateway {
	return &hisGateway{client: client}
}

func (g *hisGateway) ListResults(ctx context.Context, caseID int64) ([]ExamResult, error) {
	var out struct {
		Results []ExamResult `json:"results"`
		Total   int          `json:"total"`
	}
	if err := g.client.Get(ctx, fmt.Sprintf("/cases/%d/results", caseID), nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Store holds the fetched result lines for one workspace.
type Store struct {
	gw  Gateway
	log zerolog.Logger

	mu      sync.Mutex
	results []ExamResult
	loading bool
}

func NewStore(gw Gateway, log zerolog.Logger) *Store {
	return &Store{gw: gw, log: log.With().Str("component", "results").Logger()}
}

// Fetch reloads all result lines for the case. A zero caseID is a no-op.
func (s *Store) Fetch(ctx context.Context, caseID int64) error {
	if caseID == 0 {
		return nil
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	results, err := s.gw.ListResults(ctx, caseID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		return fmt.Errorf("list results for case %d: %w", caseID, err)
	}
	s.results = results
	return nil
}

// Reset drops the loaded results.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = nil
	s.loading = false
}

// Snapshot splits the lines into completed and pending and tallies the
// header counts. Cancelled covers every terminal non-complete status:
// revoked by the doctor, refunded, or returned.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Loading:  s.loading,
		Finished: []ExamResult{},
		Pending:  []ExamResult{},
	}
	for _, r := range s.results {
		st.Statistics.Total++
		if r.Status == catalog.StatusFinished {
			st.Finished = append(st.Finished, r)
			st.Statistics.Finished++
			continue
		}
		st.Pending = append(st.Pending, r)
		switch r.Status {
		case catalog.StatusUnfinished:
			st.Statistics.Checking++
		case catalog.StatusPendingPayment:
			st.Statistics.Unpaid++
		case catalog.StatusCancelled, catalog.StatusRevoked, catalog.StatusReturned:
			st.Statistics.Cancelled++
		}
	}
	return st
}
