package orders

import (
	"context"
	"fmt"

	"github.com/clinicdesk/clinicdesk/internal/platform/his"
)

// Gateway is the HIS surface for item orders.
type Gateway interface {
	SubmitApplies(ctx context.Context, caseID int64, req ApplyRequest) error
	ListApplies(ctx context.Context, caseID int64) ([]HistoryEntry, error)
	RevokeApply(ctx context.Context, applyID int64) error
}

type hisGateway struct {
	client *his.Client
}

func NewHISGateway(client *his.Client) Gateway {
	return &hisGateway{client: client}
}

func (g *hisGateway) SubmitApplies(ctx context.Context, caseID int64, req ApplyRequest) error {
	return g.client.Post(ctx, fmt.Sprintf("/cases/%d/applies", caseID), req, nil)
}

func (g *hisGateway) ListApplies(ctx context.Context, caseID int64) ([]HistoryEntry, error) {
	var out []HistoryEntry
	if err := g.client.Get(ctx, fmt.Sprintf("/cases/%d/applies", caseID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *hisGateway) RevokeApply(ctx context.Context, applyID int64) error {
	return g.client.Post(ctx, fmt.Sprintf("/applies/%d/revoke", applyID), nil, nil)
}
