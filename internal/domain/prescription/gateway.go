package prescription

import (
	"context"
	"fmt"

	"github.com/clinicdesk/clinicdesk/internal/platform/his"
)

// Gateway is the HIS surface for prescriptions.
type Gateway interface {
	CreatePrescriptions(ctx context.Context, caseID int64, req CreateRequest) error
	ListPrescriptions(ctx context.Context, caseID int64) ([]HistoryEntry, error)
	RevokePrescription(ctx context.Context, prescriptionID int64) error
}

type hisGateway struct {
	client *his.Client
}

func NewHISGateway(client *his.Client) Gateway {
	return &hisGateway{client: client}
}

func (g *hisGateway) CreatePrescriptions(ctx context.Context, caseID int64, req CreateRequest) error {
	return g.client.Post(ctx, fmt.Sprintf("/cases/%d/prescriptions", caseID), req, nil)
}

func (g *hisGateway) ListPrescriptions(ctx context.Context, caseID int64) ([]HistoryEntry, error) {
	var out []HistoryEntry
	if err := g.client.Get(ctx, fmt.Sprintf("/cases/%d/prescriptions", caseID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *hisGateway) RevokePrescription(ctx context.Context, prescriptionID int64) error {
	return g.client.Post(ctx, fmt.Sprintf("/prescriptions/%d/revoke", prescriptionID), nil, nil)
}
