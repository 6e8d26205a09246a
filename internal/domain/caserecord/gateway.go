package caserecord

import (
	"context"
	"fmt"

	"github.com/clinicdesk/clinicdesk/internal/platform/his"
)

// Gateway is the HIS surface the editor depends on.
type Gateway interface {
	CreateCase(ctx context.Context, req CaseUpsert) (int64, error)
	GetCaseDetail(ctx context.Context, caseID int64) (*CaseDetail, error)
	ConfirmDiagnosis(ctx context.Context, caseID int64, req CaseUpsert) error
}

type hisGateway struct {
	client *his.Client
}

// NewHISGateway returns a Gateway backed by the HIS REST API.
func NewHISGateway(client *his.Client) Gateway {
	return &hisGateway{client: client}
}

func (g *hisGateway) CreateCase(ctx context.Context, req CaseUpsert) (int64, error) {
	var out struct {
		RecordID int64 `json:"recordId"`
	}
	if err := g.client.Post(ctx, "/cases", req, &out); err != nil {
		return 0, err
	}
	return out.RecordID, nil
}

func (g *hisGateway) GetCaseDetail(ctx context.Context, caseID int64) (*CaseDetail, error) {
	var out CaseDetail
	if err := g.client.Get(ctx, fmt.Sprintf("/cases/%d", caseID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *hisGateway) ConfirmDiagnosis(ctx context.Context, caseID int64, req CaseUpsert) error {
	return g.client.Put(ctx, fmt.Sprintf("/cases/%d/diagnosis", caseID), req, nil)
}
