package visit

import (
	"context"
	"fmt"
	"net/url"

	"github.com/clinicdesk/clinicdesk/internal/platform/his"
)

// Gateway fetches the workspace-initialization context from the HIS.
type Gateway interface {
	FetchContext(ctx context.Context, registrationID int64) (*ContextData, error)
}

type hisGateway struct {
	client *his.Client
}

func NewHISGateway(client *his.Client) Gateway {
	return &hisGateway{client: client}
}

func (g *hisGateway) FetchContext(ctx context.Context, registrationID int64) (*ContextData, error) {
	var data ContextData
	path := fmt.Sprintf("/cases/registrations/%d/context", registrationID)
	if err := g.client.Get(ctx, path, url.Values{}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
