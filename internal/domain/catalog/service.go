package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/clinicdesk/clinicdesk/internal/platform/his"
)

// Gateway lists the HIS catalogs.
type Gateway interface {
	ListItems(ctx context.Context, kind ApplyType, q Query) (*ItemPage, error)
	SearchDrugs(ctx context.Context, q DrugQuery) (*DrugPage, error)
}

type hisGateway struct {
	client *his.Client
}

func NewHISGateway(client *his.Client) Gateway {
	return &hisGateway{client: client}
}

var itemPaths = map[ApplyType]string{
	ApplyExam:     "/catalog/exam-items",
	ApplyLab:      "/catalog/lab-items",
	ApplyDisposal: "/catalog/disposal-items",
}

func (g *hisGateway) ListItems(ctx context.Context, kind ApplyType, q Query) (*ItemPage, error) {
	path, ok := itemPaths[kind]
	if !ok {
		return nil, fmt.Errorf("catalog: unknown item kind %q", kind)
	}

	query := url.Values{}
	if q.Keyword != "" {
		query.Set("keyword", q.Keyword)
	}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.Size > 0 {
		query.Set("size", strconv.Itoa(q.Size))
	}

	var items []MedicalItem
	meta, err := g.client.GetPaged(ctx, path, query, &items)
	if err != nil {
		return nil, err
	}
	page := &ItemPage{Items: items}
	if meta != nil {
		page.Meta = *meta
	}
	return page, nil
}

func (g *hisGateway) SearchDrugs(ctx context.Context, q DrugQuery) (*DrugPage, error) {
	query := url.Values{}
	if q.Keyword != "" {
		query.Set("keyword", q.Keyword)
	}
	if q.CategoryID > 0 {
		query.Set("categoryId", strconv.FormatInt(q.CategoryID, 10))
	}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.Size > 0 {
		query.Set("size", strconv.Itoa(q.Size))
	}

	var drugs []DrugInfo
	meta, err := g.client.GetPaged(ctx, "/catalog/drugs", query, &drugs)
	if err != nil {
		return nil, err
	}
	page := &DrugPage{Drugs: drugs}
	if meta != nil {
		page.Meta = *meta
	}
	return page, nil
}

// Service is the read side of the catalogs used by the order and
// prescription pickers.
type Service struct {
	gw Gateway
}

func NewService(gw Gateway) *Service {
	return &Service{gw: gw}
}

func (s *Service) Items(ctx context.Context, kind ApplyType, q Query) (*ItemPage, error) {
	return s.gw.ListItems(ctx, kind, q)
}

func (s *Service) Drugs(ctx context.Context, q DrugQuery) (*DrugPage, error) {
	return s.gw.SearchDrugs(ctx, q)
}

// AllItems fetches the three item catalogs concurrently for the picker
// dialog. One failed catalog fails the whole call; a picker with silently
// missing tabs would read as an empty catalog to the doctor.
func (s *Service) AllItems(ctx context.Context, q Query) (*AllItems, error) {
	var out AllItems
	g, ctx := errgroup.WithContext(ctx)

	fetch := func(kind ApplyType, dst *ItemPage) func() error {
		return func() error {
			page, err := s.gw.ListItems(ctx, kind, q)
			if err != nil {
				return fmt.Errorf("list %s items: %w", kind, err)
			}
			*dst = *page
			return nil
		}
	}

	g.Go(fetch(ApplyExam, &out.Exam))
	g.Go(fetch(ApplyLab, &out.Lab))
	g.Go(fetch(ApplyDisposal, &out.Disposal))

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}
