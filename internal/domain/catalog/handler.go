package catalog

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/platform/his"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/catalog/items", h.ListItems)
	api.GET("/catalog/items/all", h.ListAllItems)
	api.GET("/catalog/drugs", h.SearchDrugs)
}

func itemQuery(c echo.Context) Query {
	p := pagination.FromContext(c)
	return Query{Keyword: c.QueryParam("keyword"), Page: p.Page, Size: p.Size}
}

func (h *Handler) ListItems(c echo.Context) error {
	kind := ApplyType(c.QueryParam("type"))
	if _, ok := itemPaths[kind]; !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "type must be EXAM, LAB or DISPOSAL")
	}
	page, err := h.svc.Items(c.Request().Context(), kind, itemQuery(c))
	if err != nil {
		return echo.NewHTTPError(his.StatusOf(err), err.Error())
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) ListAllItems(c echo.Context) error {
	all, err := h.svc.AllItems(c.Request().Context(), itemQuery(c))
	if err != nil {
		return echo.NewHTTPError(his.StatusOf(err), err.Error())
	}
	return c.JSON(http.StatusOK, all)
}

func (h *Handler) SearchDrugs(c echo.Context) error {
	p := pagination.FromContext(c)
	categoryID, _ := strconv.ParseInt(c.QueryParam("categoryId"), 10, 64)
	q := DrugQuery{
		Keyword:    c.QueryParam("keyword"),
		CategoryID: categoryID,
		Page:       p.Page,
		Size:       p.Size,
	}
	drugs, err := h.svc.Drugs(c.Request().Context(), q)
	if err != nil {
		return echo.NewHTTPError(his.StatusOf(err), err.Error())
	}
	return c.JSON(http.StatusOK, drugs)
}
