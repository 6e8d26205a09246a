package workspace

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/domain/caserecord"
	"github.com/clinicdesk/clinicdesk/internal/domain/catalog"
	"github.com/clinicdesk/clinicdesk/internal/domain/orders"
	"github.com/clinicdesk/clinicdesk/internal/domain/prescription"
	"github.com/clinicdesk/clinicdesk/internal/platform/his"
	"github.com/clinicdesk/clinicdesk/pkg/precond"
)

type Handler struct {
	mgr *Manager
}

func NewHandler(mgr *Manager) *Handler {
	return &Handler{mgr: mgr}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/workspaces", h.OpenWorkspace)
	api.GET("/workspaces/:id", h.GetSession)
	api.DELETE("/workspaces/:id", h.CloseWorkspace)
	api.POST("/workspaces/:id/refresh", h.RefreshSession)

	api.GET("/workspaces/:id/record", h.GetRecord)
	api.PUT("/workspaces/:id/record/initial", h.PutInitialNote)
	api.PUT("/workspaces/:id/record/diagnosis", h.PutDiagnosisNote)
	api.POST("/workspaces/:id/record/submit", h.SubmitInitialCase)
	api.POST("/workspaces/:id/record/confirm", h.ConfirmDiagnosis)

	api.GET("/workspaces/:id/orders", h.GetOrders)
	api.POST("/workspaces/:id/orders/items", h.AddOrderItem)
	api.POST("/workspaces/:id/orders/items/batch", h.BatchAddOrderItems)
	api.PUT("/workspaces/:id/orders/items/:index", h.EditOrderLine)
	api.DELETE("/workspaces/:id/orders/items/:index", h.RemoveOrderLine)
	api.POST("/workspaces/:id/orders/submit", h.SubmitOrders)
	api.GET("/workspaces/:id/orders/history", h.GetOrderHistory)
	api.POST("/workspaces/:id/orders/:applyId/revoke", h.RevokeOrder)

	api.GET("/workspaces/:id/prescriptions", h.GetPrescriptions)
	api.POST("/workspaces/:id/prescriptions/items/batch", h.BatchAddDrugs)
	api.PUT("/workspaces/:id/prescriptions/items/:index", h.EditPrescriptionLine)
	api.DELETE("/workspaces/:id/prescriptions/items/:index", h.RemovePrescriptionLine)
	api.POST("/workspaces/:id/prescriptions/submit", h.SubmitPrescriptions)
	api.GET("/workspaces/:id/prescriptions/history", h.GetPrescriptionHistory)
	api.POST("/workspaces/:id/prescriptions/:prescriptionId/revoke", h.RevokePrescription)

	api.GET("/workspaces/:id/results", h.GetResults)
	api.GET("/workspaces/:id/fees", h.GetFees)
}

// translate maps domain errors onto HTTP statuses: precondition failures
// are the caller's to fix, upstream errors relay their status or read as
// a bad gateway.
func translate(err error) error {
	switch {
	case precond.IsFailure(err):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case his.IsUpstream(err):
		return echo.NewHTTPError(his.StatusOf(err), err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) workspace(c echo.Context) (*Workspace, error) {
	w, ok := h.mgr.Get(c.Param("id"))
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "workspace not found")
	}
	return w, nil
}

func indexParam(c echo.Context) (int, error) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid line index")
	}
	return i, nil
}

// -- Session --

func (h *Handler) OpenWorkspace(c echo.Context) error {
	var req struct {
		RegistrationID int64 `json:"registrationId"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.RegistrationID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "registrationId is required")
	}

	w, err := h.mgr.Open(c.Request().Context(), req.RegistrationID)
	if err != nil {
		return translate(err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"workspaceId": w.ID,
		"session":     w.Visit.Snapshot(),
	})
}

func (h *Handler) GetSession(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w.Visit.Snapshot())
}

func (h *Handler) CloseWorkspace(c echo.Context) error {
	if !h.mgr.Close(c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, "workspace not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RefreshSession(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	if err := w.Visit.Refresh(c.Request().Context()); err != nil {
		return translate(err)
	}
	return c.JSON(http.StatusOK, w.Visit.Snapshot())
}

// -- Clinical note --

func (h *Handler) GetRecord(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w.Record.Snapshot())
}

func (h *Handler) PutInitialNote(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	var note caserecord.InitialNote
	if err := c.Bind(&note); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	w.Record.SetInitialNote(note)
	return c.JSON(http.StatusOK, w.Record.Snapshot())
}

func (h *Handler) PutDiagnosisNote(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	var note caserecord.DiagnosisNote
	if err := c.Bind(&note); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	w.Record.SetDiagnosisNote(note)
	return c.JSON(http.StatusOK, w.Record.Snapshot())
}

func (h *Handler) SubmitInitialCase(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	caseID, err := w.Record.SubmitInitialCase(c.Request().Context())
	if err != nil {
		return translate(err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"caseId":  caseID,
		"session": w.Visit.Snapshot(),
	})
}

func (h *Handler) ConfirmDiagnosis(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	if err := w.Record.SubmitDiagnosis(c.Request().Context()); err != nil {
		return translate(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"session": w.Visit.Snapshot(),
	})
}

// -- Orders --

func (h *Handler) GetOrders(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w.Orders.Snapshot())
}

func (h *Handler) AddOrderItem(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	var item catalog.MedicalItem
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	line, err := w.Orders.AddItem(item)
	if err != nil {
		return translate(err)
	}
	return c.JSON(http.StatusCreated, line)
}

func (h *Handler) BatchAddOrderItems(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	var items []catalog.MedicalItem
	if err := c.Bind(&items); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	added, skipped := w.Orders.BatchAdd(items)
	return c.JSON(http.StatusOK, map[string]int{"added": added, "skipped": skipped})
}

func (h *Handler) EditOrderLine(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	i, err := indexParam(c)
	if err != nil {
		return err
	}
	var edit orders.LineEdit
	if err := c.Bind(&edit); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := w.Orders.EditLine(i, edit); err != nil {
		return translate(err)
	}
	return c.JSON(http.StatusOK, w.Orders.Snapshot())
}

func (h *Handler) RemoveOrderLine(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	i, err := indexParam(c)
	if err != nil {
		return err
	}
	if err := w.Orders.RemoveAt(i); err != nil {
		return translate(err)
	}
	return c.JSON(http.StatusOK, w.Orders.Snapshot())
}

func (h *Handler) SubmitOrders(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	if err := w.Orders.Submit(c.Request().Context()); err != nil {
		return translate(err)
	}
	return c.JSON(http.StatusOK, w.Orders.Snapshot())
}

func (h *Handler) GetOrderHistory(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	if err := w.Orders.FetchHistory(c.Request().Context()); err != nil {
		return translate(err)
	}
	return c.JSON(http.StatusOK, w.Orders.Snapshot())
}

func (h *Handler) RevokeOrder(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	applyID, err := strconv.ParseInt(c.Param("applyId"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid apply id")
	}
	if err := w.Orders.Revoke(c.Request().Context(), applyID); err != nil {
		return translate(err)
	}
	return c.JSON(http.StatusOK, w.Orders.Snapshot())
}

// -- Prescriptions --

func (h *Handler) GetPrescriptions(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w.Prescriptions.Snapshot())
}

func (h *Handler) BatchAddDrugs(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	var drugs []catalog.DrugInfo
	if err := c.Bind(&drugs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	added, skipped := w.Prescriptions.BatchAdd(drugs)
	return c.JSON(http.StatusOK, map[string]int{"added": added, "skipped": skipped})
}

func (h *Handler) EditPrescriptionLine(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	i, err := indexParam(c)
	if err != nil {
		return err
	}
	var edit prescription.LineEdit
	if err := c.Bind(&edit); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := w.Prescriptions.EditLine(i, edit); err != nil {
		return translate(err)
	}
	return c.JSON(http.StatusOK, w.Prescriptions.Snapshot())
}

func (h *Handler) RemovePrescriptionLine(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	i, err := indexParam(c)
	if err != nil {
		return err
	}
	if err := w.Prescriptions.RemoveAt(i); err != nil {
		return translate(err)
	}
	return c.JSON(http.StatusOK, w.Prescriptions.Snapshot())
}

func (h *Handler) SubmitPrescriptions(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	if err := w.Prescriptions.Submit(c.Request().Context()); err != nil {
		return translate(err)
	}
	return c.JSON(http.StatusOK, w.Prescriptions.Snapshot())
}

func (h *Handler) GetPrescriptionHistory(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	if err := w.Prescriptions.FetchHistory(c.Request().Context()); err != nil {
		return translate(err)
	}
	return c.JSON(http.StatusOK, w.Prescriptions.Snapshot())
}

func (h *Handler) RevokePrescription(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	prescriptionID, err := strconv.ParseInt(c.Param("prescriptionId"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid prescription id")
	}
	if err := w.Prescriptions.Revoke(c.Request().Context(), prescriptionID); err != nil {
		return translate(err)
	}
	return c.JSON(http.StatusOK, w.Prescriptions.Snapshot())
}

// -- Results and fees --

func (h *Handler) GetResults(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	caseID, ok := w.Visit.CaseID()
	if ok {
		if err := w.Results.Fetch(c.Request().Context(), caseID); err != nil {
			return translate(err)
		}
	}
	return c.JSON(http.StatusOK, w.Results.Snapshot())
}

func (h *Handler) GetFees(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	caseID, ok := w.Visit.CaseID()
	if ok {
		if err := w.Fees.Fetch(c.Request().Context(), caseID); err != nil {
			return translate(err)
		}
	}
	return c.JSON(http.StatusOK, w.Fees.Snapshot())
}
