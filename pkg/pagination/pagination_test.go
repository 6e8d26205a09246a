package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, target string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return FromContext(e.NewContext(req, rec))
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor(t, "/")
	if p.Page != 1 {
		t.Errorf("page = %d, want 1", p.Page)
	}
	if p.Size != DefaultSize {
		t.Errorf("size = %d, want %d", p.Size, DefaultSize)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := paramsFor(t, "/?page=3&size=50")
	if p.Page != 3 || p.Size != 50 {
		t.Errorf("params = %+v", p)
	}
}

func TestFromContext_ClampsBadValues(t *testing.T) {
	p := paramsFor(t, "/?page=-1&size=9999")
	if p.Page != 1 {
		t.Errorf("page = %d, want 1", p.Page)
	}
	if p.Size != MaxSize {
		t.Errorf("size = %d, want %d", p.Size, MaxSize)
	}
}

func TestTotalPagesAndHasNext(t *testing.T) {
	p := Params{Page: 1, Size: 20}
	if got := p.TotalPages(45); got != 3 {
		t.Errorf("total pages = %d, want 3", got)
	}
	if !p.HasNext(45) {
		t.Error("expected a next page")
	}
	if (Params{Page: 3, Size: 20}).HasNext(45) {
		t.Error("last page reported a next page")
	}
	if got := p.TotalPages(0); got != 0 {
		t.Errorf("total pages for empty set = %d", got)
	}
}
