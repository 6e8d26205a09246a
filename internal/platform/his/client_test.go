package his

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(Options{
		BaseURL: srv.URL,
		Logger:  zerolog.Nop(),
	})
	return c, srv
}

func TestGet_DecodesEnvelopeData(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("_t") == "" {
			t.Error("GET request missing cache-bust param")
		}
		w.Write([]byte(`{"code":200,"message":"ok","data":{"caseId":55}}`))
	})

	var out struct {
		CaseID int64 `json:"caseId"`
	}
	if err := c.Get(context.Background(), "/cases/1", nil, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.CaseID != 55 {
		t.Errorf("caseId = %d, want 55", out.CaseID)
	}
}

func TestGet_ForwardsBearerToken(t *testing.T) {
	var gotAuth string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"code":0,"data":null}`))
	})

	ctx := WithToken(context.Background(), "tok-123")
	if err := c.Get(ctx, "/cases/1", nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want Bearer tok-123", gotAuth)
	}
}

func TestDo_BusinessCodeIsError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":40002,"message":"insufficient stock"}`))
	})

	err := c.Post(context.Background(), "/cases/1/prescriptions", map[string]int{"x": 1}, nil)
	if err == nil {
		t.Fatal("expected business error")
	}
	var he *Error
	if !errors.As(err, &he) {
		t.Fatalf("error type = %T", err)
	}
	if he.Code != 40002 || he.Message != "insufficient stock" {
		t.Errorf("error = %+v", he)
	}
}

func TestDo_HTTPErrorStatusRelayed(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"case not found"}`))
	})

	err := c.Get(context.Background(), "/cases/999", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if StatusOf(err) != http.StatusNotFound {
		t.Errorf("StatusOf = %d, want 404", StatusOf(err))
	}
}

func TestDo_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(Options{
		BaseURL:     srv.URL,
		Logger:      zerolog.Nop(),
		MaxFailures: 2,
	})

	for i := 0; i < 2; i++ {
		if err := c.Get(context.Background(), "/cases/1", nil, nil); err == nil {
			t.Fatal("expected failure")
		}
	}

	// Circuit is open now; the next call must fail without reaching the server.
	srv.Close()
	err := c.Get(context.Background(), "/cases/1", nil, nil)
	if err == nil {
		t.Fatal("expected circuit-open error")
	}
	if !IsUpstream(err) {
		t.Errorf("circuit-open error not classified as upstream: %v", err)
	}
}

func TestGetPaged_DecodesMeta(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":200,"data":[{"drugId":1}],"meta":{"page":2,"size":10,"total":31,"totalPages":4}}`))
	})

	var out []struct {
		DrugID int64 `json:"drugId"`
	}
	meta, err := c.GetPaged(context.Background(), "/catalog/drugs", nil, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta == nil || meta.Page != 2 || meta.Total != 31 {
		t.Errorf("meta = %+v", meta)
	}
	if len(out) != 1 || out[0].DrugID != 1 {
		t.Errorf("data = %+v", out)
	}
}

func TestDo_FourXXDoesNotTripBreaker(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"bad fields"}`))
	})

	for i := 0; i < 10; i++ {
		if err := c.Get(context.Background(), "/cases/1", nil, nil); err == nil {
			t.Fatal("expected 422 error")
		}
	}

	// Still reaches the server: a 422 keeps coming back instead of a
	// circuit-open failure.
	err := c.Get(context.Background(), "/cases/1", nil, nil)
	var he *Error
	if !errors.As(err, &he) || he.Status != http.StatusUnprocessableEntity {
		t.Errorf("error after repeated 4xx = %v", err)
	}
}
