package pagination

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(target string) Params {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return FromContext(e.NewContext(req, httptest.NewRecorder()))
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		target string
		limit  int
		offset int
	}{
		{"/", DefaultLimit, 0},
		{"/?limit=50&offset=10", 50, 10},
		{"/?limit=500", MaxLimit, 0},
		{"/?limit=-3&offset=-1", DefaultLimit, 0},
		{"/?page=3&limit=10", 10, 20},
		{"/?page=0", DefaultLimit, 0},
		{"/?page=abc&offset=5", DefaultLimit, 5},
	}
	for _, tt := range tests {
		p := paramsFor(tt.target)
		if p.Limit != tt.limit || p.Offset != tt.offset {
			t.Errorf("%s: got limit=%d offset=%d, want %d/%d", tt.target, p.Limit, p.Offset, tt.limit, tt.offset)
		}
	}
}

func TestParams_Page(t *testing.T) {
	if got := (Params{Limit: 10, Offset: 20}).Page(); got != 3 {
		t.Errorf("expected page 3, got %d", got)
	}
	if got := (Params{}).Page(); got != 1 {
		t.Errorf("expected page 1 for zero params, got %d", got)
	}
}

func TestNewResponse_Links(t *testing.T) {
	r := NewResponse([]string{"a"}, 45, Params{Limit: 10, Offset: 10}, "/patients", "pérez")
	if !r.HasMore {
		t.Error("expected more results")
	}
	if r.NextURL != "/patients?page=3&q=p%C3%A9rez" {
		t.Errorf("unexpected next url %q", r.NextURL)
	}
	if r.PrevURL != "/patients?page=1&q=p%C3%A9rez" {
		t.Errorf("unexpected prev url %q", r.PrevURL)
	}

	last := NewResponse(nil, 45, Params{Limit: 10, Offset: 40}, "/patients", "")
	if last.HasMore || last.NextURL != "" {
		t.Error("last page must not link forward")
	}
	if last.PrevURL != "/patients?page=4" {
		t.Errorf("unexpected prev url %q", last.PrevURL)
	}
}

func TestNewFilteredResponse_KeepsFilters(t *testing.T) {
	filters := url.Values{"from": {"2024-01-01"}, "to": {""}}
	r := NewFilteredResponse(nil, 30, Params{Limit: 10, Offset: 0}, "/ledger", filters)
	if r.NextURL != "/ledger?from=2024-01-01&page=2" {
		t.Errorf("unexpected next url %q", r.NextURL)
	}
}
