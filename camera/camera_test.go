package camera

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/nasa-jpl/autoflat/skyx"
)

var _ Flat = (*skyx.Client)(nil)

func TestHTTPWrapper(t *testing.T) {
	m := skyx.NewMock(nil)
	m.Instant = true
	w := NewHTTPWrapper(skyx.NewClientWithExchanger(m.Exchanger()))
	r := chi.NewRouter()
	w.RT().Bind(r, "camera")

	for _, c := range []struct {
		method, path, body string
	}{
		{http.MethodPost, "/camera/connect", ""},
		{http.MethodPost, "/camera/filter", `{"int": 4}`},
		{http.MethodPost, "/camera/cooling/setpoint", `{"f64": -10}`},
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(c.method, c.path, strings.NewReader(c.body)))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s %s: status %d %s", c.method, c.path, rec.Code, rec.Body.String())
		}
	}
	s := m.Snapshot()
	if !s.CameraConnected || s.Slot != 4 || !s.Regulating {
		t.Errorf("unexpected camera state %+v", s)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/camera/exposure-complete", nil))
	if got := strings.TrimSpace(rec.Body.String()); got != `{"bool":true}` {
		t.Errorf("unexpected body %s", got)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/camera/filter", strings.NewReader("nope")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON should be a bad request, got %d", rec.Code)
	}
}
