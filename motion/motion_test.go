package motion

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/nasa-jpl/autoflat/server"
	"github.com/nasa-jpl/autoflat/server/middleware/locker"
	"github.com/nasa-jpl/autoflat/skyx"
)

var _ Mount = (*skyx.Client)(nil)

func newRouter(t *testing.T) (*skyx.Mock, *locker.Locker, http.Handler) {
	t.Helper()
	m := skyx.NewMock(nil)
	m.Instant = true
	c := skyx.NewClientWithExchanger(m.Exchanger())
	w := NewHTTPWrapper(c)
	l := locker.New()
	locker.Inject(w, l)
	r := chi.NewRouter()
	r.Route("/mount", func(r chi.Router) {
		r.Use(l.Check)
		w.RT().Bind(r, "")
	})
	return m, l, r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	h.ServeHTTP(rec, req)
	return rec
}

func TestGetPointing(t *testing.T) {
	m, _, h := newRouter(t)
	m.SetPointing(42, 270)
	rec := do(h, http.MethodGet, "/mount/pointing", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"alt":42,"az":270}` {
		t.Errorf("unexpected body %s", got)
	}
}

func TestSetPointing(t *testing.T) {
	m, _, h := newRouter(t)
	rec := do(h, http.MethodPost, "/mount/pointing?wait=true", `{"alt": 10, "az": 20}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	s := m.Snapshot()
	if s.Alt != 10 || s.Az != 20 {
		t.Errorf("mount at %f, %f", s.Alt, s.Az)
	}
	if rec := do(h, http.MethodPost, "/mount/pointing", `{"alt": 100, "az": 20}`); rec.Code != http.StatusBadRequest {
		t.Errorf("altitude over 90 should be refused, got %d", rec.Code)
	}
}

func TestTrackingRoutes(t *testing.T) {
	_, _, h := newRouter(t)
	if rec := do(h, http.MethodPost, "/mount/tracking", `{"bool": false}`); rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	rec := do(h, http.MethodGet, "/mount/tracking", "")
	if got := strings.TrimSpace(rec.Body.String()); got != `{"bool":false}` {
		t.Errorf("unexpected body %s", got)
	}
}

func TestLockedWhileSessionRuns(t *testing.T) {
	_, l, h := newRouter(t)
	l.Lock()
	if rec := do(h, http.MethodPost, "/mount/park", ""); rec.Code != http.StatusLocked {
		t.Errorf("expected 423 while locked, got %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/mount/lock", ""); rec.Code != http.StatusOK {
		t.Errorf("the lock route itself should stay reachable, got %d", rec.Code)
	}
	l.Unlock()
	if rec := do(h, http.MethodPost, "/mount/park", ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200 once unlocked, got %d", rec.Code)
	}
}

func TestRouteList(t *testing.T) {
	_, _, h := newRouter(t)
	rec := do(h, http.MethodGet, "/mount/route-list", "")
	if !strings.Contains(rec.Body.String(), "POST /home") {
		t.Errorf("route list missing POST /home: %s", rec.Body.String())
	}
	var _ server.HTTPer = HTTPWrapper{}
}
