package locker

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/nasa-jpl/autoflat/server"
)

type fake struct{ rt server.RouteTable }

func (f fake) RT() server.RouteTable { return f.rt }

func TestLockProtectsRoutesButNotItself(t *testing.T) {
	l := New()
	f := fake{server.RouteTable{
		{Method: http.MethodPost, Path: "/home"}: func(w http.ResponseWriter, r *http.Request) {},
	}}
	Inject(f, l)
	r := chi.NewRouter()
	r.Use(l.Check)
	f.RT().Bind(r, "")

	do := func(method, path, body string) int {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
		return rec.Code
	}
	if code := do(http.MethodPost, "/home", ""); code != http.StatusOK {
		t.Errorf("unlocked: expected 200 got %d", code)
	}
	if code := do(http.MethodPost, "/lock", `{"bool":true}`); code != http.StatusOK {
		t.Fatalf("lock: expected 200 got %d", code)
	}
	if !l.Locked() {
		t.Fatal("POST /lock true did not lock")
	}
	if code := do(http.MethodPost, "/home", ""); code != http.StatusLocked {
		t.Errorf("locked: expected 423 got %d", code)
	}
	if code := do(http.MethodGet, "/lock", ""); code != http.StatusOK {
		t.Errorf("lock state is never protected, got %d", code)
	}
	if code := do(http.MethodPost, "/lock", "nope"); code != http.StatusBadRequest {
		t.Errorf("bad body: expected 400 got %d", code)
	}
	l.Unlock()
	if code := do(http.MethodPost, "/home", ""); code != http.StatusOK {
		t.Errorf("after unlock: expected 200 got %d", code)
	}
}
