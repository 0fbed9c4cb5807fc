package generichttp

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serve(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	return rec
}

func TestGetters(t *testing.T) {
	rec := serve(GetFloat(func() (float64, error) { return 1.5, nil }), "")
	if got := strings.TrimSpace(rec.Body.String()); got != `{"f64":1.5}` {
		t.Errorf("GetFloat: %s", got)
	}
	rec = serve(GetBool(func() (bool, error) { return true, nil }), "")
	if got := strings.TrimSpace(rec.Body.String()); got != `{"bool":true}` {
		t.Errorf("GetBool: %s", got)
	}
	rec = serve(GetBool(func() (bool, error) { return false, errors.New("offline") }), "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("GetBool error: expected 500 got %d", rec.Code)
	}
}

func TestSetters(t *testing.T) {
	var f float64
	var i int
	var b bool
	cases := []struct {
		name string
		h    http.HandlerFunc
		body string
		code int
	}{
		{"float", SetFloat(func(v float64) error { f = v; return nil }), `{"f64":-10}`, http.StatusOK},
		{"int", SetInt(func(v int) error { i = v; return nil }), `{"int":3}`, http.StatusOK},
		{"bool", SetBool(func(v bool) error { b = v; return nil }), `{"bool":true}`, http.StatusOK},
		{"bad json", SetInt(func(int) error { return nil }), `{`, http.StatusBadRequest},
		{"failure", SetInt(func(int) error { return errors.New("no") }), `{"int":1}`, http.StatusInternalServerError},
		{"do", Do(func() error { return nil }), "", http.StatusOK},
		{"do failure", Do(func() error { return errors.New("no") }), "", http.StatusInternalServerError},
	}
	for _, c := range cases {
		if code := serve(c.h, c.body).Code; code != c.code {
			t.Errorf("%s: expected %d got %d", c.name, c.code, code)
		}
	}
	if f != -10 || i != 3 || !b {
		t.Errorf("values not passed through: %v %v %v", f, i, b)
	}
}
