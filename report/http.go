package report

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/nasa-jpl/autoflat/server"
)

// HTTPWrapper serves the status of a session and lets it be cancelled
type HTTPWrapper struct {
	Status  *Status
	Metrics *Metrics

	// Cancel stops the running session, returning false if none is running
	Cancel func() bool

	// FrameDir, if not empty, is served under /frames/{name}
	FrameDir string

	RouteTable server.RouteTable
}

// NewHTTPWrapper returns a new HTTP wrapper with the route table pre-configured
func NewHTTPWrapper(st *Status, m *Metrics, cancel func() bool, frameDir string) HTTPWrapper {
	w := HTTPWrapper{Status: st, Metrics: m, Cancel: cancel, FrameDir: frameDir}
	rt := server.RouteTable{
		{Method: http.MethodGet, Path: "/status"}:  w.GetStatus,
		{Method: http.MethodPost, Path: "/cancel"}: w.PostCancel,
	}
	if m != nil {
		rt[server.MethodPath{Method: http.MethodGet, Path: "/metrics"}] = m.Handler().ServeHTTP
	}
	if frameDir != "" {
		rt[server.MethodPath{Method: http.MethodGet, Path: "/frames/{name}"}] = w.GetFrame
	}
	w.RouteTable = rt
	return w
}

// RT satisfies the HTTPer interface
func (h HTTPWrapper) RT() server.RouteTable {
	return h.RouteTable
}

// GetStatus returns the Snapshot as JSON
func (h HTTPWrapper) GetStatus(w http.ResponseWriter, r *http.Request) {
	server.WriteJSON(w, h.Status.Snapshot())
}

// PostCancel cancels the session, responding 409 if there is none running
func (h HTTPWrapper) PostCancel(w http.ResponseWriter, r *http.Request) {
	if h.Cancel == nil || !h.Cancel() {
		http.Error(w, "no session is running", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// GetFrame serves a saved frame
func (h HTTPWrapper) GetFrame(w http.ResponseWriter, r *http.Request) {
	server.ReplyWithFile(w, r, chi.URLParam(r, "name"), h.FrameDir)
}
