// Package motion contains an abstract interface for a telescope mount
// and HTTP wrapper layer.
package motion

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/nasa-jpl/autoflat/generichttp"
	"github.com/nasa-jpl/autoflat/server"
)

// Mount describes a set of methods on an alt-az pointable mount
type Mount interface {
	// SlewAltAz points the mount at alt, az in degrees.  If async, it
	// returns once the slew has started.
	SlewAltAz(alt, az float64, async bool) error

	// IsSlewComplete is true when the mount is not slewing
	IsSlewComplete() (bool, error)

	// AbortSlew stops any motion in progress
	AbortSlew() error

	// Tracking gets if sidereal tracking is on
	Tracking() (bool, error)

	// SetTracking turns sidereal tracking on or off
	SetTracking(bool) error

	// Home homes the mount
	Home() error

	// Park parks the mount
	Park() error

	// AltAz gets the current pointing in degrees
	AltAz() (alt, az float64, err error)
}

// Pointing is an altitude and azimuth in degrees
type Pointing struct {
	Alt float64 `json:"alt"`
	Az  float64 `json:"az"`
}

// HTTPWrapper wraps a mount with HTTP
type HTTPWrapper struct {
	Mount

	RouteTable server.RouteTable
}

// NewHTTPWrapper returns a new HTTP wrapper with the route table pre-configured
func NewHTTPWrapper(m Mount) HTTPWrapper {
	w := HTTPWrapper{Mount: m}
	w.RouteTable = server.RouteTable{
		{Method: http.MethodGet, Path: "/pointing"}:  w.GetPointing,
		{Method: http.MethodPost, Path: "/pointing"}: w.SetPointing,
		{Method: http.MethodGet, Path: "/slewing"}: generichttp.GetBool(func() (bool, error) {
			done, err := m.IsSlewComplete()
			return !done, err
		}),
		{Method: http.MethodPost, Path: "/abort"}:    generichttp.Do(m.AbortSlew),
		{Method: http.MethodGet, Path: "/tracking"}:  generichttp.GetBool(m.Tracking),
		{Method: http.MethodPost, Path: "/tracking"}: generichttp.SetBool(m.SetTracking),
		{Method: http.MethodPost, Path: "/home"}:     generichttp.Do(m.Home),
		{Method: http.MethodPost, Path: "/park"}:     generichttp.Do(m.Park),
	}
	return w
}

// RT satisfies the HTTPer interface
func (h HTTPWrapper) RT() server.RouteTable {
	return h.RouteTable
}

// GetPointing returns the current pointing as JSON {"alt": deg, "az": deg}
func (h HTTPWrapper) GetPointing(w http.ResponseWriter, r *http.Request) {
	alt, az, err := h.Mount.AltAz()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	server.WriteJSON(w, Pointing{Alt: alt, Az: az})
}

// SetPointing slews to the pointing in the body, and takes a wait query
// parameter to return only once the slew is complete
func (h HTTPWrapper) SetPointing(w http.ResponseWriter, r *http.Request) {
	wait := r.URL.Query().Get("wait")
	if wait == "" {
		wait = "false"
	}
	b, err := strconv.ParseBool(wait)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p := Pointing{}
	err = json.NewDecoder(r.Body).Decode(&p)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if p.Alt < -90 || p.Alt > 90 {
		http.Error(w, "altitude must be within [-90, 90]", http.StatusBadRequest)
		return
	}
	err = h.Mount.SlewAltAz(p.Alt, p.Az, !b)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
