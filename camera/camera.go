/*Package camera describes the interfaces a flat-field session needs from a
camera, and an HTTP wrapper for manual control of one.

Imager contains the basics, FilterWheel and Cooler the accessories usually
found alongside it.  Flat is all three, which is what an acquisition needs.
*/
package camera

import (
	"net/http"

	"github.com/nasa-jpl/autoflat/generichttp"
	"github.com/nasa-jpl/autoflat/server"
	"github.com/nasa-jpl/autoflat/skyx"
)

// Imager takes frames and measures them
type Imager interface {
	// ConnectCamera connects to the camera; it is safe to call when connected
	ConnectCamera() error

	// DisconnectCamera disconnects from the camera
	DisconnectCamera() error

	// StartExposure starts a frame.  Synchronous exposures return once the
	// frame is downloaded.
	StartExposure(skyx.Exposure) error

	// IsExposureComplete is true once the last frame has been downloaded
	IsExposureComplete() (bool, error)

	// AverageADU is the mean pixel value of the last frame
	AverageADU() (float64, error)

	// AbortExposure stops the frame in progress
	AbortExposure() error

	// SaveImage saves the last frame as name in dir, or in the autosave
	// folder if dir is empty, and returns where it went
	SaveImage(dir, name string) (string, error)
}

// FilterWheel selects filters by one-based slot
type FilterWheel interface {
	SelectFilter(slot int) error
}

// Cooler controls the sensor temperature
type Cooler interface {
	// SetCooling turns regulation on at celsius, or off to let the sensor
	// warm up
	SetCooling(on bool, celsius float64) error
}

// Flat is a camera with a filter wheel and a cooler
type Flat interface {
	Imager
	FilterWheel
	Cooler
}

// HTTPWrapper wraps a camera with HTTP
type HTTPWrapper struct {
	Flat

	RouteTable server.RouteTable
}

// NewHTTPWrapper returns a new HTTP wrapper with the route table pre-configured
func NewHTTPWrapper(c Flat) HTTPWrapper {
	w := HTTPWrapper{Flat: c}
	w.RouteTable = server.RouteTable{
		{Method: http.MethodPost, Path: "/connect"}:          generichttp.Do(c.ConnectCamera),
		{Method: http.MethodPost, Path: "/disconnect"}:       generichttp.Do(c.DisconnectCamera),
		{Method: http.MethodPost, Path: "/filter"}:           generichttp.SetInt(c.SelectFilter),
		{Method: http.MethodPost, Path: "/abort"}:            generichttp.Do(c.AbortExposure),
		{Method: http.MethodGet, Path: "/exposure-complete"}: generichttp.GetBool(c.IsExposureComplete),
		{Method: http.MethodGet, Path: "/adu"}:               generichttp.GetFloat(c.AverageADU),
		{Method: http.MethodPost, Path: "/cooling/setpoint"}: generichttp.SetFloat(func(f float64) error {
			return c.SetCooling(true, f)
		}),
		{Method: http.MethodPost, Path: "/cooling/off"}: generichttp.Do(func() error {
			return c.SetCooling(false, 0)
		}),
	}
	return w
}

// RT satisfies the HTTPer interface
func (h HTTPWrapper) RT() server.RouteTable {
	return h.RouteTable
}
