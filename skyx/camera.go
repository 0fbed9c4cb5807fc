package skyx

import (
	"fmt"
	"strings"
)

// FrameType is the kind of frame the camera takes, by TheSkyX's numbering
type FrameType int

const (
	// Light is an ordinary image
	Light FrameType = 1

	// Bias is a zero length exposure with the shutter closed
	Bias FrameType = 2

	// Dark is an exposure with the shutter closed
	Dark FrameType = 3

	// Flat is an image of a uniformly illuminated target
	Flat FrameType = 4
)

func (f FrameType) String() string {
	switch f {
	case Light:
		return "light"
	case Bias:
		return "bias"
	case Dark:
		return "dark"
	case Flat:
		return "flat"
	default:
		return fmt.Sprintf("frame type %d", int(f))
	}
}

// Exposure describes one exposure to start
type Exposure struct {
	Type    FrameType
	Binning int

	// Seconds is ignored for bias frames
	Seconds float64

	// Async returns as soon as the exposure has started; poll
	// IsExposureComplete to learn when it is done
	Async bool

	// AutoSave has the server save the image to its autosave folder
	AutoSave bool
}

// ConnectCamera connects the server to its camera
func (c *Client) ConnectCamera() error {
	return c.sendIgnoreReply("ccdsoftCamera.Connect();\nvar Out;\nOut=0;\n")
}

// DisconnectCamera disconnects the server from its camera
func (c *Client) DisconnectCamera() error {
	return c.sendIgnoreReply("ccdsoftCamera.Disconnect();\nvar Out;\nOut=0;\n")
}

// StartExposure starts an exposure.  If e.Async is false the call returns when
// the frame has been downloaded.
func (c *Client) StartExposure(e Exposure) error {
	if e.Binning < 1 {
		return fmt.Errorf("binning must be at least 1, got %d", e.Binning)
	}
	secs := e.Seconds
	if e.Type == Bias {
		secs = 0
	}
	var b strings.Builder
	b.WriteString("ccdsoftCamera.Autoguider=false;\n")
	fmt.Fprintf(&b, "ccdsoftCamera.Asynchronous=%s;\n", jsBool(e.Async))
	fmt.Fprintf(&b, "ccdsoftCamera.Frame=%d;\n", int(e.Type))
	b.WriteString("ccdsoftCamera.ImageReduction=0;\n")
	b.WriteString("ccdsoftCamera.ToNewWindow=false;\n")
	fmt.Fprintf(&b, "ccdsoftCamera.AutoSaveOn=%s;\n", jsBool(e.AutoSave))
	fmt.Fprintf(&b, "ccdsoftCamera.BinX=%d;\n", e.Binning)
	fmt.Fprintf(&b, "ccdsoftCamera.BinY=%d;\n", e.Binning)
	fmt.Fprintf(&b, "ccdsoftCamera.ExposureTime=%s;\n", jsNum(secs))
	b.WriteString("var cameraResult=ccdsoftCamera.TakeImage();\n")
	b.WriteString("var Out;\nOut=cameraResult;\n")
	if err := c.sendIgnoreReply(b.String()); err != nil {
		return err
	}
	if c.Simulator != nil {
		c.simMu.Lock()
		c.simLast.seconds = secs
		c.simLast.binning = e.Binning
		c.simMu.Unlock()
	}
	return nil
}

// IsExposureComplete returns true when the camera has no exposure in progress
func (c *Client) IsExposureComplete() (bool, error) {
	return c.sendBoolReply("var Out;\nOut=ccdsoftCamera.IsExposureComplete;\n")
}

// AverageADU returns the mean pixel value of the most recent frame
func (c *Client) AverageADU() (float64, error) {
	if c.Simulator != nil {
		c.simMu.Lock()
		last := c.simLast
		c.simMu.Unlock()
		return c.Simulator.Estimate(last.seconds, last.binning, last.slot), nil
	}
	return c.sendFloatReply("ccdsoftCameraImage.AttachToActive();\nvar Out;\nOut=ccdsoftCameraImage.averagePixelValue();\n")
}

// SelectFilter moves the filter wheel to a one-based slot
func (c *Client) SelectFilter(slot int) error {
	if slot < 1 {
		return fmt.Errorf("filter slot must be at least 1, got %d", slot)
	}
	body := fmt.Sprintf("ccdsoftCamera.filterWheelConnect();\nccdsoftCamera.FilterIndexZeroBased=%d;\nvar Out;\nOut=0;\n", slot-1)
	if err := c.sendIgnoreReply(body); err != nil {
		return err
	}
	if c.Simulator != nil {
		c.simMu.Lock()
		c.simLast.slot = slot
		c.simMu.Unlock()
	}
	return nil
}

// AbortExposure aborts the exposure in progress, if any
func (c *Client) AbortExposure() error {
	return c.sendIgnoreReply("ccdsoftCamera.Abort();\nvar Out;\nOut=0;\n")
}

// SaveImage saves the most recent frame as name in dir and returns the path
// the server wrote.  An empty dir saves to the server's autosave folder.
func (c *Client) SaveImage(dir, name string) (string, error) {
	var b strings.Builder
	b.WriteString("ccdsoftCameraImage.AttachToActive();\n")
	if dir == "" {
		fmt.Fprintf(&b, "ccdsoftCameraImage.Path=ccdsoftCamera.AutoSavePath+'/'+%s;\n", jsString(name))
	} else {
		fmt.Fprintf(&b, "ccdsoftCameraImage.Path=%s;\n", jsString(strings.TrimRight(dir, `/\`)+"/"+name))
	}
	b.WriteString("var saveResult=ccdsoftCameraImage.Save();\n")
	b.WriteString("var Out;\nOut=ccdsoftCameraImage.Path;\n")
	return c.send(b.String())
}

// SetCooling turns temperature regulation on at the given setpoint, or off.
// Turning it off lets the sensor warm up gradually.
func (c *Client) SetCooling(on bool, celsius float64) error {
	var b strings.Builder
	if on {
		fmt.Fprintf(&b, "ccdsoftCamera.TemperatureSetPoint=%s;\n", jsNum(celsius))
	}
	fmt.Fprintf(&b, "ccdsoftCamera.RegulateTemperature=%s;\n", jsBool(on))
	b.WriteString("ccdsoftCamera.ShutDownTemperatureRegulationOnDisconnect=false;\n")
	b.WriteString("var Out;\nOut=0;\n")
	return c.sendIgnoreReply(b.String())
}
