package skyx

import "fmt"

// Home homes the mount and returns when it is done
func (c *Client) Home() error {
	return c.sendIgnoreReply("sky6RASCOMTele.Connect();\nsky6RASCOMTele.Asynchronous=false;\nsky6RASCOMTele.FindHome();\nvar Out;\nOut=0;\n")
}

// Park parks the mount and returns when it is done
func (c *Client) Park() error {
	return c.sendIgnoreReply("sky6RASCOMTele.Connect();\nsky6RASCOMTele.Asynchronous=false;\nsky6RASCOMTele.Park();\nvar Out;\nOut=0;\n")
}

// SlewAltAz slews the mount to an altitude and azimuth in degrees.  If async,
// the call returns as soon as the slew has started; poll IsSlewComplete.
// Slewing turns tracking back on.
func (c *Client) SlewAltAz(alt, az float64, async bool) error {
	body := fmt.Sprintf("sky6RASCOMTele.Connect();\nsky6RASCOMTele.Asynchronous=%s;\nsky6RASCOMTele.SlewToAzAlt(%s,%s,'');\nvar Out;\nOut=0;\n",
		jsBool(async), jsNum(az), jsNum(alt))
	return c.sendIgnoreReply(body)
}

// IsSlewComplete returns true when the mount is not slewing
func (c *Client) IsSlewComplete() (bool, error) {
	return c.sendBoolReply("var Out;\nOut=sky6RASCOMTele.IsSlewComplete;\n")
}

// AbortSlew stops any mount motion in progress
func (c *Client) AbortSlew() error {
	return c.sendIgnoreReply("sky6RASCOMTele.Abort();\nvar Out;\nOut=0;\n")
}

// Tracking returns true if the mount is tracking at the sidereal rate
func (c *Client) Tracking() (bool, error) {
	return c.sendBoolReply("var Out;\nOut=sky6RASCOMTele.IsTracking;\n")
}

// SetTracking turns sidereal tracking on or off
func (c *Client) SetTracking(on bool) error {
	body := fmt.Sprintf("sky6RASCOMTele.SetTracking(%s,true,0,0);\nvar Out;\nOut=0;\n", jsBool(on))
	return c.sendIgnoreReply(body)
}

// AltAz returns the altitude and azimuth the mount is pointed at, in degrees
func (c *Client) AltAz() (alt, az float64, err error) {
	return c.sendPairReply("sky6RASCOMTele.GetAzAlt();\nvar Out;\nOut=sky6RASCOMTele.dAlt+'/'+sky6RASCOMTele.dAz;\n")
}
