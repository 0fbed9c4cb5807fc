package flat

import (
	"fmt"
	"time"
)

// DownloadTimes maps a binning level to the time the camera takes to read out
// and transfer a frame at that binning.  It is filled once per session.
type DownloadTimes map[int]time.Duration

// Get returns the download time for a binning, or an error if it was never
// measured
func (d DownloadTimes) Get(binning int) (time.Duration, error) {
	t, ok := d[binning]
	if !ok {
		return 0, fmt.Errorf("download time for binning %d was not measured", binning)
	}
	return t, nil
}

// Wait is the time to wait after starting an exposure before it can be
// expected to be complete: the download time plus the exposure itself
func (d DownloadTimes) Wait(binning int, exposure time.Duration) (time.Duration, error) {
	t, err := d.Get(binning)
	if err != nil {
		return 0, err
	}
	return t + exposure, nil
}
