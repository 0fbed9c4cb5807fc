package skyx

import (
	"io"

	"github.com/astrogo/fitsio"
	"github.com/nasa-jpl/autoflat/util"
)

// FrameMeta describes a frame for its FITS header
type FrameMeta struct {
	Type     FrameType
	Seconds  float64
	Binning  int
	Filter   string
	Alt, Az  float64
	Software string
}

func (m FrameMeta) cards() []fitsio.Card {
	typ := "Flat Field"
	switch m.Type {
	case Light:
		typ = "Light Frame"
	case Bias:
		typ = "Bias Frame"
	case Dark:
		typ = "Dark Frame"
	}
	return []fitsio.Card{
		{Name: "IMAGETYP", Value: typ, Comment: "type of image"},
		{Name: "EXPTIME", Value: m.Seconds, Comment: "exposure time in seconds"},
		{Name: "XBINNING", Value: m.Binning, Comment: "binning factor in width"},
		{Name: "YBINNING", Value: m.Binning, Comment: "binning factor in height"},
		{Name: "FILTER", Value: m.Filter, Comment: "filter used"},
		{Name: "CENTALT", Value: m.Alt, Comment: "altitude of pointing, degrees"},
		{Name: "CENTAZ", Value: m.Az, Comment: "azimuth of pointing, degrees"},
		{Name: "SWCREATE", Value: m.Software, Comment: "software that created the file"},
	}
}

// WriteUniformFits streams a 16-bit FITS image of width x height pixels, all
// equal to adu, to w
func WriteUniformFits(w io.Writer, meta FrameMeta, width, height int, adu float64) error {
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	im := fitsio.NewImage(16, []int{width, height})
	defer im.Close()
	cards := append(meta.cards(), fitsio.Card{Name: "BZERO", Value: 32768}, fitsio.Card{Name: "BSCALE", Value: 1.0})
	if err := im.Header().Append(cards...); err != nil {
		return err
	}
	v := int16(int(util.Clamp(adu, 0, MaxADU)) - 32768)
	ints := make([]int16, width*height)
	for i := range ints {
		ints[i] = v
	}
	if err := im.Write(ints); err != nil {
		return err
	}
	return fits.Write(im)
}
