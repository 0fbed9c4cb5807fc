// skyxsim serves a simulated TheSkyX scripting server, enough of one for
// autoflat to run a full session without hardware
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/nasa-jpl/autoflat/skyx"
)

func main() {
	var (
		addr    = flag.String("addr", fmt.Sprintf(":%d", skyx.DefaultPort), "address to listen on")
		dir     = flag.String("dir", "", "autosave folder frames are written to")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "seed of the ADU noise")
		noise   = flag.Float64("noise", 50, "standard deviation of the ADU noise")
		instant = flag.Bool("instant", false, "complete exposures and slews immediately")
		slew    = flag.Duration("slew", 2*time.Second, "duration of a slew")
	)
	flag.Parse()

	model := skyx.NewLinearADUModel(*seed)
	model.Noise = *noise
	m := skyx.NewMock(model)
	m.Dir = *dir
	m.Instant = *instant
	m.SlewTime = *slew
	log.Println("simulated TheSkyX listening at", *addr)
	log.Fatal(m.ListenAndServe(*addr))
}
