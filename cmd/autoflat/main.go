package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/nasa-jpl/autoflat/plan"
	"github.com/nasa-jpl/autoflat/prefs"

	yml "gopkg.in/yaml.v2"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "autoflat.yml"
)

func root() {
	str := `autoflat takes flat field frames through TheSkyX, adjusting the exposure of
each frame until its average brightness lands on a target.

Usage:
	autoflat <command> [plan.yml]

Commands:
	run
	help
	mkconf
	conf
	estimates
	version`
	fmt.Println(str)
}

func help() {
	str := `autoflat is configured by a YAML plan, autoflat.yml in the working directory
unless another path is given after the command.  For a primer on YAML, see
https://yaml.org/start.html

"autoflat mkconf" writes the defaults to the plan file as a starting point.
Any key may be overridden from the environment with an AUTOFLAT_ prefix and
underscores for nesting, e.g. AUTOFLAT_TARGET=30000 or AUTOFLAT_DITHER_ENABLED=true.

A plan holds a list of sets, each a filter (by name and one-based wheel slot),
a binning and a number of frames.  The sets are taken in order.  The exposure
of every set starts from the last good value remembered in the estimates file,
so a second run under the same panel is faster than the first.

While running, the HTTP server at "http" reports progress on /status,
cancels the session on POST /cancel and serves Prometheus metrics on /metrics.
The camera and mount routes under /camera and /mount are locked for the
duration of a session.

With "simulate: true" the ADU of each frame is drawn from a model of a real
camera instead of being measured; pair it with the skyxsim command for a run
without any hardware.`
	fmt.Println(str)
}

func load(path string) plan.Plan {
	p, err := plan.Load(path)
	if err != nil {
		log.Fatal(err)
	}
	return p
}

func mkconf(path string) {
	p := load(path)
	f, err := os.Create(path)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(p)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf(path string) {
	p := load(path)
	err := yml.NewEncoder(os.Stdout).Encode(p)
	if err != nil {
		log.Fatal(err)
	}
}

func printestimates(path string) {
	p := load(path)
	f, err := prefs.Open(p.Estimates)
	if err != nil {
		log.Fatal(err)
	}
	all := f.All()
	lines := make([]string, 0, len(all))
	for k, v := range all {
		lines = append(lines, fmt.Sprintf("%-16s %.3fs", k.String(), v))
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Println(l)
	}
}

func pversion() {
	fmt.Printf("autoflat version %v\n", Version)
}

func run(path string) {
	p := load(path)
	if err := p.Validate(); err != nil {
		log.Fatal(err)
	}
	res, err := runSession(context.Background(), p, os.Stdout)
	summarize(res)
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	path := ConfigFileName
	if len(args) > 2 {
		path = args[2]
	}
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf(path)
		return
	case "conf":
		printconf(path)
		return
	case "estimates":
		printestimates(path)
		return
	case "run":
		run(path)
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}
