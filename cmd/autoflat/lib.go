package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nasa-jpl/autoflat/acquire"
	"github.com/nasa-jpl/autoflat/camera"
	"github.com/nasa-jpl/autoflat/motion"
	"github.com/nasa-jpl/autoflat/plan"
	"github.com/nasa-jpl/autoflat/prefs"
	"github.com/nasa-jpl/autoflat/report"
	"github.com/nasa-jpl/autoflat/server/middleware/locker"
	"github.com/nasa-jpl/autoflat/skyx"
	"github.com/nasa-jpl/autoflat/util"
)

// statusTail is the number of log lines kept for /status
const statusTail = 200

// shutdownGrace bounds the wait for open HTTP requests once a session ends
const shutdownGrace = 5 * time.Second

// NewClient builds the TheSkyX client described by a plan
func NewClient(p plan.Plan) *skyx.Client {
	c := skyx.NewClientTimeouts(p.Addr, util.SecsToDuration(p.DialTimeout), util.SecsToDuration(p.ResponseTimeout))
	if p.Rate > 0 {
		c.Limiter = rate.NewLimiter(rate.Limit(p.Rate), 1)
	}
	if p.Simulate {
		c.Simulator = skyx.NewLinearADUModel(time.Now().UnixNano())
	}
	return c
}

// BuildMux makes the HTTP interface of a run.  The camera and mount routes
// are protected by l; the status routes never are.
func BuildMux(c *skyx.Client, st *report.Status, m *report.Metrics, cancel func() bool, frameDir string, l *locker.Locker) chi.Router {
	root := chi.NewRouter()
	root.Use(middleware.Recoverer)
	report.NewHTTPWrapper(st, m, cancel, frameDir).RT().Bind(root, "")

	cam := camera.NewHTTPWrapper(c)
	locker.Inject(cam, l)
	root.Route("/camera", func(r chi.Router) {
		r.Use(l.Check)
		cam.RT().Bind(r, "")
	})

	mount := motion.NewHTTPWrapper(c)
	locker.Inject(mount, l)
	root.Route("/mount", func(r chi.Router) {
		r.Use(l.Check)
		mount.RT().Bind(r, "")
	})
	return root
}

// runSession runs one session of plan p to completion, serving HTTP while it
// goes if the plan has an address for it.  An interrupt cancels the session.
func runSession(ctx context.Context, p plan.Plan, out io.Writer) (acquire.Result, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sets, err := p.FrameSets()
	if err != nil {
		return acquire.Result{}, err
	}
	store, err := prefs.Open(p.Estimates)
	if err != nil {
		return acquire.Result{}, err
	}
	client := NewClient(p)

	status := report.NewStatus(statusTail)
	metrics := report.NewMetrics()
	bus := report.NewBus(report.NewConsole(out, !color.NoColor), status, metrics)
	defer bus.Close()

	sess := acquire.NewSession(client, client, sets, store, acquire.SettingsFromPlan(p), bus)

	g, gctx := errgroup.WithContext(ctx)
	sessCtx, cancelSess := context.WithCancel(gctx)
	defer cancelSess()
	cancel := func() bool {
		if !status.Running() {
			return false
		}
		cancelSess()
		return true
	}

	var srv *http.Server
	l := locker.New()
	if p.HTTP != "" {
		srv = &http.Server{Addr: p.HTTP, Handler: BuildMux(client, status, metrics, cancel, p.SaveDir, l)}
		g.Go(func() error {
			log.Println("now listening for requests at ", p.HTTP)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	var res acquire.Result
	g.Go(func() error {
		l.Lock()
		defer l.Unlock()
		var err error
		res, err = sess.Run(sessCtx)
		if srv != nil {
			sctx, done := context.WithTimeout(context.Background(), shutdownGrace)
			defer done()
			if serr := srv.Shutdown(sctx); serr != nil {
				log.Println("error shutting down HTTP server:", serr)
			}
		}
		return err
	})
	err = g.Wait()
	return res, err
}

// summarize logs what a session achieved
func summarize(res acquire.Result) {
	if res.ID == "" {
		return
	}
	log.Printf("session %s %s", res.ID, res.Outcome)
	for _, s := range res.Sets {
		log.Printf("  %s: %d/%d frames, last exposure %.3fs", s.Label, s.Done, s.Wanted, s.Exposure)
	}
	log.Printf("  %d frames saved", len(res.Saved))
}
