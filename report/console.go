package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/theckman/yacspin"
)

// Console is a Sink that prints the session log to a terminal, colored by
// severity, with a spinner showing the progress of the current frame set
type Console struct {
	Out io.Writer

	// Spinner enables the progress spinner.  Leave it off when Out is not a
	// terminal.
	Spinner bool

	spin  *yacspin.Spinner
	label string

	notice, warn, bad func(a ...interface{}) string
}

// NewConsole returns a Console writing to out
func NewConsole(out io.Writer, spinner bool) *Console {
	return &Console{
		Out:     out,
		Spinner: spinner,
		notice:  color.New(color.FgGreen).SprintFunc(),
		warn:    color.New(color.FgYellow).SprintFunc(),
		bad:     color.New(color.FgRed, color.Bold).SprintFunc()}
}

// Line formats a log event as it is printed: a timestamp, then two spaces of
// indentation per level, then the text
func Line(e Event) string {
	return e.Time.Format("15:04:05") + " " + strings.Repeat("  ", e.Indent) + e.Text
}

func (c *Console) colorize(l Level, s string) string {
	var f func(a ...interface{}) string
	switch l {
	case Notice:
		f = c.notice
	case Warn:
		f = c.warn
	case Error:
		f = c.bad
	}
	if f == nil {
		return s
	}
	return f(s)
}

// println writes a line with the spinner, if any, out of the way
func (c *Console) println(s string) {
	if c.spin != nil {
		c.spin.Pause()
		defer c.spin.Unpause()
	}
	fmt.Fprintln(c.Out, s)
}

// Handle implements Sink
func (c *Console) Handle(e Event) {
	switch e.Kind {
	case Log:
		c.println(c.colorize(e.Level, Line(e)))
	case ProgressStart:
		c.label = e.Text
		if !c.Spinner {
			return
		}
		spin, err := yacspin.New(yacspin.Config{
			Writer:          c.Out,
			Frequency:       150 * time.Millisecond,
			CharSet:         yacspin.CharSets[14],
			Suffix:          " " + e.Text,
			SuffixAutoColon: true,
			Message:         fmt.Sprintf("%d/%d", e.Value, e.Total),
			StopCharacter:   "done",
			StopColors:      []string{"fgGreen"},
		})
		if err != nil {
			c.println(c.colorize(Warn, "progress display unavailable: "+err.Error()))
			return
		}
		if err := spin.Start(); err != nil {
			return
		}
		c.spin = spin
	case ProgressUpdate:
		if c.spin != nil {
			c.spin.Message(fmt.Sprintf("%d/%d", e.Value, e.Total))
		}
	case ProgressStop:
		if c.spin != nil {
			c.spin.Stop()
			c.spin = nil
		}
	case Ended:
		if c.spin != nil {
			c.spin.StopFail()
			c.spin = nil
		}
	}
}
