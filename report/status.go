package report

import "sync"

// SetStatus is the progress of one frame set
type SetStatus struct {
	Label  string `json:"label"`
	Done   int    `json:"done"`
	Wanted int    `json:"wanted"`
}

// Snapshot is the state of the most recent session at one instant
type Snapshot struct {
	Session      string      `json:"session"`
	Running      bool        `json:"running"`
	State        string      `json:"state"`
	Current      int         `json:"current"`
	Sets         []SetStatus `json:"sets"`
	LastExposure float64     `json:"lastExposure"`
	LastADU      float64     `json:"lastADU"`
	Rejections   int         `json:"rejections"`
	Outcome      string      `json:"outcome,omitempty"`
	Error        string      `json:"error,omitempty"`
	Log          []string    `json:"log"`
}

// Status is a Sink which keeps a Snapshot that may be read from any goroutine
type Status struct {
	// Tail is the number of log lines kept
	Tail int

	mu   sync.RWMutex
	snap Snapshot
}

// NewStatus returns a Status keeping the last tail log lines
func NewStatus(tail int) *Status {
	return &Status{Tail: tail, snap: Snapshot{State: "idle", Current: -1}}
}

// Handle implements Sink
func (s *Status) Handle(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch e.Kind {
	case Began:
		s.snap = Snapshot{Session: e.Session, Running: true, State: s.snap.State, Current: -1}
		for _, si := range e.Sets {
			s.snap.Sets = append(s.snap.Sets, SetStatus{Label: si.Label, Wanted: si.Wanted})
		}
	case Log:
		s.snap.Log = append(s.snap.Log, Line(e))
		if s.Tail > 0 && len(s.snap.Log) > s.Tail {
			s.snap.Log = s.snap.Log[len(s.snap.Log)-s.Tail:]
		}
	case StateChange:
		s.snap.State = e.Text
	case Highlight:
		s.snap.Current = e.Set
	case ProgressStart, ProgressUpdate:
		if e.Set >= 0 && e.Set < len(s.snap.Sets) {
			s.snap.Sets[e.Set].Done = e.Value
			s.snap.Sets[e.Set].Wanted = e.Total
		}
	case Frame:
		s.snap.LastExposure = e.Exposure
		s.snap.LastADU = e.ADU
		if e.Accepted {
			s.snap.Rejections = 0
		} else {
			s.snap.Rejections++
		}
	case Ended:
		s.snap.Running = false
		s.snap.Outcome = e.Text
		s.snap.Current = -1
		if e.Err != nil {
			s.snap.Error = e.Err.Error()
		}
	}
}

// Snapshot returns a copy of the current state
func (s *Status) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snap
	out.Sets = append([]SetStatus(nil), s.snap.Sets...)
	out.Log = append([]string(nil), s.snap.Log...)
	return out
}

// Running reports if a session is in progress
func (s *Status) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Running
}
