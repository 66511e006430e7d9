package modes

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State is a step of a task run.
type State string

const (
	StateReceived     State = "received"
	StateCloned       State = "cloned"
	StateIssueFetched State = "issue_fetched"
	StateContextBuilt State = "context_built"
	StateGenerated    State = "generated"
	StateBranched     State = "branched"
	StateCommitted    State = "committed"
	StatePushed       State = "pushed"
	StatePRCreated    State = "pr_created"
	StateAnnotated    State = "annotated"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Transition is a recorded state change.
type Transition struct {
	State State
	At    time.Time
}

// Tracker records the states a single run passes through. Once terminal it
// ignores further transitions.
type Tracker struct {
	mu      sync.Mutex
	log     zerolog.Logger
	history []Transition
	last    State
	err     error

	branch string
	prURL  string
}

// NewTracker starts a tracker in StateReceived.
func NewTracker(log zerolog.Logger) *Tracker {
	return &Tracker{
		log:     log,
		history: []Transition{{State: StateReceived, At: time.Now()}},
		last:    StateReceived,
	}
}

// Enter moves to a non-terminal state.
func (t *Tracker) Enter(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current().Terminal() {
		return
	}
	t.log.Debug().Str("from", string(t.last)).Str("to", string(s)).Msg("state")
	t.history = append(t.history, Transition{State: s, At: time.Now()})
	if !s.Terminal() {
		t.last = s
	}
}

// Done ends the run successfully.
func (t *Tracker) Done() {
	t.Enter(StateDone)
}

// Fail ends the run with err. The last non-terminal state is kept.
func (t *Tracker) Fail(err error) {
	t.mu.Lock()
	if !t.current().Terminal() {
		t.err = err
	}
	t.mu.Unlock()
	t.Enter(StateFailed)
}

// Current returns the most recent state.
func (t *Tracker) Current() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current()
}

// Last returns the last non-terminal state reached, the step a failed run
// stopped after.
func (t *Tracker) Last() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Err returns the error passed to Fail.
func (t *Tracker) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// SetBranch records the branch the run pushes.
func (t *Tracker) SetBranch(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.branch = name
}

// SetPullRequestURL records the pull request the run opened.
func (t *Tracker) SetPullRequestURL(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prURL = url
}

// Branch returns the branch recorded by SetBranch.
func (t *Tracker) Branch() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.branch
}

// PullRequestURL returns the URL recorded by SetPullRequestURL.
func (t *Tracker) PullRequestURL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.prURL
}

// History returns a copy of all transitions.
func (t *Tracker) History() []Transition {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Transition(nil), t.history...)
}

// States returns the visited states in order.
func (t *Tracker) States() []State {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]State, len(t.history))
	for i, tr := range t.history {
		out[i] = tr.State
	}
	return out
}

func (t *Tracker) current() State {
	return t.history[len(t.history)-1].State
}
