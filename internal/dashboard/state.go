// Package dashboard holds the client-side view state and the controller that
// drives fetch, classify, filter and persistence against the server API.
package dashboard

import (
	"mailsorter/internal/model"
)

// Phase is the single-flight activity indicator. Fetching and classifying
// exclude each other.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseFetching
	PhaseClassifying
)

func (p Phase) String() string {
	switch p {
	case PhaseFetching:
		return "fetching"
	case PhaseClassifying:
		return "classifying"
	default:
		return "idle"
	}
}

const FilterAll = "All"

const (
	msgNotAuthenticated = "Not authenticated"
	msgFetchFirst       = "Please fetch emails first"
)

// State is an immutable snapshot. Transitions return a new value and never
// share the Emails backing array with the receiver.
type State struct {
	Emails      []model.Email
	Filter      string
	Phase       Phase
	APIKey      string
	Error       string
	NeedsAPIKey bool
}

func NewState() State {
	return State{Filter: FilterAll, Emails: []model.Email{}}
}

// Rehydrate restores persisted data into a fresh idle state.
func Rehydrate(emails []model.Email, apiKey string) State {
	s := NewState()
	if emails != nil {
		s.Emails = cloneEmails(emails)
	}
	s.APIKey = apiKey
	return s
}

func (s State) Busy() bool {
	return s.Phase != PhaseIdle
}

// BeginFetch enters fetching. It reports false, leaving the phase unchanged,
// when busy or when there is no session credential.
func (s State) BeginFetch(credential string) (State, bool) {
	if s.Busy() {
		return s, false
	}
	if credential == "" {
		s.Error = msgNotAuthenticated
		return s, false
	}
	s.Phase = PhaseFetching
	s.Error = ""
	return s, true
}

// FinishFetch returns to idle. On success the whole list is replaced; on
// failure the previous list is kept and the error is surfaced.
func (s State) FinishFetch(emails []model.Email, err error) State {
	s.Phase = PhaseIdle
	if err != nil {
		s.Error = err.Error()
		return s
	}
	s.Emails = cloneEmails(emails)
	s.Error = ""
	return s
}

// BeginClassify enters classifying. The key is checked before the list: without
// a key it asks for one, even when there are no emails yet. Without emails it
// sets an error. Neither changes the phase.
func (s State) BeginClassify() (State, bool) {
	if s.Busy() {
		return s, false
	}
	if s.APIKey == "" {
		s.NeedsAPIKey = true
		return s, false
	}
	if len(s.Emails) == 0 {
		s.Error = msgFetchFirst
		return s, false
	}
	s.Phase = PhaseClassifying
	s.Error = ""
	return s, true
}

// FinishClassify returns to idle, keeping the current filter.
func (s State) FinishClassify(emails []model.Email, err error) State {
	s.Phase = PhaseIdle
	if err != nil {
		s.Error = err.Error()
		return s
	}
	s.Emails = cloneEmails(emails)
	s.Error = ""
	return s
}

func (s State) SetAPIKey(key string) State {
	s.APIKey = key
	if key != "" {
		s.NeedsAPIKey = false
	}
	return s
}

// SelectFilter accepts "All" or one of the category names.
func (s State) SelectFilter(filter string) (State, bool) {
	if filter != FilterAll {
		if _, ok := model.ParseCategory(filter); !ok {
			return s, false
		}
	}
	s.Filter = filter
	return s, true
}

// Visible returns the emails matching the current filter.
func (s State) Visible() []model.Email {
	if s.Filter == FilterAll || s.Filter == "" {
		return cloneEmails(s.Emails)
	}
	out := make([]model.Email, 0, len(s.Emails))
	for _, e := range s.Emails {
		if string(e.Category) == s.Filter {
			out = append(out, e)
		}
	}
	return out
}

// Counts returns per-filter totals, including "All" and every category.
func (s State) Counts() map[string]int {
	counts := map[string]int{FilterAll: len(s.Emails)}
	for _, c := range model.Categories() {
		counts[c.String()] = 0
	}
	for _, e := range s.Emails {
		if e.IsClassified {
			counts[e.Category.String()]++
		}
	}
	return counts
}

func cloneEmails(in []model.Email) []model.Email {
	out := make([]model.Email, len(in))
	copy(out, in)
	return out
}
