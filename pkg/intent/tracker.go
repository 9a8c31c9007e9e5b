package intent

import (
	"sync"
	"time"
)

const (
	// recheckMessageThreshold triggers a recheck after this many messages.
	recheckMessageThreshold = 5

	// recheckInterval triggers a recheck after this much elapsed time.
	recheckInterval = 180 * time.Second

	// driftWindow is how many trailing messages the drift check looks at.
	driftWindow = 5
)

// SessionState is the tracked intent state of one conversation session.
// It lives only for the duration of the session and is never persisted.
type SessionState struct {
	// CurrentIntent is the session's dominant purpose so far.
	CurrentIntent Intent

	// Subject is the learning subject, when CurrentIntent is learn.
	Subject string

	// Confidence is the classifier confidence behind CurrentIntent.
	Confidence float64

	// SessionStart is when the session was first seen.
	SessionStart time.Time

	// LastCheckedAt is when the last recheck ran.
	LastCheckedAt time.Time

	// MessagesSinceCheck counts messages since the last recheck.
	MessagesSinceCheck int

	// DriftDetected is set when the recent window disagrees with
	// CurrentIntent.
	DriftDetected bool

	// pendingIntent is the drift candidate adopted on accept.
	pendingIntent  Intent
	pendingSubject string

	// suggestion is the surfaced redirection nudge, "" when none.
	suggestion string
}

// Redirection is a drift notification surfaced to the host.
type Redirection struct {
	// From is the session's current intent.
	From Intent

	// To is the newly detected intent.
	To Intent

	// Suggestion is a natural-language nudge the companion can voice.
	Suggestion string
}

// Tracker maintains per-conversation intent state and decides when to
// re-classify. Sessions for different conversations may be driven from
// different goroutines.
//
// No Tracker operation fails; the worst case leaves an intent at Unknown.
type Tracker struct {
	mu         sync.Mutex
	classifier *Classifier
	sessions   map[string]*SessionState

	// nowFn is replaceable in tests.
	nowFn func() time.Time
}

// NewTracker creates a tracker backed by the given classifier.
// A nil classifier uses the default keyword sets.
func NewTracker(classifier *Classifier) *Tracker {
	if classifier == nil {
		classifier = NewClassifier(nil)
	}
	return &Tracker{
		classifier: classifier,
		sessions:   make(map[string]*SessionState),
		nowFn:      time.Now,
	}
}

// OnMessage records that a message arrived in the conversation, creating
// session state on first contact.
func (t *Tracker) OnMessage(conversationID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.session(conversationID)
	s.MessagesSinceCheck++
}

// ShouldRecheck reports whether the session is due for re-classification:
// enough messages accumulated, enough time elapsed, or drift is already
// flagged and unresolved.
func (t *Tracker) ShouldRecheck(conversationID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.session(conversationID)
	if s.MessagesSinceCheck >= recheckMessageThreshold {
		return true
	}
	if t.nowFn().Sub(s.LastCheckedAt) >= recheckInterval {
		return true
	}
	return s.DriftDetected
}

// Recheck re-classifies the session against the full message window and
// the trailing window.
//
// When the session already has a definite intent and the trailing window
// classifies to a different definite intent, drift is flagged and a
// redirection suggestion is returned. A trailing-window result of Unknown
// never triggers drift: low signal is not evidence of a new purpose.
// When the session's intent is still Unknown, the full-window result is
// adopted. In all cases the message counter and check time reset.
func (t *Tracker) Recheck(conversationID string, allMessages []Message) *Redirection {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.session(conversationID)
	defer func() {
		s.MessagesSinceCheck = 0
		s.LastCheckedAt = t.nowFn()
	}()

	full := t.classifier.Classify(allMessages)

	recent := allMessages
	if len(recent) > driftWindow {
		recent = recent[len(recent)-driftWindow:]
	}
	late := t.classifier.Classify(recent)

	if s.CurrentIntent == IntentUnknown || s.CurrentIntent == "" {
		s.CurrentIntent = full.Intent
		s.Subject = full.Subject
		s.Confidence = full.Confidence
		return nil
	}

	if late.Intent != IntentUnknown && late.Intent != s.CurrentIntent {
		s.DriftDetected = true
		s.pendingIntent = late.Intent
		s.pendingSubject = late.Subject
		s.suggestion = suggestRedirection(s.CurrentIntent, late.Intent)
		return &Redirection{
			From:       s.CurrentIntent,
			To:         late.Intent,
			Suggestion: s.suggestion,
		}
	}

	s.Confidence = full.Confidence
	return nil
}

// AcceptRedirection adopts the drifted-to intent and clears the drift
// flag. A no-op when no drift is pending.
func (t *Tracker) AcceptRedirection(conversationID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.session(conversationID)
	if !s.DriftDetected {
		return
	}
	s.CurrentIntent = s.pendingIntent
	s.Subject = s.pendingSubject
	s.DriftDetected = false
	s.pendingIntent = ""
	s.pendingSubject = ""
	s.suggestion = ""
}

// DismissRedirection clears the surfaced suggestion only. The current
// intent and the drift flag stay as they are, so the next natural
// recheck can surface the drift again.
func (t *Tracker) DismissRedirection(conversationID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.session(conversationID).suggestion = ""
}

// EndSession discards the session's state.
func (t *Tracker) EndSession(conversationID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, conversationID)
}

// State returns a copy of the session's current state.
func (t *Tracker) State(conversationID string) SessionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return *t.session(conversationID)
}

// session returns the state for a conversation, creating it on demand.
// Callers must hold t.mu.
func (t *Tracker) session(conversationID string) *SessionState {
	s, ok := t.sessions[conversationID]
	if !ok {
		now := t.nowFn()
		s = &SessionState{
			CurrentIntent: IntentUnknown,
			SessionStart:  now,
			LastCheckedAt: now,
		}
		t.sessions[conversationID] = s
	}
	return s
}

// suggestRedirection picks a nudge for the given drift pair, falling back
// to a generic line naming both intents.
func suggestRedirection(from, to Intent) string {
	switch {
	case from == IntentSocializing && to == IntentLearn:
		return "I notice you're curious about learning something new! Want to start a lesson together?"
	case from == IntentPlay && to == IntentLearn:
		return "Sounds like you want to learn! Should we switch to learning mode?"
	case from == IntentLearn && to == IntentPlay:
		return "Ready for a break from learning? Let's have some fun!"
	case from == IntentLearn && to == IntentComfort:
		return "I can tell you might need a little break. Want to just talk for a bit?"
	case from == IntentPlay && to == IntentComfort:
		return "Is everything okay? I'm here if you need to talk."
	case to == IntentStorytelling:
		return "Would you like me to tell you a story?"
	case from == IntentSocializing && to == IntentExplore:
		return "You seem really curious! Want to explore and discover some new things together?"
	default:
		return "Seems like we've moved from " + from.DisplayName() + " to " + to.DisplayName() + ". Want to go with that?"
	}
}
