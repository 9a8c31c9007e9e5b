package intent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker() (*Tracker, *time.Time) {
	tr := NewTracker(nil)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tr.nowFn = func() time.Time { return now }
	return tr, &now
}

func TestTrackerRecheckThresholds(t *testing.T) {
	tr, now := newTestTracker()
	const conv = "conv-1"

	tr.OnMessage(conv)
	assert.False(t, tr.ShouldRecheck(conv))

	for i := 0; i < 4; i++ {
		tr.OnMessage(conv)
	}
	assert.True(t, tr.ShouldRecheck(conv), "5 messages trigger a recheck")

	tr.Recheck(conv, []Message{userMsg("hello")})
	assert.False(t, tr.ShouldRecheck(conv))

	*now = now.Add(181 * time.Second)
	assert.True(t, tr.ShouldRecheck(conv), "elapsed time triggers a recheck")
}

func TestTrackerAdoptsIntentWhenUnknown(t *testing.T) {
	tr, _ := newTestTracker()
	const conv = "conv-1"

	messages := []Message{
		userMsg("let's play a fun game"),
		userMsg("wanna play again"),
	}
	redirect := tr.Recheck(conv, messages)
	assert.Nil(t, redirect)

	state := tr.State(conv)
	assert.Equal(t, IntentPlay, state.CurrentIntent)
	assert.Greater(t, state.Confidence, 0.0)
	assert.Zero(t, state.MessagesSinceCheck)
}

func TestTrackerDriftDetection(t *testing.T) {
	tr, _ := newTestTracker()
	const conv = "conv-1"

	playMessages := []Message{
		userMsg("let's play a game"),
		{Content: "Sure! What should we play?"},
		userMsg("this game is fun"),
		{Content: "I'm glad you're having fun!"},
	}
	tr.Recheck(conv, playMessages)
	require.Equal(t, IntentPlay, tr.State(conv).CurrentIntent)

	// Assistant turns push the early play signal out of the trailing
	// window, so the recent window reads as comfort.
	all := append(playMessages,
		Message{Content: "Want another round?"},
		userMsg("i feel sad and scared now"),
		userMsg("i am worried and upset"),
	)
	redirect := tr.Recheck(conv, all)
	require.NotNil(t, redirect)
	assert.Equal(t, IntentPlay, redirect.From)
	assert.Equal(t, IntentComfort, redirect.To)
	assert.Equal(t, "Is everything okay? I'm here if you need to talk.", redirect.Suggestion)
	assert.True(t, tr.State(conv).DriftDetected)
}

func TestTrackerUnknownNeverTriggersDrift(t *testing.T) {
	tr, _ := newTestTracker()
	const conv = "conv-1"

	tr.Recheck(conv, []Message{userMsg("let's play a fun game")})
	require.Equal(t, IntentPlay, tr.State(conv).CurrentIntent)

	// Low-signal trailing messages must not count as a new purpose.
	redirect := tr.Recheck(conv, []Message{
		userMsg("ok"), userMsg("yes"), userMsg("hm"),
		userMsg("sure"), userMsg("ok"),
	})
	assert.Nil(t, redirect)
	assert.False(t, tr.State(conv).DriftDetected)
	assert.Equal(t, IntentPlay, tr.State(conv).CurrentIntent)
}

func TestTrackerAcceptRedirection(t *testing.T) {
	tr, _ := newTestTracker()
	const conv = "conv-1"

	tr.Recheck(conv, []Message{userMsg("let's play a game, so fun")})
	redirect := tr.Recheck(conv, []Message{
		userMsg("i feel sad and scared"),
		userMsg("i am worried and lonely"),
	})
	require.NotNil(t, redirect)

	tr.AcceptRedirection(conv)
	state := tr.State(conv)
	assert.Equal(t, IntentComfort, state.CurrentIntent)
	assert.False(t, state.DriftDetected)
}

func TestTrackerDismissRedirectionKeepsDrift(t *testing.T) {
	tr, _ := newTestTracker()
	const conv = "conv-1"

	tr.Recheck(conv, []Message{userMsg("let's play a game, so fun")})
	redirect := tr.Recheck(conv, []Message{
		userMsg("i feel sad and scared"),
		userMsg("i am worried and lonely"),
	})
	require.NotNil(t, redirect)

	tr.DismissRedirection(conv)
	state := tr.State(conv)
	assert.Equal(t, IntentPlay, state.CurrentIntent)
	assert.True(t, state.DriftDetected)
	assert.True(t, tr.ShouldRecheck(conv), "pending drift keeps the session due for recheck")
}

func TestTrackerEndSession(t *testing.T) {
	tr, _ := newTestTracker()
	const conv = "conv-1"

	tr.Recheck(conv, []Message{userMsg("let's play a fun game")})
	require.Equal(t, IntentPlay, tr.State(conv).CurrentIntent)

	tr.EndSession(conv)
	assert.Equal(t, IntentUnknown, tr.State(conv).CurrentIntent)
}
