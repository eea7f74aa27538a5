package session

import (
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(timeout time.Duration) (*Store, *time.Time) {
	current := time.Unix(1700000000, 0)
	store := NewStore(timeout)
	store.now = func() time.Time { return current }
	return store, &current
}

func TestGetOrCreateNewSession(t *testing.T) {
	store, _ := newTestStore(time.Hour)

	history := store.GetOrCreate("abc")
	assert.Empty(t, history)
	assert.Equal(t, 1, store.Len())
}

func TestCommitRoundTrip(t *testing.T) {
	store, _ := newTestStore(time.Hour)

	store.GetOrCreate("abc")
	store.Commit("abc", []*ai.Message{
		ai.NewUserTextMessage("how many employees are there?"),
		ai.NewModelTextMessage("There are 5 employees."),
	})

	history := store.GetOrCreate("abc")
	require.Len(t, history, 2)
	assert.Equal(t, ai.RoleUser, history[0].Role)
	assert.Equal(t, ai.RoleModel, history[1].Role)
}

func TestExpiredSessionStartsOver(t *testing.T) {
	store, clock := newTestStore(time.Hour)

	store.GetOrCreate("abc")
	store.Commit("abc", []*ai.Message{ai.NewUserTextMessage("hello")})

	*clock = clock.Add(time.Hour + time.Second)

	history := store.GetOrCreate("abc")
	assert.Empty(t, history, "expired session should restart with empty history")
	assert.Equal(t, 1, store.Len())
}

func TestSessionAliveExactlyAtTimeout(t *testing.T) {
	store, clock := newTestStore(time.Hour)

	store.GetOrCreate("abc")
	store.Commit("abc", []*ai.Message{ai.NewUserTextMessage("hello")})

	*clock = clock.Add(time.Hour)

	history := store.GetOrCreate("abc")
	assert.Len(t, history, 1, "session idle for exactly the timeout is still live")
}

func TestLookupRefreshesActivity(t *testing.T) {
	store, clock := newTestStore(time.Hour)

	store.GetOrCreate("abc")
	store.Commit("abc", []*ai.Message{ai.NewUserTextMessage("hello")})

	*clock = clock.Add(50 * time.Minute)
	store.GetOrCreate("abc")

	*clock = clock.Add(50 * time.Minute)
	history := store.GetOrCreate("abc")
	assert.Len(t, history, 1, "refreshed session should survive past the original deadline")
}

func TestSweepDropsOnlyExpired(t *testing.T) {
	store, clock := newTestStore(time.Hour)

	store.GetOrCreate("old")
	*clock = clock.Add(30 * time.Minute)
	store.GetOrCreate("young")
	*clock = clock.Add(45 * time.Minute)

	store.GetOrCreate("third")
	assert.Equal(t, 2, store.Len(), "only the session idle past the timeout is swept")
	assert.False(t, store.Delete("old"))
	assert.True(t, store.Delete("young"))
}

func TestCommitAfterDeleteIsNoOp(t *testing.T) {
	store, _ := newTestStore(time.Hour)

	store.GetOrCreate("abc")
	require.True(t, store.Delete("abc"))

	store.Commit("abc", []*ai.Message{ai.NewUserTextMessage("hello")})
	assert.Equal(t, 0, store.Len())

	history := store.GetOrCreate("abc")
	assert.Empty(t, history)
}

func TestDeleteUnknownSession(t *testing.T) {
	store, _ := newTestStore(time.Hour)
	assert.False(t, store.Delete("missing"))
}

func TestHistoryCopyIsolation(t *testing.T) {
	store, _ := newTestStore(time.Hour)

	store.GetOrCreate("abc")
	store.Commit("abc", []*ai.Message{ai.NewUserTextMessage("hello")})

	first := store.GetOrCreate("abc")
	first[0] = ai.NewUserTextMessage("mutated")

	second := store.GetOrCreate("abc")
	require.Len(t, second, 1)
	assert.Equal(t, "hello", second[0].Content[0].Text)
}
