package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestCreateAndLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	created, err := store.Create("cli", "openai", "gpt-5-mini")
	require.NoError(t, err)
	assert.NotEmpty(t, created.SessionID)

	loaded, err := store.Load("cli", created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, created.SessionID, loaded.SessionID)
	assert.Equal(t, "cli", loaded.ClientID)
	assert.Equal(t, "openai", loaded.Provider)
	assert.Equal(t, "gpt-5-mini", loaded.Model)
	assert.NotNil(t, loaded.Conversation)
}

func TestLoadMissingSession(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Load("cli", "session_nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadCorruptRecordTreatedAsAbsent(t *testing.T) {
	store := newTestStore(t)
	path, err := store.recordPath("cli", "session_bad")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("{truncated"), 0644))

	_, err = store.Load("cli", "session_bad")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordPathSanitization(t *testing.T) {
	store := newTestStore(t)

	// Separators in identifiers are flattened, never honored as paths.
	path, err := store.recordPath("a:b", "session_1")
	require.NoError(t, err)
	assert.Equal(t, "a-b_session_1.json", filepath.Base(path))

	path, err = store.recordPath("cli", "../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(path), store.dir)

	_, err = store.recordPath("", "")
	assert.Error(t, err)
}

func TestGetOrCreateResolution(t *testing.T) {
	store := newTestStore(t)

	// No sessions yet: a fresh one is created.
	first, err := store.GetOrCreate("cli", "", false, "openai", "gpt-5-mini")
	require.NoError(t, err)

	// Touch it so it is the most recent.
	require.NoError(t, store.AppendExchange(first, "hi", "hello", 1))

	// Empty id resumes the most recently updated session.
	resumed, err := store.GetOrCreate("cli", "", false, "openai", "gpt-5-mini")
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, resumed.SessionID)

	// createNew forces a fresh session.
	fresh, err := store.GetOrCreate("cli", "", true, "openai", "gpt-5-mini")
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, fresh.SessionID)

	// A given id that does not exist is created keeping the id.
	named, err := store.GetOrCreate("cli", "session_custom", false, "openai", "gpt-5-mini")
	require.NoError(t, err)
	assert.Equal(t, "session_custom", named.SessionID)

	// createNew with a taken id must not reset the stored conversation.
	require.NoError(t, store.AppendExchange(named, "keep", "me", 1))
	replacement, err := store.GetOrCreate("cli", "session_custom", true, "openai", "gpt-5-mini")
	require.NoError(t, err)
	assert.NotEqual(t, "session_custom", replacement.SessionID)
	kept, err := store.Load("cli", "session_custom")
	require.NoError(t, err)
	assert.Len(t, kept.Conversation, 2)

	// Other clients never see this client's sessions.
	other, err := store.GetOrCreate("editor", "", false, "openai", "gpt-5-mini")
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, other.SessionID)
}

func TestAppendExchangeAccumulates(t *testing.T) {
	store := newTestStore(t)
	sess, err := store.Create("cli", "openai", "gpt-5-mini")
	require.NoError(t, err)

	require.NoError(t, store.AppendExchange(sess, "one", "1", 10))
	require.NoError(t, store.AppendExchange(sess, "two", "2", 5))

	loaded, err := store.Load("cli", sess.SessionID)
	require.NoError(t, err)
	require.Len(t, loaded.Conversation, 4)
	assert.Equal(t, "one", loaded.Conversation[0].Content)
	assert.Equal(t, "2", loaded.Conversation[3].Content)
	assert.Equal(t, 15, loaded.Usage.TotalTokens)
	assert.Equal(t, 2, loaded.Usage.TotalRequests)
	assert.Equal(t, 4, loaded.Usage.MessageCount)
}

func TestAppendExchangeConcurrent(t *testing.T) {
	store := newTestStore(t)
	sess, err := store.Create("cli", "openai", "gpt-5-mini")
	require.NoError(t, err)

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Each goroutine works from its own copy of the record.
			own := *sess
			_ = store.AppendExchange(&own, fmt.Sprintf("u%d", i), fmt.Sprintf("a%d", i), 1)
		}(i)
	}
	wg.Wait()

	loaded, err := store.Load("cli", sess.SessionID)
	require.NoError(t, err)
	assert.Len(t, loaded.Conversation, writers*2, "no exchange may be lost")
	assert.Equal(t, writers, loaded.Usage.TotalRequests)
	assert.Equal(t, writers, loaded.Usage.TotalTokens)
}

func TestContextTrimming(t *testing.T) {
	sess := &Session{}
	for i := 0; i < 25; i++ {
		sess.Conversation = append(sess.Conversation,
			Message{Role: "user", Content: fmt.Sprintf("u%d", i)},
			Message{Role: "assistant", Content: fmt.Sprintf("a%d", i)},
		)
	}

	window := sess.Context(20)
	require.Len(t, window, 20)
	assert.Equal(t, "u15", window[0].Content, "window keeps the most recent messages")
	assert.Equal(t, "a24", window[19].Content)

	// Mutating the window must not touch the stored conversation.
	window[0].Content = "mutated"
	assert.Equal(t, "u15", sess.Conversation[30].Content)

	assert.Nil(t, sess.Context(0))
	assert.Len(t, sess.Context(100), 50)
}

func TestListRecentOrderAndFilter(t *testing.T) {
	store := newTestStore(t)

	a, err := store.Create("cli", "openai", "gpt-5-mini")
	require.NoError(t, err)
	b, err := store.Create("cli", "openai", "gpt-5-mini")
	require.NoError(t, err)
	_, err = store.Create("editor", "openai", "gpt-5-mini")
	require.NoError(t, err)

	// Make b unambiguously the most recent.
	b.LastUpdated = time.Now().Add(time.Hour)
	require.NoError(t, store.write(b))
	a.LastUpdated = time.Now().Add(-time.Hour)
	require.NoError(t, store.write(a))

	summaries, err := store.ListRecent("cli", 10)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, b.SessionID, summaries[0].SessionID)

	limited, err := store.ListRecent("cli", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestExpireDoesNotDropConcurrentAppend(t *testing.T) {
	store := newTestStore(t)

	// A session that looks expired but receives an append while the
	// janitor runs must end up either skipped or recreated with the
	// exchange; the exchange itself is never lost.
	for i := 0; i < 50; i++ {
		sess, err := store.Create("cli", "openai", "gpt-5-mini")
		require.NoError(t, err)
		sess.LastUpdated = time.Now().AddDate(0, 0, -40)
		require.NoError(t, store.write(sess))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.AppendExchange(sess, "hi", "hello", 1))
		}()
		go func() {
			defer wg.Done()
			_, err := store.ExpireOlderThan(30)
			assert.NoError(t, err)
		}()
		wg.Wait()

		loaded, err := store.Load("cli", sess.SessionID)
		require.NoError(t, err, "expiry deleted a freshly updated session")
		assert.Len(t, loaded.Conversation, 2)
	}
}

func TestExpireOlderThan(t *testing.T) {
	store := newTestStore(t)

	old, err := store.Create("cli", "openai", "gpt-5-mini")
	require.NoError(t, err)
	fresh, err := store.Create("cli", "openai", "gpt-5-mini")
	require.NoError(t, err)

	// Backdate the old session past the cutoff.
	old.LastUpdated = time.Now().AddDate(0, 0, -40)
	require.NoError(t, store.write(old))

	removed, err := store.ExpireOlderThan(30)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.Load("cli", old.SessionID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Load("cli", fresh.SessionID)
	assert.NoError(t, err)
}
