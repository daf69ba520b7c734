package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/copilot/pkg/types"
)

func strPtr(s string) *string { return &s }

// storeContract runs the behaviour every backend must share.
func storeContract(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("sessions", func(t *testing.T) {
		s := open(t)
		first := &types.Session{ID: "s1", WorkspaceID: "ws", DocID: strPtr("doc"), OwnerID: "u1", PromptName: "chat", Time: types.SessionTime{Created: 10}}
		second := &types.Session{ID: "s2", WorkspaceID: "ws", OwnerID: "u2", PromptName: "chat", Model: "gpt", Time: types.SessionTime{Created: 20}}
		other := &types.Session{ID: "s3", WorkspaceID: "other", OwnerID: "u1", PromptName: "chat", Time: types.SessionTime{Created: 5}}
		for _, sess := range []*types.Session{second, first, other} {
			require.NoError(t, s.CreateSession(ctx, sess))
		}
		assert.ErrorIs(t, s.CreateSession(ctx, first), ErrConflict)

		got, err := s.GetSession(ctx, "s1")
		require.NoError(t, err)
		if diff := cmp.Diff(first, got); diff != "" {
			t.Errorf("GetSession mismatch (-want +got):\n%s", diff)
		}

		_, err = s.GetSession(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)

		ids := func(f SessionFilter) []string {
			sessions, err := s.ListSessions(ctx, f)
			require.NoError(t, err)
			out := []string{}
			for _, sess := range sessions {
				out = append(out, sess.ID)
			}
			return out
		}
		assert.Equal(t, []string{"s3", "s1", "s2"}, ids(SessionFilter{}))
		assert.Equal(t, []string{"s1", "s2"}, ids(SessionFilter{WorkspaceID: "ws"}))
		assert.Equal(t, []string{"s1"}, ids(SessionFilter{WorkspaceID: "ws", OwnerID: "u1"}))
		assert.Equal(t, []string{"s1"}, ids(SessionFilter{DocID: strPtr("doc")}))
		assert.Empty(t, ids(SessionFilter{WorkspaceID: "ws", DocID: strPtr("nope")}))
	})

	t.Run("messages", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.CreateSession(ctx, &types.Session{ID: "s1", WorkspaceID: "ws", OwnerID: "u1", PromptName: "chat"}))

		reply := &types.Message{ID: "m2", SessionID: "s1", OwnerID: "u1", Role: types.RoleAssistant, Attachments: []string{"https://example.com/a.png"}, Time: types.MessageTime{Created: 2}}
		question := &types.Message{ID: "m1", SessionID: "s1", OwnerID: "u1", Role: types.RoleUser, Content: "hi", Params: map[string]string{"word": "cat"}, Time: types.MessageTime{Created: 1}}
		require.NoError(t, s.AppendMessage(ctx, reply))
		require.NoError(t, s.AppendMessage(ctx, question))

		dup := *question
		dup.Content = "changed"
		assert.ErrorIs(t, s.AppendMessage(ctx, &dup), ErrConflict)

		got, err := s.GetMessage(ctx, "m1")
		require.NoError(t, err)
		if diff := cmp.Diff(question, got); diff != "" {
			t.Errorf("GetMessage mismatch (-want +got):\n%s", diff)
		}

		_, err = s.GetMessage(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)

		list, err := s.ListMessages(ctx, "s1")
		require.NoError(t, err)
		if diff := cmp.Diff([]*types.Message{question, reply}, list); diff != "" {
			t.Errorf("ListMessages mismatch (-want +got):\n%s", diff)
		}

		empty, err := s.ListMessages(ctx, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})

	t.Run("concurrent appends", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.CreateSession(ctx, &types.Session{ID: "s1", WorkspaceID: "ws", OwnerID: "u1", PromptName: "chat"}))

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				m := &types.Message{ID: fmt.Sprintf("m%02d", i), SessionID: "s1", OwnerID: "u1", Role: types.RoleUser, Content: "x"}
				assert.NoError(t, s.AppendMessage(ctx, m))
			}(i)
		}
		wg.Wait()

		list, err := s.ListMessages(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, list, 20)
		for i, m := range list {
			assert.Equal(t, fmt.Sprintf("m%02d", i), m.ID)
		}
	})
}

func TestFileStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		return NewFileStore(t.TempDir())
	})
}

func TestSQLiteStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "copilot.db"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestSQLiteStore_Memory(t *testing.T) {
	s, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.CreateSession(context.Background(), &types.Session{ID: "s1", WorkspaceID: "ws", OwnerID: "u1", PromptName: "chat"}))
	_, err = s.GetSession(context.Background(), "s1")
	assert.NoError(t, err)
}

// TestPostgresStore runs against a live server named by COPILOT_TEST_DATABASE_URL.
func TestPostgresStore(t *testing.T) {
	url := os.Getenv("COPILOT_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("COPILOT_TEST_DATABASE_URL not set")
	}
	storeContract(t, func(t *testing.T) Store {
		s, err := OpenPostgres(context.Background(), url)
		require.NoError(t, err)
		_, err = s.pool.Exec(context.Background(), "TRUNCATE messages, sessions")
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(ctx, Config{Driver: DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Config{Driver: DriverPostgres})
	assert.Error(t, err)

	_, err = Open(ctx, Config{Driver: "mongo"})
	assert.ErrorContains(t, err, "unknown storage driver")
}
