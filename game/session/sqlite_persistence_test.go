package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/rulegrid/game/engine"
)

func TestSQLitePersistence(t *testing.T) {
	p, err := NewSQLitePersistence(filepath.Join(t.TempDir(), "sessions.db"), staticLevels{}, nil)
	require.NoError(t, err)
	defer p.Close()

	testPersistence(t, p)
}

func TestSQLitePersistence_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sessions.db")

	p, err := NewSQLitePersistence(path, staticLevels{}, nil)
	require.NoError(t, err)
	assert.Equal(t, path, p.Path())

	session, err := NewManager().Create("durable", "test", createTestConfig())
	require.NoError(t, err)
	session.Engine.Move(engine.Right)
	require.NoError(t, p.Save(session))
	require.NoError(t, p.SaveSlot("durable", 1, []byte(`{"id":"x"}`)))
	require.NoError(t, p.Close())

	reopened, err := NewSQLitePersistence(path, staticLevels{}, nil)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load("durable")
	require.NoError(t, err)
	baba := findEntity(loaded.Engine.GetState(), "BABA")
	require.NotNil(t, baba)
	assert.Equal(t, 1, baba.X)

	data, err := reopened.LoadSlot("durable", 1)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"x"}`, string(data))
}
