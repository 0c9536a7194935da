package jsonfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ichigozero/gtdkit/tasker/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LoadMissingDocument(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	data, err := s.Load(storage.KindTasks)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestStore_SaveThenLoad(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Save(storage.KindUsers, []byte(`{"alice":"pw1"}`)))
	require.NoError(t, s.Save(storage.KindUsers, []byte(`{"alice":"pw1","bob":"pw2"}`)))

	data, err := s.Load(storage.KindUsers)
	require.NoError(t, err)
	assert.JSONEq(t, `{"alice":"pw1","bob":"pw2"}`, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "users.json", entries[0].Name())
}

func TestStore_SaveFailureKeepsPreviousDocument(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save(storage.KindTasks, []byte(`{"alice":[]}`)))

	errRename := errors.New("rename failed")
	s.(*store).rename = func(string, string) error { return errRename }

	err = s.Save(storage.KindTasks, []byte(`{"alice":[{"id":"t1"}],"bob":[]}`))
	assert.ErrorIs(t, err, errRename)

	data, err := s.Load(storage.KindTasks)
	require.NoError(t, err)
	assert.JSONEq(t, `{"alice":[]}`, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "tasks.json", entries[0].Name())
}

func TestStore_DirectorySyncFailureAfterRename(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)
	s.(*store).syncDir = func(string) error { return errors.New("fsync failed") }

	require.NoError(t, s.Save(storage.KindUsers, []byte(`{"alice":"pw1"}`)))

	data, err := s.Load(storage.KindUsers)
	require.NoError(t, err)
	assert.JSONEq(t, `{"alice":"pw1"}`, string(data))
}

func TestStore_LoadEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks.json"), nil, 0o644))
	s, err := NewStore(dir)
	require.NoError(t, err)

	data, err := s.Load(storage.KindTasks)
	require.NoError(t, err)
	assert.NotNil(t, data)
	assert.Empty(t, data)

	var doc map[string]interface{}
	assert.ErrorIs(t, storage.LoadJSON(s, storage.KindTasks, &doc), storage.ErrStorageFailure)
}

func TestNewStore_RequiresDirectory(t *testing.T) {
	_, err := NewStore(" ")
	assert.Error(t, err)
}

func TestSaveJSON_WrapsStorageFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "users.json", "x"), 0o755))
	s, err := NewStore(dir)
	require.NoError(t, err)

	err = storage.SaveJSON(s, storage.KindUsers, map[string]string{"alice": "pw1"})
	assert.ErrorIs(t, err, storage.ErrStorageFailure)
}
