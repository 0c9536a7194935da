package consul

import (
	"errors"
	"testing"

	"github.com/hashicorp/consul/api"
	"github.com/ichigozero/gtdkit/tasker/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKV struct {
	pairs  map[string][]byte
	putErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{pairs: map[string][]byte{}}
}

func (f *fakeKV) Get(key string, _ *api.QueryOptions) (*api.KVPair, *api.QueryMeta, error) {
	v, ok := f.pairs[key]
	if !ok {
		return nil, &api.QueryMeta{}, nil
	}
	return &api.KVPair{Key: key, Value: v}, &api.QueryMeta{}, nil
}

func (f *fakeKV) Put(p *api.KVPair, _ *api.WriteOptions) (*api.WriteMeta, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.pairs[p.Key] = p.Value
	return &api.WriteMeta{}, nil
}

func TestStore_KeysArePrefixed(t *testing.T) {
	kv := newFakeKV()
	s := NewStore(kv, "tasker")

	require.NoError(t, s.Save(storage.KindUsers, []byte(`{}`)))
	_, ok := kv.pairs["tasker/users"]
	assert.True(t, ok)
}

func TestStore_LoadMissing(t *testing.T) {
	s := NewStore(newFakeKV(), "tasker")

	data, err := s.Load(storage.KindTasks)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestStore_LoadEmptyValue(t *testing.T) {
	kv := newFakeKV()
	kv.pairs["tasker/tasks"] = nil
	s := NewStore(kv, "tasker")

	data, err := s.Load(storage.KindTasks)
	require.NoError(t, err)
	assert.NotNil(t, data)
	assert.Empty(t, data)
}

func TestStore_PutFailureSurfaces(t *testing.T) {
	kv := newFakeKV()
	s := NewStore(kv, "tasker")
	require.NoError(t, s.Save(storage.KindTasks, []byte(`{"alice":[]}`)))

	kv.putErr = errors.New("consul unavailable")
	err := storage.SaveJSON(s, storage.KindTasks, map[string]interface{}{})
	assert.ErrorIs(t, err, storage.ErrStorageFailure)

	data, err := s.Load(storage.KindTasks)
	require.NoError(t, err)
	assert.JSONEq(t, `{"alice":[]}`, string(data))
}
