package consul

import (
	"path"

	"github.com/hashicorp/consul/api"
	"github.com/ichigozero/gtdkit/tasker/storage"
)

// KV is the subset of the Consul KV API the store uses. *api.KV satisfies it.
type KV interface {
	Get(key string, q *api.QueryOptions) (*api.KVPair, *api.QueryMeta, error)
	Put(p *api.KVPair, q *api.WriteOptions) (*api.WriteMeta, error)
}

type store struct {
	kv     KV
	prefix string
}

// NewStore keeps every document under <prefix>/<kind>.
func NewStore(kv KV, prefix string) storage.Store {
	return &store{kv: kv, prefix: prefix}
}

func NewClientStore(c *api.Client, prefix string) storage.Store {
	return NewStore(c.KV(), prefix)
}

func (s *store) key(kind storage.Kind) string {
	return path.Join(s.prefix, string(kind))
}

func (s *store) Load(kind storage.Kind) ([]byte, error) {
	kv, _, err := s.kv.Get(s.key(kind), nil)
	if err != nil {
		return nil, err
	}
	if kv == nil {
		return nil, nil
	}
	if kv.Value == nil {
		return []byte{}, nil
	}
	return kv.Value, nil
}

// Save relies on Consul applying a single KV put atomically.
func (s *store) Save(kind storage.Kind, data []byte) error {
	p := &api.KVPair{Key: s.key(kind), Value: data}
	_, err := s.kv.Put(p, nil)

	return err
}
