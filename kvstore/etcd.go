package kvstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdStore is a Store of keys under a common Etcd prefix. Keys having a
// TTL are attached to a lease granted for that TTL.
type EtcdStore struct {
	client *clientv3.Client
	prefix string
}

var _ Store = (*EtcdStore)(nil)

// NewEtcdStore returns an EtcdStore which roots its keys at |prefix|.
func NewEtcdStore(client *clientv3.Client, prefix string) *EtcdStore {
	return &EtcdStore{client: client, prefix: prefix}
}

func (s *EtcdStore) Get(ctx context.Context, key string) ([]byte, error) {
	var resp, err = s.client.Get(ctx, s.prefix+key)
	if err != nil {
		return nil, errors.WithMessagef(err, "etcd Get %q", key)
	} else if len(resp.Kvs) == 0 {
		return nil, ErrNotFound
	}
	return resp.Kvs[0].Value, nil
}

func (s *EtcdStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var opts []clientv3.OpOption

	if ttl != 0 {
		var secs = int64((ttl + time.Second - 1) / time.Second)
		var lease, err = s.client.Grant(ctx, secs)
		if err != nil {
			return errors.WithMessagef(err, "etcd Grant(%d)", secs)
		}
		opts = append(opts, clientv3.WithLease(lease.ID))
	}
	var _, err = s.client.Put(ctx, s.prefix+key, string(value), opts...)
	return errors.WithMessagef(err, "etcd Put %q", key)
}

func (s *EtcdStore) Delete(ctx context.Context, key string) error {
	var _, err = s.client.Delete(ctx, s.prefix+key)
	return errors.WithMessagef(err, "etcd Delete %q", key)
}

func (s *EtcdStore) FlushAll(ctx context.Context) error {
	var _, err = s.client.Delete(ctx, s.prefix, clientv3.WithPrefix())
	return errors.WithMessagef(err, "etcd Delete prefix %q", s.prefix)
}
