package lock

import (
	"context"
	"errors"
	"sync"

	"github.com/opencontainers/go-digest"
)

var ErrReleased = errors.New("lock already released")

// KeyedLocker is an in-process Locker with one mutex per digest.
// Entries are dropped once nobody holds or waits for them.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[digest.Digest]*entry
}

type entry struct {
	sem  chan struct{}
	refs int
}

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[digest.Digest]*entry)}
}

func (l *KeyedLocker) AcquireLock(ctx context.Context, d digest.Digest) (Lock, error) {
	l.mu.Lock()
	e, ok := l.locks[d]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.locks[d] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		return &keyedLock{locker: l, digest: d, entry: e}, nil
	case <-ctx.Done():
		l.drop(d, e)
		return nil, ctx.Err()
	}
}

func (l *KeyedLocker) drop(d digest.Digest, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, d)
	}
}

// held reports how many callers hold or wait for d.
func (l *KeyedLocker) held(d digest.Digest) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.locks[d]; ok {
		return e.refs
	}
	return 0
}

type keyedLock struct {
	once   sync.Once
	locker *KeyedLocker
	digest digest.Digest
	entry  *entry
}

func (k *keyedLock) Release() error {
	err := ErrReleased
	k.once.Do(func() {
		<-k.entry.sem
		k.locker.drop(k.digest, k.entry)
		err = nil
	})
	return err
}
