package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var errLockBusy = errors.New("key lock busy")

// keyLock serializes writers of one KV key. The one-slot semaphore orders
// goroutines; the flock on "<file>.lock" orders processes sharing the
// storage directory.
type keyLock struct {
	file string
	sem  chan struct{}
}

func newKeyLock(file string) *keyLock {
	return &keyLock{file: file, sem: make(chan struct{}, 1)}
}

// acquire blocks until the key is held or ctx ends. The returned func
// releases it.
func (l *keyLock) acquire(ctx context.Context) (func(), error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	f, err := os.OpenFile(l.file+".lock", os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		<-l.sem
		return nil, err
	}

	flock := func() error {
		err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return errLockBusy
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}
	if err := backoff.Retry(flock, lockBackoff(ctx)); err != nil {
		f.Close()
		<-l.sem
		return nil, fmt.Errorf("lock %s: %w", l.file, err)
	}

	return func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
		<-l.sem
	}, nil
}

func lockBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Millisecond
	b.MaxInterval = 100 * time.Millisecond
	b.MaxElapsedTime = 0
	return backoff.WithContext(b, ctx)
}

// keyLocks hands out one keyLock per file path.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

func (k *keyLocks) get(file string) *keyLock {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.locks == nil {
		k.locks = make(map[string]*keyLock)
	}
	l, ok := k.locks[file]
	if !ok {
		l = newKeyLock(file)
		k.locks[file] = l
	}
	return l
}
