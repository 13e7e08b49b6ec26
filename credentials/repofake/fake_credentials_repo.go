package repofake

import (
	"sync"

	"github.com/kubedeck/sessionkit/credentials"
)

var _ credentials.Repo = (*FakeCredentialsRepo)(nil)

// FakeCredentialsRepo is an in-memory credential store for tests. Per-op
// error fields let tests force persistence failures.
type FakeCredentialsRepo struct {
	values map[string]string
	lock   sync.RWMutex

	GetErr    error
	SetErr    error
	DeleteErr error
	ClearErr  error

	SetCalls    int
	DeleteCalls int
}

func NewFakeCredentialsRepo() *FakeCredentialsRepo {
	return &FakeCredentialsRepo{values: make(map[string]string)}
}

func (cr *FakeCredentialsRepo) Get(key string) (string, error) {
	cr.lock.RLock()
	defer cr.lock.RUnlock()

	if cr.GetErr != nil {
		return "", cr.GetErr
	}
	value, ok := cr.values[key]
	if !ok {
		return "", credentials.NotFoundErr
	}
	return value, nil
}

func (cr *FakeCredentialsRepo) Set(key, value string) error {
	cr.lock.Lock()
	defer cr.lock.Unlock()

	cr.SetCalls++
	if cr.SetErr != nil {
		return cr.SetErr
	}
	cr.values[key] = value
	return nil
}

func (cr *FakeCredentialsRepo) Delete(keys ...string) error {
	cr.lock.Lock()
	defer cr.lock.Unlock()

	cr.DeleteCalls++
	if cr.DeleteErr != nil {
		return cr.DeleteErr
	}
	for _, key := range keys {
		delete(cr.values, key)
	}
	return nil
}

func (cr *FakeCredentialsRepo) Clear() error {
	cr.lock.Lock()
	defer cr.lock.Unlock()

	if cr.ClearErr != nil {
		return cr.ClearErr
	}
	cr.values = make(map[string]string)
	return nil
}

// Len reports the number of stored keys.
func (cr *FakeCredentialsRepo) Len() int {
	cr.lock.RLock()
	defer cr.lock.RUnlock()
	return len(cr.values)
}

// Has reports whether a key is present.
func (cr *FakeCredentialsRepo) Has(key string) bool {
	cr.lock.RLock()
	defer cr.lock.RUnlock()
	_, ok := cr.values[key]
	return ok
}
