package apifake

import (
	"context"
	"sync"

	"github.com/kubedeck/sessionkit/authapi"
)

// FakeAuthAPI scripts auth API responses and records every call so tests can
// assert on call counts (e.g. the single bounded verify retry).
type FakeAuthAPI struct {
	lock sync.Mutex

	VerifyResults []*authapi.VerifyResult
	VerifyErr     error
	RefreshResult *authapi.RefreshResult
	RefreshErr    error
	LogoutErr     error

	VerifyCalls  []string
	RefreshCalls []string
	LogoutCalls  []string
}

func NewFakeAuthAPI() *FakeAuthAPI {
	return &FakeAuthAPI{}
}

// VerifyToken pops the next scripted result; the last one repeats when the
// script runs out.
func (f *FakeAuthAPI) VerifyToken(_ context.Context, accessToken string) (*authapi.VerifyResult, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.VerifyCalls = append(f.VerifyCalls, accessToken)
	if f.VerifyErr != nil {
		return nil, f.VerifyErr
	}
	if len(f.VerifyResults) == 0 {
		return &authapi.VerifyResult{Valid: false}, nil
	}
	result := f.VerifyResults[0]
	if len(f.VerifyResults) > 1 {
		f.VerifyResults = f.VerifyResults[1:]
	}
	return result, nil
}

func (f *FakeAuthAPI) RefreshToken(_ context.Context, refreshToken string) (*authapi.RefreshResult, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.RefreshCalls = append(f.RefreshCalls, refreshToken)
	if f.RefreshErr != nil {
		return nil, f.RefreshErr
	}
	if f.RefreshResult == nil {
		return &authapi.RefreshResult{}, nil
	}
	return f.RefreshResult, nil
}

func (f *FakeAuthAPI) Logout(_ context.Context, refreshToken string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.LogoutCalls = append(f.LogoutCalls, refreshToken)
	return f.LogoutErr
}
