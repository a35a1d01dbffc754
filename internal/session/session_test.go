package session

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuth struct{ mock.Mock }

func (m *mockAuth) Login(ctx context.Context, cred api.Credentials) (api.AuthResponse, error) {
	args := m.Called(cred)
	return args.Get(0).(api.AuthResponse), args.Error(1)
}

func (m *mockAuth) Register(ctx context.Context, r api.Registration) (api.AuthResponse, error) {
	args := m.Called(r)
	return args.Get(0).(api.AuthResponse), args.Error(1)
}

func (m *mockAuth) Refresh(ctx context.Context, rt string) (api.AuthResponse, error) {
	args := m.Called(rt)
	return args.Get(0).(api.AuthResponse), args.Error(1)
}

func (m *mockAuth) Logout(ctx context.Context, tok string) error {
	return m.Called(tok).Error(0)
}

func TestLogin_AdoptsIdentity(t *testing.T) {
	auth := new(mockAuth)
	auth.On("Login", api.Credentials{Username: "sari", Password: "pw"}).
		Return(api.AuthResponse{AccessToken: "at", RefreshToken: "rt", Role: "SELLER", Username: "sari"}, nil)

	s := New(auth, nil)
	id, err := s.Login(context.Background(), api.Credentials{Username: "sari", Password: "pw"})

	require.NoError(t, err)
	assert.Equal(t, "at", s.Token())
	assert.True(t, id.IsSeller())
	assert.False(t, id.IsAdmin())
	assert.True(t, s.Authenticated())
	auth.AssertExpectations(t)
}

func TestLogin_FailurePushesAlert(t *testing.T) {
	auth := new(mockAuth)
	auth.On("Login", mock.Anything).Return(api.AuthResponse{}, errors.New("boom"))

	s := New(auth, nil)
	_, err := s.Login(context.Background(), api.Credentials{Username: "x"})

	assert.Error(t, err)
	assert.False(t, s.Authenticated())
	alerts := s.Alerts().Drain()
	require.Len(t, alerts, 1)
	assert.Equal(t, LevelError, alerts[0].Level)
}

func TestRefresh_KeepsUsernameAndRotatesToken(t *testing.T) {
	auth := new(mockAuth)
	auth.On("Refresh", "rt").Return(api.AuthResponse{AccessToken: "at2", RefreshToken: "rt"}, nil)

	s := New(auth, nil)
	s.Restore(Identity{Token: "at1", RefreshToken: "rt", Role: "USER", Username: "andi"})

	id, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at2", id.Token)
	assert.Equal(t, "andi", id.Username)
	assert.Equal(t, "USER", id.Role)
}

func TestRefresh_UnauthorizedClearsIdentity(t *testing.T) {
	auth := new(mockAuth)
	auth.On("Refresh", "rt").Return(api.AuthResponse{}, &api.Error{StatusCode: http.StatusUnauthorized})

	s := New(auth, nil)
	s.Restore(Identity{Token: "at1", RefreshToken: "rt"})

	_, err := s.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.False(t, s.Authenticated())
}

func TestRefresh_WithoutRefreshToken(t *testing.T) {
	s := New(new(mockAuth), nil)
	_, err := s.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestLogout_ClearsEvenWhenBackendFails(t *testing.T) {
	auth := new(mockAuth)
	auth.On("Logout", "at").Return(errors.New("offline"))

	s := New(auth, nil)
	s.Restore(Identity{Token: "at", Username: "andi"})

	require.NoError(t, s.Logout(context.Background()))
	assert.False(t, s.Authenticated())
	auth.AssertExpectations(t)
}

func TestAlerts_BoundedAndExpiring(t *testing.T) {
	a := NewAlerts(2, time.Minute)
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	a.Info("one")
	a.Info("two")
	a.Error("three")

	got := a.Peek()
	require.Len(t, got, 2)
	assert.Equal(t, "two", got[0].Message)
	assert.Equal(t, "three", got[1].Message)

	now = now.Add(2 * time.Minute)
	assert.Empty(t, a.Drain())
	assert.Empty(t, a.Peek())
}

func TestMemoryStore(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	_, err := st.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrUnknownSession)

	require.NoError(t, st.Put(ctx, "s1", Identity{Token: "t"}))
	id, err := st.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "t", id.Token)

	require.NoError(t, st.Delete(ctx, "s1"))
	_, err = st.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrUnknownSession)
}
