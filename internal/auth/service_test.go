package auth

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	return NewService(store, newTestIssuer(t)), store
}

func registerTestUser(t *testing.T, service *Service) User {
	t.Helper()
	user, err := service.Register(context.Background(), RegisterParams{
		FullName: "Ann Lee",
		Email:    "ann@x.com",
		Username: "annlee",
		Password: "secret123",
	})
	require.NoError(t, err)
	return user
}

func TestRegister_NormalizesAndHashes(t *testing.T) {
	service, store := newTestService(t)

	user, err := service.Register(context.Background(), RegisterParams{
		FullName: "Ann Lee",
		Email:    "Ann@X.com",
		Username: "AnnLee",
		Password: "secret123",
	})
	require.NoError(t, err)

	assert.Equal(t, "ann@x.com", user.Email)
	assert.Equal(t, "annlee", user.Username)
	assert.NotEqual(t, "secret123", user.PasswordHash)
	assert.Empty(t, store.persistedToken(user.ID))
}

func TestRegister_Duplicate(t *testing.T) {
	service, _ := newTestService(t)
	registerTestUser(t, service)

	_, err := service.Register(context.Background(), RegisterParams{
		FullName: "Other",
		Email:    "ann@x.com",
		Username: "other",
		Password: "secret123",
	})
	assert.ErrorIs(t, err, ErrDuplicateUser)
}

func TestLogin_PersistsDeliveredToken(t *testing.T) {
	service, store := newTestService(t)
	user := registerTestUser(t, service)

	loggedIn, pair, err := service.Login(context.Background(), "annlee", "secret123")
	require.NoError(t, err)

	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, pair.RefreshToken, store.persistedToken(user.ID))
}

func TestLogin_ByEmail(t *testing.T) {
	service, _ := newTestService(t)
	registerTestUser(t, service)

	_, pair, err := service.Login(context.Background(), "ann@x.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
}

func TestLogin_UnknownUser(t *testing.T) {
	service, _ := newTestService(t)

	_, _, err := service.Login(context.Background(), "nobody", "secret123")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLogin_WrongPassword(t *testing.T) {
	service, _ := newTestService(t)
	registerTestUser(t, service)

	_, _, err := service.Login(context.Background(), "annlee", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_NoTokensWhenPersistFails(t *testing.T) {
	service, store := newTestService(t)
	user := registerTestUser(t, service)
	store.failSetRefresh = true

	_, pair, err := service.Login(context.Background(), "annlee", "secret123")
	require.Error(t, err)
	assert.Empty(t, pair.AccessToken)
	assert.Empty(t, pair.RefreshToken)
	assert.Empty(t, store.persistedToken(user.ID))
}

func TestRefresh_RotatesToken(t *testing.T) {
	service, store := newTestService(t)
	user := registerTestUser(t, service)

	_, first, err := service.Login(context.Background(), "annlee", "secret123")
	require.NoError(t, err)

	_, second, err := service.Refresh(context.Background(), first.RefreshToken)
	require.NoError(t, err)

	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, second.RefreshToken, store.persistedToken(user.ID))
}

func TestRefresh_OldTokenFailsAfterRotation(t *testing.T) {
	service, _ := newTestService(t)
	registerTestUser(t, service)

	_, first, err := service.Login(context.Background(), "annlee", "secret123")
	require.NoError(t, err)

	_, _, err = service.Refresh(context.Background(), first.RefreshToken)
	require.NoError(t, err)

	_, _, err = service.Refresh(context.Background(), first.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenReuse)
}

func TestRefresh_ReuseDetectionRevokesSession(t *testing.T) {
	service, store := newTestService(t)
	user := registerTestUser(t, service)

	_, first, err := service.Login(context.Background(), "annlee", "secret123")
	require.NoError(t, err)

	_, second, err := service.Refresh(context.Background(), first.RefreshToken)
	require.NoError(t, err)

	// Presenting the consumed token revokes the whole session, including
	// the legitimate successor.
	_, _, err = service.Refresh(context.Background(), first.RefreshToken)
	require.ErrorIs(t, err, ErrTokenReuse)
	assert.Empty(t, store.persistedToken(user.ID))

	_, _, err = service.Refresh(context.Background(), second.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenReuse)
}

func TestRefresh_TamperedTokenLeavesStoreUntouched(t *testing.T) {
	service, store := newTestService(t)
	user := registerTestUser(t, service)

	_, pair, err := service.Login(context.Background(), "annlee", "secret123")
	require.NoError(t, err)

	_, _, err = service.Refresh(context.Background(), tamperSignature(pair.RefreshToken))
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, pair.RefreshToken, store.persistedToken(user.ID))
}

func TestRefresh_MissingToken(t *testing.T) {
	service, _ := newTestService(t)

	_, _, err := service.Refresh(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefresh_ConcurrentSingleWinner(t *testing.T) {
	service, _ := newTestService(t)
	registerTestUser(t, service)

	_, pair, err := service.Login(context.Background(), "annlee", "secret123")
	require.NoError(t, err)

	const attempts = 2
	results := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, _, results[slot] = service.Refresh(context.Background(), pair.RefreshToken)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
		} else {
			assert.True(t, err == ErrTokenReuse || err == ErrInvalidToken, "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent refresh may win")
}

func TestLogout_Idempotent(t *testing.T) {
	service, store := newTestService(t)
	user := registerTestUser(t, service)

	_, _, err := service.Login(context.Background(), "annlee", "secret123")
	require.NoError(t, err)
	require.NotEmpty(t, store.persistedToken(user.ID))

	require.NoError(t, service.Logout(context.Background(), user.ID))
	assert.Empty(t, store.persistedToken(user.ID))

	require.NoError(t, service.Logout(context.Background(), user.ID))
	assert.Empty(t, store.persistedToken(user.ID))
}

func TestLogout_UnknownUser(t *testing.T) {
	service, _ := newTestService(t)
	assert.NoError(t, service.Logout(context.Background(), "missing"))
}

func TestChangePassword(t *testing.T) {
	service, _ := newTestService(t)
	user := registerTestUser(t, service)

	err := service.ChangePassword(context.Background(), user.ID, "wrong-password", "newsecret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, service.ChangePassword(context.Background(), user.ID, "secret123", "newsecret123"))

	_, _, err = service.Login(context.Background(), "annlee", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = service.Login(context.Background(), "annlee", "newsecret123")
	assert.NoError(t, err)
}
