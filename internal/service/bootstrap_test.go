package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bearer-auth/internal/model"
)

var defaultSeed = AdminSeed{
	Email:      "admin1@gmail.com",
	Password:   "admin",
	Firstname:  "adminFirstname",
	Secondname: "adminSecondname",
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	f := newAuth(t, true)
	ctx := context.Background()

	created, err := f.svc.EnsureAdmin(ctx, defaultSeed)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.svc.EnsureAdmin(ctx, defaultSeed)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, f.users.Len())

	admin, err := f.users.FindByRole(ctx, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "admin1@gmail.com", admin.Email)
	assert.NotEqual(t, "admin", admin.PasswordHash)
}

func TestEnsureAdmin_Concurrent(t *testing.T) {
	f := newAuth(t, true)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.EnsureAdmin(context.Background(), defaultSeed)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, f.users.Len())
}

func TestEnsureAdmin_AdminCanSignIn(t *testing.T) {
	f := newAuth(t, true)
	_, err := f.svc.EnsureAdmin(context.Background(), defaultSeed)
	require.NoError(t, err)

	pair, err := f.svc.Signin(context.Background(), SigninRequest{Email: "admin1@gmail.com", Password: "admin"})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
}

func TestEnsureAdmin_ExistingAdminKept(t *testing.T) {
	f := newAuth(t, true)
	_, err := f.users.Save(context.Background(), model.User{Email: "root@example.com", Role: model.RoleAdmin})
	require.NoError(t, err)

	created, err := f.svc.EnsureAdmin(context.Background(), defaultSeed)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestEnsureAdmin_IncompleteSeed(t *testing.T) {
	f := newAuth(t, true)
	_, err := f.svc.EnsureAdmin(context.Background(), AdminSeed{Email: "a@b.io"})
	assert.Error(t, err)
}
