package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-desk/library"
)

func TestRootClosesDatabaseWhenBootstrapFails(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "desk.db")

	// A non-admin account already holds the bootstrap username.
	db, err := library.NewDatabase(dbPath)
	require.NoError(t, err)
	require.NoError(t, db.Store().InsertUser(ctx, &library.User{
		Username: "ADMIN", Email: "someone@uni.edu", PasswordHash: "x",
		Role: library.RoleUser, CreatedAt: time.Now(), Active: true,
	}))
	require.NoError(t, db.Close())

	a := &app{}
	root := newRootCmd(a)
	root.SetArgs([]string{"--env-file", filepath.Join(dir, "missing.env"), "--db", dbPath, "stats"})
	err = root.ExecuteContext(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, library.ErrDuplicate)
	assert.Nil(t, a.mgr, "database left open")
	require.NoError(t, a.close())
}
