package main

import (
	"bufio"
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-desk/library"
)

func scripted(lines ...string) *console {
	return &console{sc: bufio.NewScanner(strings.NewReader(strings.Join(lines, "\n") + "\n"))}
}

func TestShellSession(t *testing.T) {
	ctx := context.Background()
	mgr, err := library.NewLibraryManager(filepath.Join(t.TempDir(), "desk.db"), library.WithBcryptCost(4))
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	require.True(t, mgr.EnsureAdmin(ctx).Success)

	sh := &shell{ctx: ctx, mgr: mgr, in: scripted(
		"admin", "wrong password",
		"admin", "admin123",
		"add book", "978-0-13-468599-1", "The Go Programming Language", "Alan Donovan", "", "", "A3", "",
		"update book", "1", "", "", "Addison-Wesley", "", "", "2015", "39.90",
		"add student", "Ada", "Lovelace", "ada@campus.edu", "", "Mathematics", "2",
		"issue", "BK-685991-001", "1",
		"no such command",
		"exit",
	)}
	sh.run()

	admin, err := mgr.Login(ctx, "admin", "admin123").Unwrap()
	require.NoError(t, err)

	books, err := mgr.ListBooks(ctx, admin, library.BookFilter{}).Unwrap()
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "A3", books[0].ShelfLocation)
	assert.Equal(t, "Addison-Wesley", books[0].Publisher)
	assert.Equal(t, 2015, books[0].PublicationYear)
	assert.Equal(t, "39.90", books[0].Price.StringFixed(2))
	assert.False(t, books[0].Available)

	loans, err := mgr.ListIssues(ctx, admin, library.IssueFilter{Scope: library.IssuesActive}).Unwrap()
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, "Ada Lovelace", loans[0].MemberName)
	assert.Equal(t, "admin", loans[0].IssuedBy)
}

func TestShellUpdateBookKeepsBlankFields(t *testing.T) {
	ctx := context.Background()
	mgr, err := library.NewLibraryManager(filepath.Join(t.TempDir(), "desk.db"), library.WithBcryptCost(4))
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	require.True(t, mgr.EnsureAdmin(ctx).Success)
	admin, err := mgr.Login(ctx, "admin", "admin123").Unwrap()
	require.NoError(t, err)
	book, err := mgr.AddBook(ctx, admin, library.NewBook{
		ISBN: "9780441013593", Title: "Dune", Author: "Frank Herbert",
		PublicationYear: 1965, Price: decimal.RequireFromString("12.50"),
	}).Unwrap()
	require.NoError(t, err)

	sh := &shell{ctx: ctx, mgr: mgr, sess: admin, in: scripted(
		"update book", strconv.FormatInt(book.ID, 10), "", "", "", "", "", "", "",
		"update book", strconv.FormatInt(book.ID, 10), "", "", "", "", "", "not a year",
		"exit",
	)}
	sh.run()

	got, err := mgr.GetBook(ctx, admin, book.ID).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, 1965, got.PublicationYear)
	assert.Equal(t, "12.50", got.Price.StringFixed(2))
}

func TestShellStopsAtEndOfInput(t *testing.T) {
	mgr, err := library.NewLibraryManager(filepath.Join(t.TempDir(), "desk.db"), library.WithBcryptCost(4))
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })

	sh := &shell{ctx: context.Background(), mgr: mgr, in: scripted("admin")}
	sh.run()
	assert.Nil(t, sh.sess)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "a long ...", truncateString("a long title here", 10))
}
