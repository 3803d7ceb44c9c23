package book

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runRepositoryContract exercises the behaviour every Repository
// implementation must share. newRepo must return an empty repository.
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("insert assigns id and equal timestamps", func(t *testing.T) {
		repo := newRepo(t)

		saved, err := repo.Save(ctx, Book{Title: "Dune", Author: "Frank Herbert", ISBN: "9780441013593", Available: true})
		require.NoError(t, err)
		assert.NotZero(t, saved.ID)
		assert.False(t, saved.CreatedAt.IsZero())
		assert.True(t, saved.CreatedAt.Equal(saved.UpdatedAt))

		got, err := repo.FindByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, "Dune", got.Title)
		assert.Equal(t, "Frank Herbert", got.Author)
		assert.Equal(t, "9780441013593", got.ISBN)
		assert.True(t, got.Available)
	})

	t.Run("lookups", func(t *testing.T) {
		repo := newRepo(t)
		saved, err := repo.Save(ctx, Book{Title: "Emma", ISBN: "9780141439587"})
		require.NoError(t, err)
		_, err = repo.Save(ctx, Book{Title: "Persuasion"})
		require.NoError(t, err)

		got, err := repo.FindByTitle(ctx, "Emma")
		require.NoError(t, err)
		assert.Equal(t, saved.ID, got.ID)

		got, err = repo.FindByISBN(ctx, "9780141439587")
		require.NoError(t, err)
		assert.Equal(t, saved.ID, got.ID)

		_, err = repo.FindByTitle(ctx, "emma")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repo.FindByISBN(ctx, "")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repo.FindByID(ctx, saved.ID+1000)
		assert.ErrorIs(t, err, ErrNotFound)

		ok, err := repo.ExistsByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = repo.ExistsByTitle(ctx, "Persuasion")
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = repo.ExistsByISBN(ctx, "9780141439587")
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = repo.ExistsByISBN(ctx, "")
		require.NoError(t, err)
		assert.False(t, ok, "empty isbn is never taken")
		ok, err = repo.ExistsByTitle(ctx, "Mansfield Park")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("update refreshes updated_at strictly", func(t *testing.T) {
		repo := newRepo(t)
		saved, err := repo.Save(ctx, Book{Title: "Emma", Available: true})
		require.NoError(t, err)

		prev := saved
		for i := 0; i < 3; i++ {
			prev.Available = !prev.Available
			next, err := repo.Save(ctx, prev)
			require.NoError(t, err)
			assert.True(t, next.UpdatedAt.After(prev.UpdatedAt))
			assert.True(t, next.CreatedAt.Equal(saved.CreatedAt))
			prev = next
		}

		got, err := repo.FindByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.False(t, got.Available)
		assert.True(t, got.UpdatedAt.Equal(prev.UpdatedAt))
	})

	t.Run("update of missing id", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Save(ctx, Book{ID: 42, Title: "Ghost"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("clearing isbn frees it", func(t *testing.T) {
		repo := newRepo(t)
		saved, err := repo.Save(ctx, Book{Title: "Emma", ISBN: "9780141439587"})
		require.NoError(t, err)

		saved.ISBN = ""
		_, err = repo.Save(ctx, saved)
		require.NoError(t, err)

		ok, err := repo.ExistsByISBN(ctx, "9780141439587")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = repo.Save(ctx, Book{Title: "Untitled one"})
		require.NoError(t, err)
		_, err = repo.Save(ctx, Book{Title: "Untitled two"})
		require.NoError(t, err, "several books may have no isbn")
	})

	t.Run("delete and id reuse", func(t *testing.T) {
		repo := newRepo(t)
		first, err := repo.Save(ctx, Book{Title: "First"})
		require.NoError(t, err)
		second, err := repo.Save(ctx, Book{Title: "Second"})
		require.NoError(t, err)

		require.NoError(t, repo.DeleteByID(ctx, second.ID))
		assert.ErrorIs(t, repo.DeleteByID(ctx, second.ID), ErrNotFound)

		third, err := repo.Save(ctx, Book{Title: "Third"})
		require.NoError(t, err)
		assert.Greater(t, third.ID, second.ID)

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, first.ID, all[0].ID)
		assert.Equal(t, third.ID, all[1].ID)
	})

	t.Run("find all on empty repository", func(t *testing.T) {
		repo := newRepo(t)
		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("transaction commits", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.InTx(ctx, func(tx Repository) error {
			_, err := tx.Save(ctx, Book{Title: "Committed"})
			return err
		})
		require.NoError(t, err)

		ok, err := repo.ExistsByTitle(ctx, "Committed")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("transaction rolls back on error", func(t *testing.T) {
		repo := newRepo(t)
		boom := errors.New("boom")
		err := repo.InTx(ctx, func(tx Repository) error {
			if _, err := tx.Save(ctx, Book{Title: "Rolled back"}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		ok, err := repo.ExistsByTitle(ctx, "Rolled back")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
