package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/pronos_server/internal/model"
	"github.com/qs3c/pronos_server/internal/testutil"
)

func TestPronoRepository_ListPublished_ByDay(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewPronoRepository(db)

	day := time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)
	late := testutil.TestProno(t, db, testutil.WithMatchTime(day.Add(21*time.Hour)))
	early := testutil.TestProno(t, db, testutil.WithMatchTime(day.Add(15*time.Hour)))
	testutil.TestProno(t, db, testutil.WithMatchTime(day.Add(30*time.Hour)))
	testutil.TestProno(t, db, testutil.WithMatchTime(day.Add(16*time.Hour)), testutil.WithPronoStatus(model.PronoStatusDraft))

	pronos, total, err := repo.ListPublished(day, day.AddDate(0, 0, 1), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, pronos, 2)
	assert.Equal(t, early.ID, pronos[0].ID)
	assert.Equal(t, late.ID, pronos[1].ID)

	_, total, err = repo.ListPublished(time.Time{}, time.Time{}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestPronoRepository_UpdateFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewPronoRepository(db)

	prono := testutil.TestProno(t, db)
	require.NoError(t, repo.UpdateFields(prono.ID, map[string]interface{}{"result": model.PronoResultWon}))

	found, err := repo.GetByID(prono.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PronoResultWon, found.Result)

	drafts, err := repo.CountByStatus(model.PronoStatusDraft)
	require.NoError(t, err)
	assert.Zero(t, drafts)

	all, total, err := repo.List("", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, all, 1)
}
