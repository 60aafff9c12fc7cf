package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/lossaudit/internal/lossengine"
)

func newTestStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	dbPath := filepath.Join(t.TempDir(), "lossaudit.db")
	s, err := NewSQLiteStore(dbPath, WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, dbPath
}

func sampleAnalysis(t *testing.T, name string, people int) (lossengine.WorkflowInput, lossengine.LossAnalysis) {
	t.Helper()
	in := lossengine.DefaultInput()
	in.Name = name
	in.Description = "monthly close"
	in.PeopleInvolved = people
	in.ApprovalsPerTask = 3
	in.ToolsUsed = []string{"Excel", "Email", "SAP", "Teams"}
	in.AvgDelaysHours = 5
	return in, lossengine.New().Analyze(context.Background(), in)
}

func TestCreateGetRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	in, result := sampleAnalysis(t, "Month-end close", 8)

	id, err := s.Create(ctx, in, result, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	rec, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "Month-end close", rec.Name)
	assert.Equal(t, "monthly close", rec.Description)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC), rec.CreatedAt)
	assert.Nil(t, rec.OwnerID)
	assert.Equal(t, in, rec.Input)

	require.NotNil(t, rec.Result.ID)
	assert.Equal(t, id, *rec.Result.ID)
	rec.Result.ID = nil
	assert.Equal(t, result, rec.Result)
}

func TestCreateDropsCallerSuppliedID(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	in, result := sampleAnalysis(t, "A", 4)
	bogus := int64(99)
	result.ID = &bogus

	id, err := s.Create(ctx, in, result, nil)
	require.NoError(t, err)
	rec, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, *rec.Result.ID)
}

func TestListAscendingAndDelete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i, name := range []string{"first", "second", "third"} {
		in, result := sampleAnalysis(t, name, 3+i)
		_, err := s.Create(ctx, in, result, nil)
		require.NoError(t, err)
	}

	recs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{recs[0].Name, recs[1].Name, recs[2].Name})
	assert.Equal(t, int64(2), *recs[1].Result.ID)

	require.NoError(t, s.Delete(ctx, 2))
	require.ErrorIs(t, s.Delete(ctx, 2), ErrNotFound)
	_, err = s.Get(ctx, 2)
	require.ErrorIs(t, err, ErrNotFound)

	recs, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestListEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	recs, err := s.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestRecordsSurviveReopen(t *testing.T) {
	s, dbPath := newTestStore(t)
	ctx := context.Background()
	in, result := sampleAnalysis(t, "persisted", 6)
	id, err := s.Create(ctx, in, result, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer reopened.Close()
	rec, err := reopened.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "persisted", rec.Name)
}

func TestUsersFirstIsAdmin(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	admin, err := s.CreateUser(ctx, "ops-lead", "hash-1")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, admin.Role)

	consultant, err := s.CreateUser(ctx, "analyst", "hash-2")
	require.NoError(t, err)
	assert.Equal(t, RoleConsultant, consultant.Role)

	_, err = s.CreateUser(ctx, "analyst", "hash-3")
	require.ErrorIs(t, err, ErrUsernameTaken)

	got, err := s.GetUserByUsername(ctx, "analyst")
	require.NoError(t, err)
	assert.Equal(t, consultant.ID, got.ID)
	assert.Equal(t, "hash-2", got.HashedPassword)

	_, err = s.GetUserByUsername(ctx, "nobody")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateWithOwner(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u, err := s.CreateUser(ctx, "owner", "hash")
	require.NoError(t, err)

	in, result := sampleAnalysis(t, "owned", 5)
	id, err := s.Create(ctx, in, result, &u.ID)
	require.NoError(t, err)

	rec, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, rec.OwnerID)
	assert.Equal(t, u.ID, *rec.OwnerID)
}

func TestCreateRejectsUnknownOwner(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	ghost := int64(42)

	in, result := sampleAnalysis(t, "orphan", 5)
	_, err := s.Create(ctx, in, result, &ghost)
	require.ErrorIs(t, err, ErrUnknownOwner)

	recs, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
