package services

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/identity"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listedIDs(t *testing.T, f *fixture, caller identity.Identity, filter ListFilter) []uuid.UUID {
	t.Helper()
	cases, total, err := f.svc.List(context.Background(), caller, models.KindContribution, filter)
	require.NoError(t, err)
	ids := make([]uuid.UUID, len(cases))
	for i, c := range cases {
		assert.Equal(t, models.KindContribution, c.Kind)
		ids[i] = c.ID
	}
	if filter.Offset == 0 && filter.Limit == 0 {
		assert.Equal(t, int64(len(cases)), total)
	}
	return ids
}

func TestListStalenessBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.titleContribution(t)

	_, err := f.svc.Claim(ctx, f.mod1, models.KindContribution, c.ID)
	require.NoError(t, err)

	tests := []struct {
		name    string
		elapsed time.Duration
		visible bool
	}{
		{"fresh", 0, false},
		{"14 days", 14 * 24 * time.Hour, false},
		{"exactly 15 days", 15 * 24 * time.Hour, false},
		{"15 days and a second", 15*24*time.Hour + time.Second, true},
		{"30 days", 30 * 24 * time.Hour, true},
	}
	start := f.clock.Now()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.clock.T = start.Add(tt.elapsed)

			ids := listedIDs(t, f, f.mod2, ListFilter{})
			if tt.visible {
				assert.Contains(t, ids, c.ID)
			} else {
				assert.NotContains(t, ids, c.ID)
			}

			_, err := f.svc.Get(ctx, f.mod2, models.KindContribution, c.ID)
			if tt.visible {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrNotAuthorized)
			}

			assert.Contains(t, listedIDs(t, f, f.mod1, ListFilter{}), c.ID)
			assert.Contains(t, listedIDs(t, f, f.admin, ListFilter{}), c.ID)
		})
	}
}

func TestListStaleClosedCaseStaysHidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.titleContribution(t)

	_, err := f.svc.Claim(ctx, f.mod1, models.KindContribution, c.ID)
	require.NoError(t, err)
	_, err = f.svc.Resolve(ctx, f.mod1, models.KindContribution, c.ID, Resolution{Status: "approved"})
	require.NoError(t, err)

	f.clock.Advance(60 * 24 * time.Hour)
	assert.NotContains(t, listedIDs(t, f, f.mod2, ListFilter{Status: "all"}), c.ID)
	assert.Contains(t, listedIDs(t, f, f.mod1, ListFilter{Status: "approved"}), c.ID)
	assert.Contains(t, listedIDs(t, f, f.admin, ListFilter{}), c.ID)
}

func TestListShortWindow(t *testing.T) {
	f := newFixture(t, WithStaleAfter(time.Hour))
	ctx := context.Background()
	c := f.titleContribution(t)

	assert.Equal(t, time.Hour, f.svc.StaleAfter())

	_, err := f.svc.Claim(ctx, f.mod1, models.KindContribution, c.ID)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	assert.NotContains(t, listedIDs(t, f, f.mod2, ListFilter{}), c.ID)
	f.clock.Advance(time.Minute)
	assert.Contains(t, listedIDs(t, f, f.mod2, ListFilter{}), c.ID)
}

func TestListFiltersAndPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var created []uuid.UUID
	for i := 0; i < 5; i++ {
		created = append(created, f.titleContribution(t).ID)
		f.clock.Advance(time.Minute)
	}
	_, err := f.svc.Resolve(ctx, f.mod1, models.KindContribution, created[0], Resolution{Status: "reviewing"})
	require.NoError(t, err)

	pending := listedIDs(t, f, f.mod1, ListFilter{Status: "pending"})
	assert.Len(t, pending, 4)
	assert.NotContains(t, pending, created[0])

	inReview := listedIDs(t, f, f.mod1, ListFilter{Status: "Reviewing"})
	assert.Equal(t, []uuid.UUID{created[0]}, inReview)

	_, _, err = f.svc.List(ctx, f.mod1, models.KindContribution, ListFilter{Status: "resolved"})
	assert.ErrorIs(t, err, ErrValidation)

	page, total, err := f.svc.List(ctx, f.mod1, models.KindContribution, ListFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	// Newest first.
	assert.Equal(t, created[3], page[0].ID)
	assert.Equal(t, created[2], page[1].ID)

	_, _, err = f.svc.List(ctx, f.author, models.KindContribution, ListFilter{})
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestListFilterNormalize(t *testing.T) {
	f := ListFilter{Limit: 1000, Offset: -3}
	f.Normalize()
	assert.Equal(t, MaxPageSize, f.Limit)
	assert.Equal(t, 0, f.Offset)

	f = ListFilter{}
	f.Normalize()
	assert.Equal(t, DefaultPageSize, f.Limit)
}

func TestListOwn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.titleContribution(t)

	_, err := f.svc.Claim(ctx, f.mod1, models.KindContribution, c.ID)
	require.NoError(t, err)
	_, err = f.svc.Resolve(ctx, f.mod1, models.KindContribution, c.ID, Resolution{Status: "rejected", Notes: "no source"})
	require.NoError(t, err)

	mine, total, err := f.svc.ListOwn(ctx, f.author, models.KindContribution, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, mine, 1)
	assert.Equal(t, models.StatusRejected, mine[0].Status)
	assert.Equal(t, "no source", mine[0].ResolutionNotes)

	others, _, err := f.svc.ListOwn(ctx, f.reporter, models.KindContribution, ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, others)

	// Authors can always open their own case.
	got, err := f.svc.Get(ctx, f.author, models.KindContribution, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = f.svc.Get(ctx, f.reporter, models.KindContribution, c.ID)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.titleContribution(t)
	b := f.titleContribution(t)
	f.titleContribution(t)

	_, err := f.svc.Claim(ctx, f.mod1, models.KindContribution, a.ID)
	require.NoError(t, err)
	_, err = f.svc.Resolve(ctx, f.mod2, models.KindContribution, b.ID, Resolution{Status: "needs_changes", Notes: "source?"})
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx, f.mod2, models.KindContribution)
	require.NoError(t, err)
	assert.Equal(t, []StatusCount{
		{Status: models.StatusPending, Count: 1},
		{Status: models.StatusInReview, Count: 0},
		{Status: models.StatusNeedsChanges, Count: 1},
		{Status: models.StatusApproved, Count: 0},
		{Status: models.StatusRejected, Count: 0},
	}, stats)

	stats, err = f.svc.Stats(ctx, f.admin, models.KindContribution)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats[0].Count)

	reportStats, err := f.svc.Stats(ctx, f.admin, models.KindUserReport)
	require.NoError(t, err)
	assert.Len(t, reportStats, len(reportStatuses))

	_, err = f.svc.Stats(ctx, f.author, models.KindContribution)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}
