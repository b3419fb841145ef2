package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/dto"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveApprovalAppliesChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.titleContribution(t)
	before := f.anime(t, 42)

	got, err := f.svc.Resolve(ctx, f.mod1, models.KindContribution, c.ID, Resolution{Status: "approved", Notes: "looks good"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, got.Status)
	assert.Equal(t, "looks good", got.ResolutionNotes)
	require.NotNil(t, got.ResolvedBy)
	assert.Equal(t, f.mod1.UserID, *got.ResolvedBy)
	require.NotNil(t, got.ResolvedAt)
	assert.True(t, got.ResolvedAt.Equal(f.clock.Now()))

	anime := f.anime(t, 42)
	assert.Equal(t, "Bar", anime.Title)
	require.NotNil(t, anime.EpisodeCount)
	assert.Equal(t, int64(12), *anime.EpisodeCount)
	assert.Equal(t, before.AiringStatus, anime.AiringStatus)
	assert.True(t, before.UpdatedAt.Equal(anime.UpdatedAt), "only proposed columns change")

	msgs := f.rec.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, f.author.UserID, msgs[0].Recipient)
	assert.Equal(t, models.NotificationCaseStatus, msgs[0].Type)
	assert.Equal(t, models.StatusApproved, msgs[0].Status)
	assert.Equal(t, c.ID, msgs[0].CaseID)
	assert.Contains(t, msgs[0].Text, "approved")
}

func TestResolveApprovalCoercesTypes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.contribution(t, map[string]models.FieldChange{
		"episodeCount": {Old: 12, New: "24"},
		"startDate":    {Old: nil, New: "2004-10-05"},
		"score":        {Old: nil, New: 8.25},
		"isAdult":      {Old: false, New: "true"},
		"titleEnglish": {Old: nil, New: "Bar: The Series"},
	})

	_, err := f.svc.Resolve(ctx, f.admin, models.KindContribution, c.ID, Resolution{Status: "approved"})
	require.NoError(t, err)

	anime := f.anime(t, 42)
	require.NotNil(t, anime.EpisodeCount)
	assert.Equal(t, int64(24), *anime.EpisodeCount)
	require.NotNil(t, anime.StartDate)
	assert.Equal(t, "2004-10-05", anime.StartDate.UTC().Format("2006-01-02"))
	require.NotNil(t, anime.Score)
	assert.InDelta(t, 8.25, *anime.Score, 1e-9)
	assert.True(t, anime.IsAdult)
	require.NotNil(t, anime.TitleEnglish)
	assert.Equal(t, "Bar: The Series", *anime.TitleEnglish)
	assert.Equal(t, "Foo", anime.Title)
}

func TestResolveApprovalRollsBackOnBadValue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.contribution(t, map[string]models.FieldChange{
		"title":        {Old: "Foo", New: "Baz"},
		"episodeCount": {Old: 12, New: "not-a-number"},
	})

	_, err := f.svc.Claim(ctx, f.mod1, models.KindContribution, c.ID)
	require.NoError(t, err)

	_, err = f.svc.Resolve(ctx, f.mod1, models.KindContribution, c.ID, Resolution{Status: "approved", Notes: "ok"})
	require.ErrorIs(t, err, ErrApplyFailed)
	var aerr *ApplyFailedError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, "episodeCount", aerr.Field)

	anime := f.anime(t, 42)
	assert.Equal(t, "Foo", anime.Title)
	assert.Equal(t, int64(12), *anime.EpisodeCount)

	stored := f.reload(t, c)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Nil(t, stored.ResolvedBy)
	assert.Nil(t, stored.ResolvedAt)
	assert.Empty(t, stored.ResolutionNotes)
	require.NotNil(t, stored.AssignedTo)
	assert.Equal(t, f.mod1.UserID, *stored.AssignedTo)

	assert.Empty(t, f.rec.messages())

	// The case can still be rejected afterwards.
	_, err = f.svc.Resolve(ctx, f.mod1, models.KindContribution, c.ID, Resolution{Status: "rejected", Notes: "episode count must be a number"})
	require.NoError(t, err)
}

func TestResolveApprovalMissingRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.titleContribution(t)

	require.NoError(t, f.db.Delete(&models.Anime{}, 42).Error)

	_, err := f.svc.Resolve(ctx, f.mod1, models.KindContribution, c.ID, Resolution{Status: "approved"})
	assert.ErrorIs(t, err, ErrApplyFailed)
	assert.Equal(t, models.StatusPending, f.reload(t, c).Status)
}

func TestResolveAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.titleContribution(t)

	_, err := f.svc.Resolve(ctx, f.author, models.KindContribution, c.ID, Resolution{Status: "approved"})
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = f.svc.Claim(ctx, f.mod1, models.KindContribution, c.ID)
	require.NoError(t, err)

	_, err = f.svc.Resolve(ctx, f.mod2, models.KindContribution, c.ID, Resolution{Status: "rejected"})
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.Equal(t, models.StatusPending, f.reload(t, c).Status)

	// Admins may resolve cases held by anyone.
	got, err := f.svc.Resolve(ctx, f.admin, models.KindContribution, c.ID, Resolution{Status: "rejected"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)
	assert.Equal(t, DefaultResolutionNote, got.ResolutionNotes)
}

func TestResolveTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.titleContribution(t)
	_, err := f.svc.Resolve(ctx, f.mod1, models.KindContribution, c.ID, Resolution{Status: "pending"})
	assert.ErrorIs(t, err, ErrInvalidTransition, "same status")

	_, err = f.svc.Resolve(ctx, f.mod1, models.KindContribution, c.ID, Resolution{Status: "resolved"})
	assert.ErrorIs(t, err, ErrInvalidTransition, "report status on a contribution")

	_, err = f.svc.Resolve(ctx, f.mod1, models.KindContribution, c.ID, Resolution{Status: "approved", ActionTaken: "delete_comment"})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err := f.svc.Resolve(ctx, f.mod1, models.KindContribution, c.ID, Resolution{Status: "Dismissed", Notes: "spam edit"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)

	_, err = f.svc.Resolve(ctx, f.mod1, models.KindContribution, c.ID, Resolution{Status: "pending"})
	assert.ErrorIs(t, err, ErrInvalidTransition, "closed cases stay closed")
	_, err = f.svc.Resolve(ctx, f.admin, models.KindContribution, c.ID, Resolution{Status: "approved"})
	assert.ErrorIs(t, err, ErrInvalidTransition, "admins cannot reopen either")

	assert.Equal(t, "Foo", f.anime(t, 42).Title)
}

func TestResolveNonTerminalKeepsResolverEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.titleContribution(t)

	got, err := f.svc.Resolve(ctx, f.mod1, models.KindContribution, c.ID, Resolution{Status: "needs_changes", Notes: "<i>cite</i> a source"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusNeedsChanges, got.Status)
	assert.Equal(t, "cite a source", got.ResolutionNotes)
	assert.Nil(t, got.ResolvedBy)
	assert.Nil(t, got.ResolvedAt)

	msgs := f.rec.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "cite a source")
}

func TestResolveNotifierFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.rec.err = errors.New("smtp down")
	c := f.titleContribution(t)

	got, err := f.svc.Resolve(context.Background(), f.mod1, models.KindContribution, c.ID, Resolution{Status: "approved"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.Len(t, f.rec.messages(), 1)
}

func TestResolveReportActions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	comment := f.comment(t, f.author)
	report, err := f.svc.CreateReport(ctx, f.reporter, models.KindCommentReport, &dto.CreateReportRequest{
		SubjectID: subjectRef(comment.ID), Reason: "offensive",
	})
	require.NoError(t, err)

	_, err = f.svc.Resolve(ctx, f.mod1, models.KindCommentReport, report.ID, Resolution{Status: "resolved", ActionTaken: "delete_review"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.Resolve(ctx, f.mod1, models.KindCommentReport, report.ID, Resolution{Status: "rejected", ActionTaken: "delete_comment"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.Resolve(ctx, f.mod1, models.KindCommentReport, report.ID, Resolution{Status: "approved"})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err := f.svc.Resolve(ctx, f.mod1, models.KindCommentReport, report.ID, Resolution{Status: "resolved", ActionTaken: "delete_comment", Notes: "removed"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, got.Status)
	assert.Equal(t, ActionDeleteComment, got.ActionTaken)

	var live int64
	require.NoError(t, f.db.Model(&models.Comment{}).Where("id = ?", comment.ID).Count(&live).Error)
	assert.Zero(t, live)
	var all int64
	require.NoError(t, f.db.Unscoped().Model(&models.Comment{}).Where("id = ?", comment.ID).Count(&all).Error)
	assert.Equal(t, int64(1), all)

	msgs := f.rec.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, f.reporter.UserID, msgs[0].Recipient)
}

func TestResolveReportDismissAlias(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	report, err := f.svc.CreateReport(ctx, f.reporter, models.KindUserReport, &dto.CreateReportRequest{
		SubjectID: dto.SubjectRef(f.author.UserID.String()), Reason: "spam",
	})
	require.NoError(t, err)

	got, err := f.svc.Resolve(ctx, f.mod2, models.KindUserReport, report.ID, Resolution{Status: "rejected"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDismissed, got.Status)
	assert.Equal(t, ActionNone, got.ActionTaken)
	assert.Equal(t, DefaultResolutionNote, got.ResolutionNotes)
}

// A moderator abandons a claimed case; after the window another moderator
// finds it in the queue and closes it without claiming first.
func TestStaleCaseResolvedByAnotherModerator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.titleContribution(t)

	_, err := f.svc.Claim(ctx, f.mod1, models.KindContribution, c.ID)
	require.NoError(t, err)

	f.clock.Advance(10 * 24 * time.Hour)
	_, err = f.svc.Resolve(ctx, f.mod2, models.KindContribution, c.ID, Resolution{Status: "approved"})
	assert.ErrorIs(t, err, ErrNotAuthorized)

	f.clock.Advance(6 * 24 * time.Hour)
	pending := listedIDs(t, f, f.mod2, ListFilter{Status: "pending"})
	assert.Contains(t, pending, c.ID)

	got, err := f.svc.Resolve(ctx, f.mod2, models.KindContribution, c.ID, Resolution{Status: "approved", Notes: "picked up"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	require.NotNil(t, got.ResolvedBy)
	assert.Equal(t, f.mod2.UserID, *got.ResolvedBy)
	assert.Equal(t, "Bar", f.anime(t, 42).Title)

	// The original claimant can no longer act on it.
	_, err = f.svc.Resolve(ctx, f.mod1, models.KindContribution, c.ID, Resolution{Status: "rejected"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStatusMessage(t *testing.T) {
	c := &models.Case{Kind: models.KindContentReport}
	c.SubjectType = "anime"
	c.SubjectID = "42"
	c.Status = models.StatusDismissed
	c.ResolutionNotes = "not inaccurate"
	assert.Equal(t, "Your report on anime #42 was dismissed: not inaccurate", statusMessage(c))

	c.Kind = models.KindContribution
	c.Status = models.StatusPending
	assert.Equal(t, "Your contribution to anime #42 is pending again.", statusMessage(c))
}
