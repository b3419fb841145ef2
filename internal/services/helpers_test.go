package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/dto"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/identity"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/models"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/notify"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recorder struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (r *recorder) Notify(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return r.err
}

func (r *recorder) messages() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.msgs...)
}

type fixture struct {
	db    *gorm.DB
	svc   *CaseService
	clock *testutil.Clock
	rec   *recorder

	author   identity.Identity
	reporter identity.Identity
	mod1     identity.Identity
	mod2     identity.Identity
	admin    identity.Identity
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	clock := testutil.NewClock()
	rec := &recorder{}

	opts = append([]Option{WithClock(clock.Now)}, opts...)
	f := &fixture{
		db:    db,
		svc:   NewCaseService(db, rec, opts...),
		clock: clock,
		rec:   rec,
	}

	resolver := identity.NewResolver(db, "")
	asIdentity := func(name, role string) identity.Identity {
		u := testutil.CreateUser(t, db, name, role)
		return resolver.FromUser(&u)
	}
	f.author = asIdentity("author", models.RoleUser)
	f.reporter = asIdentity("reporter", models.RoleScan)
	f.mod1 = asIdentity("mod1", models.RoleModerator)
	f.mod2 = asIdentity("mod2", models.RoleModerator)
	f.admin = asIdentity("admin", models.RoleAdmin)

	testutil.CreateAnime(t, db, 42, "Foo", 12)
	return f
}

func (f *fixture) contribution(t *testing.T, changes map[string]models.FieldChange) *models.Case {
	t.Helper()
	c, err := f.svc.CreateContribution(context.Background(), f.author, &dto.CreateContributionRequest{
		SubjectType: "anime",
		SubjectID:   "42",
		Changes:     changes,
		Notes:       "fixing the title",
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) titleContribution(t *testing.T) *models.Case {
	return f.contribution(t, map[string]models.FieldChange{
		"title": {Old: "Foo", New: "Bar"},
	})
}

func (f *fixture) comment(t *testing.T, owner identity.Identity) models.Comment {
	t.Helper()
	c := models.Comment{AuthorID: owner.UserID, Body: "first!"}
	require.NoError(t, f.db.Create(&c).Error)
	return c
}

func (f *fixture) anime(t *testing.T, id uint) models.Anime {
	t.Helper()
	var a models.Anime
	require.NoError(t, f.db.First(&a, id).Error)
	return a
}

func (f *fixture) reload(t *testing.T, c *models.Case) *models.Case {
	t.Helper()
	got, err := f.svc.load(f.db, c.Kind, c.ID)
	require.NoError(t, err)
	return got
}

func alreadyAssignedTo(t *testing.T, err error) *AlreadyAssignedError {
	t.Helper()
	var aerr *AlreadyAssignedError
	require.True(t, errors.As(err, &aerr), "expected AlreadyAssignedError, got %v", err)
	return aerr
}

func subjectRef(id uint) dto.SubjectRef {
	return dto.SubjectRef(strconv.FormatUint(uint64(id), 10))
}
