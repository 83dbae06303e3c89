package locker

import (
	"context"
	"errors"
	"testing"

	"linklock/pkg/errutil"
	"linklock/pkg/shortid"
	"linklock/services/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type repoMock struct {
	createFn      func(ctx context.Context, locker *Locker) error
	getByIDFn     func(ctx context.Context, lockerID string) (*Locker, error)
	listByOwnerFn func(ctx context.Context, ownerID string) ([]Locker, error)
	updateFn      func(ctx context.Context, locker *Locker) error
}

func (m *repoMock) Create(ctx context.Context, locker *Locker) error {
	if m.createFn != nil {
		return m.createFn(ctx, locker)
	}
	return nil
}

func (m *repoMock) GetByID(ctx context.Context, lockerID string) (*Locker, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, lockerID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *repoMock) ListByOwner(ctx context.Context, ownerID string) ([]Locker, error) {
	if m.listByOwnerFn != nil {
		return m.listByOwnerFn(ctx, ownerID)
	}
	return nil, nil
}

func (m *repoMock) Update(ctx context.Context, locker *Locker) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, locker)
	}
	return nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := testutil.NewTestDB(t, &Locker{})
	return NewService(ServiceParams{Repository: NewRepository(db)})
}

func TestCreateLocker(t *testing.T) {
	svc := newTestService(t)

	locker, err := svc.Create(context.Background(), "creator-1", "My pack", "https://example.com/pack.zip")
	require.NoError(t, err)
	require.Len(t, locker.ID, shortid.DefaultLength)
	require.Equal(t, "creator-1", locker.OwnerID)

	got, err := svc.Get(context.Background(), locker.ID)
	require.NoError(t, err)
	require.Equal(t, "https://example.com/pack.zip", got.DestinationURL)
}

func TestCreateLockerRequiresDestination(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), "creator-1", "My pack", "")
	require.Error(t, err)

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusBadRequest, be.Status())
}

func TestCreateLockerRetriesOnSlugCollision(t *testing.T) {
	attempts := 0
	svc := &Service{repo: &repoMock{
		createFn: func(ctx context.Context, locker *Locker) error {
			attempts++
			if attempts == 1 {
				return gorm.ErrDuplicatedKey
			}
			return nil
		},
	}}

	locker, err := svc.Create(context.Background(), "creator-1", "t", "https://example.com")
	require.NoError(t, err)
	require.NotEmpty(t, locker.ID)
	require.Equal(t, 2, attempts)
}

func TestCreateLockerExhaustsAttempts(t *testing.T) {
	svc := &Service{repo: &repoMock{
		createFn: func(ctx context.Context, locker *Locker) error {
			return gorm.ErrDuplicatedKey
		},
	}}

	_, err := svc.Create(context.Background(), "creator-1", "t", "https://example.com")
	require.Error(t, err)
}

func TestGetLockerNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Get(context.Background(), "nope1")
	require.Error(t, err)

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusNotFound, be.Status())
}

func TestListByOwner(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "creator-1", "a", "https://example.com/a")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "creator-1", "b", "https://example.com/b")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "creator-2", "c", "https://example.com/c")
	require.NoError(t, err)

	lockers, err := svc.ListByOwner(ctx, "creator-1")
	require.NoError(t, err)
	require.Len(t, lockers, 2)
}

func TestUpdateLockerOwnerMismatch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	locker, err := svc.Create(ctx, "creator-1", "a", "https://example.com/a")
	require.NoError(t, err)

	_, err = svc.Update(ctx, "creator-2", locker.ID, "stolen", "")
	require.Error(t, err)

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusForbidden, be.Status())
}

func TestUpdateLockerKeepsBlankFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	locker, err := svc.Create(ctx, "creator-1", "a", "https://example.com/a")
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "creator-1", locker.ID, "renamed", "")
	require.NoError(t, err)
	require.Equal(t, "renamed", updated.Title)
	require.Equal(t, "https://example.com/a", updated.DestinationURL)
}
