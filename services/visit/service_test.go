package visit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"linklock/pkg/config"
	"linklock/pkg/errutil"
	"linklock/services/analytics"
	"linklock/services/attribution"
	"linklock/services/catalog"
	"linklock/services/geo"
	"linklock/services/locker"
	"linklock/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const windowsUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"

type fakeEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	return &asynq.TaskInfo{}, nil
}

type testEnv struct {
	svc       *Service
	db        *gorm.DB
	enqueuer  *fakeEnqueuer
	analytics analytics.Repository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t,
		&catalog.Task{},
		&locker.Locker{},
		&attribution.Account{},
		&attribution.RevenueEvent{},
		&analytics.Event{},
	)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	geoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"country":"US"}`))
	}))
	t.Cleanup(geoSrv.Close)

	cfg := &config.Config{}
	cfg.Geo.Endpoint = geoSrv.URL
	cfg.Geo.Timeout = time.Second
	cfg.Geo.FallbackCountry = "US"
	cfg.Gate.DwellDuration = 60 * time.Second
	cfg.Gate.CatalogCacheTTL = time.Minute

	enq := &fakeEnqueuer{}
	analyticsRepo := analytics.NewRepository(db)

	svc := NewService(ServiceParams{
		Store:    NewMemoryStore(),
		Resolver: geo.NewResolver(geo.ResolverParams{Cfg: cfg}),
		Catalog: catalog.NewService(catalog.ServiceParams{
			Repository: catalog.NewRepository(db),
			Node:       node,
			Cfg:        cfg,
		}),
		Lockers: locker.NewService(locker.ServiceParams{
			Repository: locker.NewRepository(db),
		}),
		Attribution: attribution.NewService(attribution.ServiceParams{DB: db, Node: node}),
		Analytics: analytics.NewService(analytics.ServiceParams{
			Repository: analyticsRepo,
			Node:       node,
		}),
		Enqueuer: enq,
		Cfg:      cfg,
	})

	return &testEnv{svc: svc, db: db, enqueuer: enq, analytics: analyticsRepo}
}

func (e *testEnv) seedLocker(t *testing.T) {
	t.Helper()
	require.NoError(t, e.db.Create(&locker.Locker{
		ID:             "abc12",
		OwnerID:        "creator-1",
		Title:          "My pack",
		DestinationURL: "https://example.com/pack.zip",
	}).Error)
}

func (e *testEnv) seedTask(t *testing.T, id, adURL string, devices ...string) {
	t.Helper()
	require.NoError(t, e.db.Create(&catalog.Task{
		ID:       id,
		Title:    "Task " + id,
		AdURL:    adURL,
		Devices:  datatypes.NewJSONSlice(devices),
		CPMTier1: "5.00",
		CPMTier2: "2.80",
		CPMTier3: "0.90",
		Status:   catalog.StatusActive,
	}).Error)
}

func (e *testEnv) start(t *testing.T) *Visit {
	t.Helper()
	visit, err := e.svc.Start(context.Background(), StartInput{
		LockerID:  "abc12",
		UserAgent: windowsUA,
		IP:        "203.0.113.7",
	})
	require.NoError(t, err)
	return visit
}

func TestStartVisit(t *testing.T) {
	env := newTestEnv(t)
	env.seedLocker(t)
	env.seedTask(t, "task-1", "https://ads.example.com/1", "Windows")
	env.seedTask(t, "task-2", "https://ads.example.com/2", "Windows", "Mac")
	env.seedTask(t, "task-3", "https://ads.example.com/3", "Android")

	visit := env.start(t)

	require.Equal(t, "abc12", visit.LockerID)
	require.Equal(t, geo.DeviceWindows, visit.Device)
	require.Equal(t, "US", visit.Country)
	require.Equal(t, geo.Tier1, visit.Tier)
	require.Len(t, visit.Tasks, 2)
	require.Equal(t, StatePending, visit.Tasks[0].State)

	count, err := env.analytics.CountByType(context.Background(), "abc12", analytics.EventVisit)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestStartVisitUnknownLocker(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Start(context.Background(), StartInput{LockerID: "nope1", UserAgent: windowsUA})
	require.Error(t, err)

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusNotFound, be.Status())
}

func TestEmptyGateUnlocksForFree(t *testing.T) {
	env := newTestEnv(t)
	env.seedLocker(t)

	visit := env.start(t)
	require.Empty(t, visit.Tasks)
	require.True(t, visit.AllCompleted())

	unlocked, err := env.svc.Unlock(context.Background(), visit.ID)
	require.NoError(t, err)
	require.True(t, unlocked.Unlocked)
	require.Equal(t, "https://example.com/pack.zip", unlocked.DestinationURL)
}

func TestClickTaskSchedulesDwellCompletion(t *testing.T) {
	env := newTestEnv(t)
	env.seedLocker(t)
	env.seedTask(t, "task-1", "https://ads.example.com/1", "Windows")

	visit := env.start(t)

	state, err := env.svc.ClickTask(context.Background(), visit.ID, "task-1")
	require.NoError(t, err)
	require.Equal(t, StateInProgress, state.State)
	require.NotNil(t, state.StartedAt)

	require.Len(t, env.enqueuer.tasks, 1)
	require.Equal(t, TypeCompleteTask, env.enqueuer.tasks[0].Type())

	var delay time.Duration
	for _, opt := range env.enqueuer.opts[0] {
		if opt.Type() == asynq.ProcessInOpt {
			delay = opt.Value().(time.Duration)
		}
	}
	require.Equal(t, 60*time.Second, delay)
}

func TestClickTaskIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.seedLocker(t)
	env.seedTask(t, "task-1", "https://ads.example.com/1", "Windows")

	visit := env.start(t)

	_, err := env.svc.ClickTask(context.Background(), visit.ID, "task-1")
	require.NoError(t, err)

	state, err := env.svc.ClickTask(context.Background(), visit.ID, "task-1")
	require.NoError(t, err)
	require.Equal(t, StateInProgress, state.State)

	// A re-click must not schedule a second timer.
	require.Len(t, env.enqueuer.tasks, 1)
}

func TestClickTaskWithoutAdURL(t *testing.T) {
	env := newTestEnv(t)
	env.seedLocker(t)
	env.seedTask(t, "task-1", "", "Windows")

	visit := env.start(t)

	_, err := env.svc.ClickTask(context.Background(), visit.ID, "task-1")
	require.Error(t, err)

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusUnprocessableEntity, be.Status())
}

func TestClickTaskNotInGate(t *testing.T) {
	env := newTestEnv(t)
	env.seedLocker(t)
	env.seedTask(t, "task-1", "https://ads.example.com/1", "Windows")

	visit := env.start(t)

	_, err := env.svc.ClickTask(context.Background(), visit.ID, "other")
	require.Error(t, err)

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusNotFound, be.Status())
}

func TestUnlockBlockedWhileTasksPending(t *testing.T) {
	env := newTestEnv(t)
	env.seedLocker(t)
	env.seedTask(t, "task-1", "https://ads.example.com/1", "Windows")

	visit := env.start(t)

	_, err := env.svc.Unlock(context.Background(), visit.ID)
	require.Error(t, err)

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusUnprocessableEntity, be.Status())
}

func TestCompleteTaskCreditsAndUnlocks(t *testing.T) {
	env := newTestEnv(t)
	env.seedLocker(t)
	env.seedTask(t, "task-1", "https://ads.example.com/1", "Windows")
	env.seedTask(t, "task-2", "https://ads.example.com/2", "Windows")

	visit := env.start(t)
	ctx := context.Background()

	for _, taskID := range []string{"task-1", "task-2"} {
		_, err := env.svc.ClickTask(ctx, visit.ID, taskID)
		require.NoError(t, err)
		require.NoError(t, env.svc.CompleteTask(ctx, visit.ID, taskID))
	}

	unlocked, err := env.svc.Unlock(ctx, visit.ID)
	require.NoError(t, err)
	require.True(t, unlocked.Unlocked)
	require.Equal(t, "https://example.com/pack.zip", unlocked.DestinationURL)

	// Two tier-1 completions at 5.00 CPM.
	var account attribution.Account
	require.NoError(t, env.db.Where("id = ?", "creator-1").First(&account).Error)
	require.InDelta(t, 0.01, account.Balance, 1e-9)

	count, err := env.analytics.CountByType(ctx, "abc12", analytics.EventTaskComplete)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	count, err = env.analytics.CountByType(ctx, "abc12", analytics.EventUnlock)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestCompleteTaskDuplicateDeliveryCreditsOnce(t *testing.T) {
	env := newTestEnv(t)
	env.seedLocker(t)
	env.seedTask(t, "task-1", "https://ads.example.com/1", "Windows")

	visit := env.start(t)
	ctx := context.Background()

	_, err := env.svc.ClickTask(ctx, visit.ID, "task-1")
	require.NoError(t, err)

	require.NoError(t, env.svc.CompleteTask(ctx, visit.ID, "task-1"))
	require.NoError(t, env.svc.CompleteTask(ctx, visit.ID, "task-1"))

	var count int64
	require.NoError(t, env.db.Model(&attribution.RevenueEvent{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	var account attribution.Account
	require.NoError(t, env.db.Where("id = ?", "creator-1").First(&account).Error)
	require.InDelta(t, 0.005, account.Balance, 1e-9)
}

func TestCompleteTaskRetriesAfterAttributionFailure(t *testing.T) {
	env := newTestEnv(t)
	env.seedLocker(t)
	env.seedTask(t, "task-1", "https://ads.example.com/1", "Windows")

	visit := env.start(t)
	ctx := context.Background()

	_, err := env.svc.ClickTask(ctx, visit.ID, "task-1")
	require.NoError(t, err)

	// A storage failure during attribution must fail the job so asynq
	// redelivers it, and must leave the task in progress.
	require.NoError(t, env.db.Migrator().DropTable(&attribution.RevenueEvent{}))
	require.Error(t, env.svc.CompleteTask(ctx, visit.ID, "task-1"))

	got, err := env.svc.Get(ctx, visit.ID)
	require.NoError(t, err)
	require.Equal(t, StateInProgress, got.Task("task-1").State)

	// The redelivered job lands the credit once storage recovers.
	require.NoError(t, env.db.AutoMigrate(&attribution.RevenueEvent{}))
	require.NoError(t, env.svc.CompleteTask(ctx, visit.ID, "task-1"))

	var count int64
	require.NoError(t, env.db.Model(&attribution.RevenueEvent{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	var account attribution.Account
	require.NoError(t, env.db.Where("id = ?", "creator-1").First(&account).Error)
	require.InDelta(t, 0.005, account.Balance, 1e-9)

	got, err = env.svc.Get(ctx, visit.ID)
	require.NoError(t, err)
	require.Equal(t, StateCompleted, got.Task("task-1").State)
}

func TestConcurrentCompletionsAllowUnlock(t *testing.T) {
	env := newTestEnv(t)
	env.seedLocker(t)
	env.seedTask(t, "task-1", "https://ads.example.com/1", "Windows")
	env.seedTask(t, "task-2", "https://ads.example.com/2", "Windows")

	visit := env.start(t)
	ctx := context.Background()

	for _, id := range []string{"task-1", "task-2"} {
		_, err := env.svc.ClickTask(ctx, visit.ID, id)
		require.NoError(t, err)
	}

	var g errgroup.Group
	for _, id := range []string{"task-1", "task-2"} {
		g.Go(func() error {
			return env.svc.CompleteTask(ctx, visit.ID, id)
		})
	}
	require.NoError(t, g.Wait())

	unlocked, err := env.svc.Unlock(ctx, visit.ID)
	require.NoError(t, err)
	require.True(t, unlocked.Unlocked)

	var count int64
	require.NoError(t, env.db.Model(&attribution.RevenueEvent{}).Count(&count).Error)
	require.Equal(t, int64(2), count)
}

func TestCompleteTaskExpiredSession(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.svc.CompleteTask(context.Background(), "gone", "task-1"))

	var count int64
	require.NoError(t, env.db.Model(&attribution.RevenueEvent{}).Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestUnlockIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.seedLocker(t)

	visit := env.start(t)
	ctx := context.Background()

	first, err := env.svc.Unlock(ctx, visit.ID)
	require.NoError(t, err)

	second, err := env.svc.Unlock(ctx, visit.ID)
	require.NoError(t, err)
	require.Equal(t, first.DestinationURL, second.DestinationURL)

	count, err := env.analytics.CountByType(ctx, "abc12", analytics.EventUnlock)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestDropoffRecordsProgress(t *testing.T) {
	env := newTestEnv(t)
	env.seedLocker(t)
	for _, id := range []string{"task-1", "task-2", "task-3", "task-4"} {
		env.seedTask(t, id, "https://ads.example.com/"+id, "Windows")
	}

	visit := env.start(t)
	ctx := context.Background()

	for _, id := range []string{"task-1", "task-2", "task-3"} {
		_, err := env.svc.ClickTask(ctx, visit.ID, id)
		require.NoError(t, err)
		require.NoError(t, env.svc.CompleteTask(ctx, visit.ID, id))
	}

	require.NoError(t, env.svc.Dropoff(ctx, visit.ID))

	events, err := env.analytics.ListByLocker(ctx, "abc12")
	require.NoError(t, err)

	var dropoff *analytics.Event
	for i := range events {
		if events[i].EventType == analytics.EventDropoff {
			dropoff = &events[i]
		}
	}
	require.NotNil(t, dropoff)
	require.Equal(t, 3, dropoff.Completed)
}

func TestHandleCompleteTask(t *testing.T) {
	env := newTestEnv(t)
	env.seedLocker(t)
	env.seedTask(t, "task-1", "https://ads.example.com/1", "Windows")

	visit := env.start(t)
	ctx := context.Background()

	_, err := env.svc.ClickTask(ctx, visit.ID, "task-1")
	require.NoError(t, err)

	job, err := NewCompleteTaskTask(visit.ID, "task-1")
	require.NoError(t, err)
	require.NoError(t, env.svc.HandleCompleteTask(ctx, job))

	got, err := env.svc.Get(ctx, visit.ID)
	require.NoError(t, err)
	require.Equal(t, StateCompleted, got.Task("task-1").State)
}
