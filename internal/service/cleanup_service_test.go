package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"org-lifecycle/internal/event"
	"org-lifecycle/internal/model"
)

const week = 7 * 24 * time.Hour

func archived(id int64, age time.Duration) model.Organization {
	at := testNow.Add(-age)
	return model.Organization{ID: id, Name: "Org", Status: model.OrganizationArchived, ArchivedAt: &at}
}

func newCleanup(store CleanupStore) (*CleanupService, *recordingPublisher, *countingRecorder) {
	publisher := &recordingPublisher{}
	recorder := &countingRecorder{}
	svc := NewCleanupService(store, week, WorkflowDeps{
		Authorizer: enforcingAuthorizer(),
		Publisher:  publisher,
		Metrics:    recorder,
		Now:        fixedClock,
	})
	return svc, publisher, recorder
}

func TestCleanupService_Run(t *testing.T) {
	t.Run("one failing organization does not stop the batch", func(t *testing.T) {
		store := new(MockCleanupStore)
		orgA, orgB := archived(1, 9*24*time.Hour), archived(2, 8*24*time.Hour)

		store.On("SchedulePending", mock.Anything, week).Return(int64(0), nil)
		store.On("ListPurgeEligible", mock.Anything, testNow.Add(-week)).Return([]model.Organization{orgA, orgB}, nil)
		store.On("Purge", mock.Anything, orgA, testNow).Return(model.TaskData{}, model.StoreError("purge organization_documents", errors.New("boom")))
		store.On("Purge", mock.Anything, orgB, testNow).Return(model.TaskData{
			OrganizationID: 2,
			Purged:         []model.PurgedTable{{Table: "jobs", Rows: 4}, {Table: "organizations", Rows: 1}},
		}, nil)

		svc, publisher, recorder := newCleanup(store)
		report, err := svc.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 2, report.Eligible)
		assert.Equal(t, 1, report.Processed)
		require.Len(t, report.Failed, 1)
		assert.Equal(t, int64(1), report.Failed[0].OrganizationID)
		assert.Contains(t, report.Failed[0].Reason, "organization_documents")
		assert.Equal(t, testNow.Add(-week), report.Cutoff)

		assert.Equal(t, []event.Type{event.TypeOrganizationPurged, event.TypeArchiveCleanupFinished}, publisher.types())
		assert.Equal(t, int64(2), publisher.events[0].Subject)
		assert.Equal(t, []error{nil}, recorder.runs)
		store.AssertExpectations(t)
	})

	t.Run("selection failure aborts the run", func(t *testing.T) {
		store := new(MockCleanupStore)
		selectErr := model.StoreError("list purge eligible", errors.New("connection refused"))
		store.On("SchedulePending", mock.Anything, week).Return(int64(0), nil)
		store.On("ListPurgeEligible", mock.Anything, mock.Anything).Return(nil, selectErr)

		svc, publisher, recorder := newCleanup(store)
		_, err := svc.Run(context.Background())
		require.ErrorIs(t, err, model.ErrStore)

		store.AssertNotCalled(t, "Purge", mock.Anything, mock.Anything, mock.Anything)
		assert.Empty(t, publisher.types())
		require.Len(t, recorder.runs, 1)
		assert.Error(t, recorder.runs[0])
	})

	t.Run("scheduling failure is not fatal", func(t *testing.T) {
		store := new(MockCleanupStore)
		store.On("SchedulePending", mock.Anything, week).Return(int64(0), errors.New("read-only replica"))
		store.On("ListPurgeEligible", mock.Anything, mock.Anything).Return([]model.Organization{}, nil)

		svc, _, _ := newCleanup(store)
		report, err := svc.Run(context.Background())
		require.NoError(t, err)
		assert.Zero(t, report.Eligible)
		assert.NotNil(t, report.Failed)
	})

	t.Run("overlapping runs are refused", func(t *testing.T) {
		store := new(MockCleanupStore)
		org := archived(5, 10*24*time.Hour)
		release := make(chan struct{})
		entered := make(chan struct{})

		store.On("SchedulePending", mock.Anything, week).Return(int64(0), nil)
		store.On("ListPurgeEligible", mock.Anything, mock.Anything).Return([]model.Organization{org}, nil)
		store.On("Purge", mock.Anything, org, testNow).Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).Return(model.TaskData{OrganizationID: 5}, nil)

		svc, _, _ := newCleanup(store)
		done := make(chan error, 1)
		go func() {
			_, err := svc.Run(context.Background())
			done <- err
		}()

		<-entered
		_, err := svc.Run(context.Background())
		require.ErrorIs(t, err, model.ErrCleanupInProgress)

		close(release)
		require.NoError(t, <-done)
	})

	t.Run("cancelled context stops between organizations", func(t *testing.T) {
		store := new(MockCleanupStore)
		orgA, orgB := archived(1, 9*24*time.Hour), archived(2, 8*24*time.Hour)
		ctx, cancel := context.WithCancel(context.Background())

		store.On("SchedulePending", mock.Anything, week).Return(int64(0), nil)
		store.On("ListPurgeEligible", mock.Anything, mock.Anything).Return([]model.Organization{orgA, orgB}, nil)
		store.On("Purge", mock.Anything, orgA, testNow).Run(func(mock.Arguments) { cancel() }).Return(model.TaskData{}, nil)

		svc, _, _ := newCleanup(store)
		report, err := svc.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Processed)
		store.AssertNotCalled(t, "Purge", mock.Anything, orgB, mock.Anything)
	})
}

func TestCleanupService_TriggerAndListTasks(t *testing.T) {
	store := new(MockCleanupStore)
	store.On("SchedulePending", mock.Anything, week).Return(int64(1), nil)
	store.On("ListPurgeEligible", mock.Anything, mock.Anything).Return([]model.Organization{}, nil)
	store.On("ListTasks", mock.Anything, model.TaskCompleted, 20).Return([]model.ScheduledTask{{ID: 1, OrganizationID: 4}}, nil)

	svc, _, _ := newCleanup(store)
	ctx := context.Background()

	_, err := svc.Trigger(ctx, requester)
	require.ErrorIs(t, err, model.ErrForbidden)

	_, err = svc.Trigger(ctx, operator)
	require.NoError(t, err)

	tasks, err := svc.ListTasks(ctx, operator, "completed", 20)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	_, err = svc.ListTasks(ctx, operator, "running", 20)
	require.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.ListTasks(ctx, manager, "", 20)
	require.ErrorIs(t, err, model.ErrForbidden)
}

func TestCleanupService_StartTicker(t *testing.T) {
	store := new(MockCleanupStore)
	ran := make(chan struct{}, 4)
	store.On("SchedulePending", mock.Anything, week).Return(int64(0), nil)
	store.On("ListPurgeEligible", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		ran <- struct{}{}
	}).Return([]model.Organization{}, nil)

	svc, _, _ := newCleanup(store)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		svc.StartTicker(ctx, time.Hour, true)
		close(stopped)
	}()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup did not run on start")
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("ticker did not stop")
	}
}
