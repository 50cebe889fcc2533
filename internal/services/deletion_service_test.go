package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/desp-aas/project-management/internal/metrics"
	"github.com/desp-aas/project-management/internal/models"
	"github.com/desp-aas/project-management/internal/provisioner"
	"github.com/desp-aas/project-management/internal/repository"
	"github.com/desp-aas/project-management/internal/supervisor"
	"github.com/desp-aas/project-management/internal/testutil"
	appErr "github.com/desp-aas/project-management/pkg/errors"
	"github.com/google/uuid"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type deletionFixture struct {
	db       *gorm.DB
	catalog  testutil.Catalog
	prov     *mockProvisioner
	realms   *mockRealms
	sup      *supervisor.Supervisor
	projects repository.ProjectRepository
	svc      DeletionService
}

func newDeletionFixture(t *testing.T, timeout time.Duration) *deletionFixture {
	t.Helper()
	db := testutil.NewDB(t)
	return newDeletionFixtureOn(t, db, testutil.SeedCatalog(t, db), timeout)
}

// newDeletionFixtureOn builds a fresh service over an existing database, as a restarted process would.
func newDeletionFixtureOn(t *testing.T, db *gorm.DB, catalog testutil.Catalog, timeout time.Duration) *deletionFixture {
	t.Helper()
	f := &deletionFixture{
		db:       db,
		catalog:  catalog,
		prov:     &mockProvisioner{},
		realms:   &mockRealms{},
		sup:      supervisor.New(),
		projects: repository.NewProjectRepository(db),
	}
	t.Cleanup(func() { _ = f.sup.Shutdown(context.Background()) })
	f.svc = NewDeletionService(DeletionDeps{
		Projects:     f.projects,
		Servers:      repository.NewServerRepository(db),
		Provisioner:  f.prov,
		Realms:       f.realms,
		Supervisor:   f.sup,
		PollInterval: 5 * time.Millisecond,
		Timeout:      timeout,
	})
	return f
}

func (f *deletionFixture) requireGone(t *testing.T, id uuid.UUID) {
	t.Helper()
	err := f.projects.GetByID(context.Background(), id, &models.Project{})
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	var n int64
	require.NoError(t, f.db.Model(&models.Server{}).Where("project_id = ?", id).Count(&n).Error)
	require.Zero(t, n)
	require.NoError(t, f.db.Model(&models.Event{}).Where("project_id = ?", id).Count(&n).Error)
	require.Zero(t, n)
}

func (f *deletionFixture) requireKept(t *testing.T, id uuid.UUID) {
	t.Helper()
	require.NoError(t, f.projects.GetByID(context.Background(), id, &models.Project{}))
}

func live(id uuid.UUID) *models.Server {
	return &models.Server{ID: id, State: "ACTIVE"}
}

func TestDeleteProjectWithoutServer(t *testing.T) {
	f := newDeletionFixture(t, time.Second)
	p := testutil.SeedProject(t, f.db, f.catalog, nil)
	require.NoError(t, f.db.Create(&models.Event{ProjectID: p.ID, Type: models.EventTypePipeline, Content: "x"}).Error)
	f.realms.On("CleanupRealm", mock.Anything, p.ID).Return(nil)

	ticket, err := f.svc.DeleteProject(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, DeletionAccepted, ticket.Status)
	require.False(t, ticket.AwaitingServer)

	f.sup.Wait()
	f.requireGone(t, p.ID)
	f.realms.AssertExpectations(t)
	f.prov.AssertNotCalled(t, "DeleteServer", mock.Anything, mock.Anything)
}

func TestDeleteProjectWithDeletedServer(t *testing.T) {
	f := newDeletionFixture(t, time.Second)
	p := testutil.SeedProject(t, f.db, f.catalog, &models.Server{ID: uuid.New(), State: models.ServerStateDeleted})
	f.realms.On("CleanupRealm", mock.Anything, p.ID).Return(nil)

	ticket, err := f.svc.DeleteProject(context.Background(), p.ID)
	require.NoError(t, err)
	require.False(t, ticket.AwaitingServer)

	f.sup.Wait()
	f.requireGone(t, p.ID)
	f.prov.AssertNotCalled(t, "DeleteServer", mock.Anything, mock.Anything)
	f.prov.AssertNotCalled(t, "GetServer", mock.Anything, mock.Anything)
}

func TestDeleteProjectAwaitsServer(t *testing.T) {
	t.Run("reported deleted after polling", func(t *testing.T) {
		f := newDeletionFixture(t, time.Second)
		serverID := uuid.New()
		p := testutil.SeedProject(t, f.db, f.catalog, live(serverID))
		f.realms.On("CleanupRealm", mock.Anything, p.ID).Return(nil)
		f.prov.On("DeleteServer", mock.Anything, serverID).Return(nil)
		f.prov.On("GetServer", mock.Anything, serverID).
			Return(&provisioner.ServerStatus{Found: true, ServerInfo: provisioner.ServerInfo{ID: serverID, State: "DELETING"}}, nil).Times(2)
		f.prov.On("GetServer", mock.Anything, serverID).
			Return(nil, appErr.Remote(appErr.ServiceVMManagement, errors.New("status 500"), "get server failed")).Once()
		f.prov.On("GetServer", mock.Anything, serverID).
			Return(&provisioner.ServerStatus{Found: true, ServerInfo: provisioner.ServerInfo{ID: serverID, State: models.ServerStateDeleted}}, nil)

		before := promtest.ToFloat64(metrics.ServerWaitOutcomes.WithLabelValues("succeeded"))

		ticket, err := f.svc.DeleteProject(context.Background(), p.ID)
		require.NoError(t, err)
		require.True(t, ticket.AwaitingServer)

		f.sup.Wait()
		f.requireGone(t, p.ID)
		f.prov.AssertNumberOfCalls(t, "GetServer", 4)
		require.Equal(t, before+1, promtest.ToFloat64(metrics.ServerWaitOutcomes.WithLabelValues("succeeded")))
	})

	t.Run("server gone", func(t *testing.T) {
		f := newDeletionFixture(t, time.Second)
		serverID := uuid.New()
		p := testutil.SeedProject(t, f.db, f.catalog, live(serverID))
		f.realms.On("CleanupRealm", mock.Anything, p.ID).Return(nil)
		f.prov.On("DeleteServer", mock.Anything, serverID).Return(nil)
		f.prov.On("GetServer", mock.Anything, serverID).Return(&provisioner.ServerStatus{Found: false}, nil)

		_, err := f.svc.DeleteProject(context.Background(), p.ID)
		require.NoError(t, err)

		f.sup.Wait()
		f.requireGone(t, p.ID)
		f.prov.AssertNumberOfCalls(t, "GetServer", 1)
	})

	t.Run("timeout still deletes the project", func(t *testing.T) {
		f := newDeletionFixture(t, 50*time.Millisecond)
		serverID := uuid.New()
		p := testutil.SeedProject(t, f.db, f.catalog, live(serverID))
		f.realms.On("CleanupRealm", mock.Anything, p.ID).Return(nil)
		f.prov.On("DeleteServer", mock.Anything, serverID).Return(nil)
		f.prov.On("GetServer", mock.Anything, serverID).
			Return(&provisioner.ServerStatus{Found: true, ServerInfo: provisioner.ServerInfo{ID: serverID, State: "ACTIVE"}}, nil)

		before := promtest.ToFloat64(metrics.ServerWaitOutcomes.WithLabelValues("timed_out"))

		ticket, err := f.svc.DeleteProject(context.Background(), p.ID)
		require.NoError(t, err)
		require.True(t, ticket.AwaitingServer)

		f.sup.Wait()
		f.requireGone(t, p.ID)
		require.Equal(t, before+1, promtest.ToFloat64(metrics.ServerWaitOutcomes.WithLabelValues("timed_out")))
	})
}

func TestDeleteProjectServerRefused(t *testing.T) {
	f := newDeletionFixture(t, time.Second)
	serverID := uuid.New()
	p := testutil.SeedProject(t, f.db, f.catalog, live(serverID))
	f.prov.On("DeleteServer", mock.Anything, serverID).
		Return(appErr.Remote(appErr.ServiceVMManagement, errors.New("status 500"), "server deletion was not accepted"))

	_, err := f.svc.DeleteProject(context.Background(), p.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeRemoteService))

	f.sup.Wait()
	f.requireKept(t, p.ID)
	f.realms.AssertNotCalled(t, "CleanupRealm", mock.Anything, mock.Anything)
}

func TestDeleteProjectServerAlreadyGone(t *testing.T) {
	f := newDeletionFixture(t, time.Second)
	serverID := uuid.New()
	p := testutil.SeedProject(t, f.db, f.catalog, live(serverID))
	f.realms.On("CleanupRealm", mock.Anything, p.ID).Return(nil)
	f.prov.On("DeleteServer", mock.Anything, serverID).Return(appErr.New(appErr.CodeNotFound, "server not found"))

	ticket, err := f.svc.DeleteProject(context.Background(), p.ID)
	require.NoError(t, err)
	require.False(t, ticket.AwaitingServer)

	f.sup.Wait()
	f.requireGone(t, p.ID)
	f.prov.AssertNotCalled(t, "GetServer", mock.Anything, mock.Anything)
}

func TestDeleteProjectIgnoresCleanupFailure(t *testing.T) {
	f := newDeletionFixture(t, time.Second)
	p := testutil.SeedProject(t, f.db, f.catalog, nil)
	f.realms.On("CleanupRealm", mock.Anything, p.ID).Return(appErr.Setup(errors.New("down"), "failed to initialize keycloak admin"))

	_, err := f.svc.DeleteProject(context.Background(), p.ID)
	require.NoError(t, err)

	f.sup.Wait()
	f.requireGone(t, p.ID)
}

func TestDeleteProjectNotFound(t *testing.T) {
	f := newDeletionFixture(t, time.Second)
	_, err := f.svc.DeleteProject(context.Background(), uuid.New())
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestDeleteProjectAbortsOnShutdown(t *testing.T) {
	f := newDeletionFixture(t, time.Minute)
	serverID := uuid.New()
	p := testutil.SeedProject(t, f.db, f.catalog, live(serverID))
	f.prov.On("DeleteServer", mock.Anything, serverID).Return(nil)
	f.prov.On("GetServer", mock.Anything, serverID).
		Return(&provisioner.ServerStatus{Found: true, ServerInfo: provisioner.ServerInfo{ID: serverID, State: "ACTIVE"}}, nil)

	_, err := f.svc.DeleteProject(context.Background(), p.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.sup.Shutdown(ctx))

	f.requireKept(t, p.ID)
	f.realms.AssertNotCalled(t, "CleanupRealm", mock.Anything, mock.Anything)

	_, err = f.svc.DeleteProject(context.Background(), p.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeUnavailable))
}

func TestDeleteProjectRetriedAfterRestart(t *testing.T) {
	first := newDeletionFixture(t, time.Minute)
	serverID := uuid.New()
	p := testutil.SeedProject(t, first.db, first.catalog, live(serverID))
	first.prov.On("DeleteServer", mock.Anything, serverID).Return(nil)
	first.prov.On("GetServer", mock.Anything, serverID).
		Return(&provisioner.ServerStatus{Found: true, ServerInfo: provisioner.ServerInfo{ID: serverID, State: "DELETING"}}, nil)

	_, err := first.svc.DeleteProject(context.Background(), p.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, first.sup.Shutdown(ctx))
	first.requireKept(t, p.ID)

	// The VM finished tearing down while the process was stopped.
	second := newDeletionFixtureOn(t, first.db, first.catalog, time.Minute)
	second.realms.On("CleanupRealm", mock.Anything, p.ID).Return(nil)
	second.prov.On("DeleteServer", mock.Anything, serverID).
		Return(appErr.New(appErr.CodeNotFound, "server not found")).Once()

	ticket, err := second.svc.DeleteProject(context.Background(), p.ID)
	require.NoError(t, err)
	require.False(t, ticket.AwaitingServer)

	second.sup.Wait()
	second.requireGone(t, p.ID)
	second.realms.AssertExpectations(t)
	second.prov.AssertNotCalled(t, "GetServer", mock.Anything, mock.Anything)
}

func TestDeleteProjectWaitCountsFromScheduling(t *testing.T) {
	f := newDeletionFixture(t, time.Minute)
	serverID := uuid.New()
	p := testutil.SeedProject(t, f.db, f.catalog, live(serverID))
	f.realms.On("CleanupRealm", mock.Anything, p.ID).Return(nil)

	before := promtest.ToFloat64(metrics.ServerWaitOutcomes.WithLabelValues("timed_out"))

	job := DeletionJob{ProjectID: p.ID, ServerID: serverID, AwaitServer: true, ScheduledAt: time.Now().Add(-2 * time.Minute)}
	require.NoError(t, f.svc.Run(context.Background(), job))

	f.requireGone(t, p.ID)
	f.prov.AssertNotCalled(t, "GetServer", mock.Anything, mock.Anything)
	require.Equal(t, before+1, promtest.ToFloat64(metrics.ServerWaitOutcomes.WithLabelValues("timed_out")))
}
