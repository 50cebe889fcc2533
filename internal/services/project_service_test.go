package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Nerzal/gocloak/v13"
	"github.com/desp-aas/project-management/internal/identity"
	"github.com/desp-aas/project-management/internal/models"
	"github.com/desp-aas/project-management/internal/provisioner"
	"github.com/desp-aas/project-management/internal/repoprovider"
	"github.com/desp-aas/project-management/internal/repository"
	"github.com/desp-aas/project-management/internal/testutil"
	appErr "github.com/desp-aas/project-management/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	clocktesting "k8s.io/utils/clock/testing"
)

type creationFixture struct {
	db       *gorm.DB
	catalog  testutil.Catalog
	actor    Actor
	repos    *mockRepoProvider
	prov     *mockProvisioner
	admin    *mockAdmin
	notifier *mockNotifier
	realms   repository.IdentityRealmRepository
	projects repository.ProjectRepository
	events   repository.EventRepository
	svc      ProjectService
}

func newCreationFixture(t *testing.T) *creationFixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &creationFixture{
		db:       db,
		catalog:  testutil.SeedCatalog(t, db),
		repos:    &mockRepoProvider{},
		prov:     &mockProvisioner{},
		admin:    &mockAdmin{},
		notifier: &mockNotifier{},
		realms:   repository.NewIdentityRealmRepository(db),
		projects: repository.NewProjectRepository(db),
		events:   repository.NewEventRepository(db),
	}
	f.actor = Actor{OwnerID: f.catalog.Profile.DespOwnerID, Username: "jdoe", Email: "jdoe@example.com"}

	profiles := repository.NewProfileRepository(db)
	f.svc = NewProjectService(ProjectDeps{
		Projects:         f.projects,
		Profiles:         NewProfileService(profiles),
		ProfileRepo:      profiles,
		Flavors:          repository.NewFlavorRepository(db),
		OperatingSystems: repository.NewOperatingSystemRepository(db),
		Repositories:     repository.NewRepositoryRepository(db),
		Applications:     repository.NewApplicationRepository(db),
		Servers:          repository.NewServerRepository(db),
		Events:           f.events,
		RepoProvider:     f.repos,
		Provisioner:      f.prov,
		Realms: identity.NewRealmService(f.admin, f.realms, identity.Settings{
			AdminUsername: "admin",
			AdminPassword: "secret",
			MasterRealm:   "master",
			ClientID:      "sandbox-client",
			RedirectURIs:  []string{"http://localhost:8080/*"},
		}),
		Notifier:        f.notifier,
		RepositoryGroup: "desp-aas-projects",
		Clock:           clocktesting.NewFakePassiveClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	})
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)
	return f
}

func (f *creationFixture) input() *CreateProjectInput {
	return &CreateProjectInput{
		Name:              "demo",
		SSHKey:            "ssh-ed25519 AAAA",
		FlavorID:          f.catalog.Flavor.ID,
		OperatingSystemID: f.catalog.OperatingSystem.ID,
		ApplicationIDs:    []uuid.UUID{f.catalog.Applications[0].ID, f.catalog.Applications[1].ID, f.catalog.Applications[0].ID},
	}
}

func (f *creationFixture) repositoryCreated() {
	f.repos.On("CreateRepository", mock.Anything, mock.AnythingOfType("string"), "desp-aas-projects").
		Return(&repoprovider.RemoteRepository{ID: "42", URL: "https://git.example/demo.git", Token: "tok"}, nil)
}

func (f *creationFixture) identityWorks() {
	f.admin.On("LoginAdmin", mock.Anything, "admin", "secret", "master").Return(&gocloak.JWT{AccessToken: "tok"}, nil)
	f.admin.On("CreateRealm", mock.Anything, "tok", mock.Anything).Return("", nil)
	f.admin.On("CreateClient", mock.Anything, "tok", mock.Anything, mock.Anything).Return("client-uuid", nil)
	f.admin.On("CreateUser", mock.Anything, "tok", mock.Anything, mock.Anything).Return("user-uuid", nil)
}

func (f *creationFixture) countProjects(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Project{}).Count(&n).Error)
	return n
}

func TestCreateProject(t *testing.T) {
	ctx := context.Background()

	t.Run("creates repository server mirror and realm", func(t *testing.T) {
		f := newCreationFixture(t)
		f.repositoryCreated()
		f.identityWorks()
		serverID := uuid.New()
		f.prov.On("CreateServer", mock.Anything, mock.MatchedBy(func(r *provisioner.CreateServerRequest) bool {
			return r.Username == "jdoe" && r.Password == f.catalog.Profile.Password &&
				r.ImageName == "ubuntu-22.04" && r.FlavorName == "m1.small" && r.SSHPublicKey == "ssh-ed25519 AAAA"
		})).Return(&provisioner.CreateAck{Accepted: true, StatusCode: http.StatusOK, Server: &provisioner.ServerInfo{ID: serverID, State: "BUILD"}}, nil)

		p, err := f.svc.CreateProject(ctx, f.actor, f.input())
		require.NoError(t, err)

		require.NotNil(t, p.Repository)
		require.Equal(t, "https://git.example/demo.git", p.Repository.URL)
		require.Equal(t, "jdoe", p.Repository.Username)
		require.NotNil(t, p.Flavor)
		require.NotNil(t, p.OperatingSystem)
		require.NotNil(t, p.Profile)
		require.Equal(t, f.catalog.Profile.ID, p.Profile.ID)
		require.NotNil(t, p.Server)
		require.Equal(t, serverID, p.Server.ID)
		require.Len(t, p.Applications, 2)
		require.Equal(t, models.VMRequestRequested, p.VMRequestStatus)
		require.Equal(t, models.IdentityReady, p.IdentityStatus)

		f.repos.AssertCalled(t, "CreateRepository", mock.Anything, "demo_"+p.ID.String(), "desp-aas-projects")
		f.notifier.AssertCalled(t, "Notify", mock.Anything, mock.Anything)

		realm, err := f.realms.GetByProject(ctx, p.ID)
		require.NoError(t, err)
		require.Equal(t, p.ID.String(), realm.RealmName)

		evs, err := f.events.ListByProject(ctx, p.ID, repository.EventQuery{Type: models.EventTypeProvisioning})
		require.NoError(t, err)
		require.Len(t, evs, 2)
	})

	t.Run("accepted without server leaves server empty", func(t *testing.T) {
		f := newCreationFixture(t)
		f.repositoryCreated()
		f.identityWorks()
		f.prov.On("CreateServer", mock.Anything, mock.Anything).Return(&provisioner.CreateAck{Accepted: true, StatusCode: http.StatusOK}, nil)

		p, err := f.svc.CreateProject(ctx, f.actor, f.input())
		require.NoError(t, err)
		require.NotNil(t, p.Repository)
		require.Nil(t, p.Server)
	})

	t.Run("repository failure stores nothing", func(t *testing.T) {
		f := newCreationFixture(t)
		f.repos.On("CreateRepository", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, appErr.Remote(appErr.ServiceStorage, errors.New("status 500"), "repository creation failed"))

		_, err := f.svc.CreateProject(ctx, f.actor, f.input())
		require.True(t, appErr.IsCode(err, appErr.CodeRemoteService))
		require.Equal(t, appErr.ServiceStorage, appErr.ServiceOf(err))

		require.Zero(t, f.countProjects(t))
		f.prov.AssertNotCalled(t, "CreateServer", mock.Anything, mock.Anything)
		f.admin.AssertNotCalled(t, "LoginAdmin", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown reference fails before any remote call", func(t *testing.T) {
		f := newCreationFixture(t)
		in := f.input()
		in.FlavorID = uuid.New()

		_, err := f.svc.CreateProject(ctx, f.actor, in)
		require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
		f.repos.AssertNotCalled(t, "CreateRepository", mock.Anything, mock.Anything, mock.Anything)

		in = f.input()
		in.ApplicationIDs = []uuid.UUID{uuid.New()}
		_, err = f.svc.CreateProject(ctx, f.actor, in)
		require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
		require.Zero(t, f.countProjects(t))
	})

	t.Run("supplied repository is reused", func(t *testing.T) {
		f := newCreationFixture(t)
		f.identityWorks()
		f.prov.On("CreateServer", mock.Anything, mock.Anything).Return(&provisioner.CreateAck{Accepted: true, StatusCode: http.StatusOK}, nil)
		repo := models.Repository{URL: "https://git.example/existing.git", Username: "jdoe", Token: "t"}
		require.NoError(t, f.db.Create(&repo).Error)

		in := f.input()
		in.RepositoryID = &repo.ID
		p, err := f.svc.CreateProject(ctx, f.actor, in)
		require.NoError(t, err)
		require.Equal(t, repo.ID, *p.RepositoryID)
		f.repos.AssertNotCalled(t, "CreateRepository", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("vm rejection is recorded and creation continues", func(t *testing.T) {
		f := newCreationFixture(t)
		f.repositoryCreated()
		f.identityWorks()
		f.prov.On("CreateServer", mock.Anything, mock.Anything).
			Return(&provisioner.CreateAck{Accepted: false, StatusCode: http.StatusUnprocessableEntity, Detail: "quota"}, nil)

		p, err := f.svc.CreateProject(ctx, f.actor, f.input())
		require.NoError(t, err)
		require.Equal(t, models.VMRequestRejected, p.VMRequestStatus)
		require.Equal(t, models.IdentityReady, p.IdentityStatus)
		require.Nil(t, p.Server)
	})

	t.Run("unreachable vm management fails after the project is stored", func(t *testing.T) {
		f := newCreationFixture(t)
		f.repositoryCreated()
		f.prov.On("CreateServer", mock.Anything, mock.Anything).
			Return(nil, appErr.Unreachable(appErr.ServiceVMManagement, errors.New("dial tcp: refused")))

		_, err := f.svc.CreateProject(ctx, f.actor, f.input())
		require.True(t, appErr.IsCode(err, appErr.CodeUnavailable))
		require.Equal(t, appErr.ServiceVMManagement, appErr.ServiceOf(err))

		var stored models.Project
		require.NoError(t, f.db.First(&stored).Error)
		require.Equal(t, models.VMRequestFailed, stored.VMRequestStatus)
		require.Equal(t, models.IdentityPending, stored.IdentityStatus)
		f.admin.AssertNotCalled(t, "LoginAdmin", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("notification failure is ignored", func(t *testing.T) {
		f := newCreationFixture(t)
		f.notifier = &mockNotifier{}
		f.notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("redis down"))
		f.svc.(*projectService).Notifier = f.notifier
		f.repositoryCreated()
		f.identityWorks()
		f.prov.On("CreateServer", mock.Anything, mock.Anything).Return(&provisioner.CreateAck{Accepted: true, StatusCode: http.StatusOK}, nil)

		_, err := f.svc.CreateProject(ctx, f.actor, f.input())
		require.NoError(t, err)
	})
}

func TestCreateProjectIdentityFailure(t *testing.T) {
	ctx := context.Background()
	login := func(a *mockAdmin) {
		a.On("LoginAdmin", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(&gocloak.JWT{AccessToken: "tok"}, nil)
	}

	steps := []struct {
		name  string
		setup func(a *mockAdmin)
	}{
		{"login", func(a *mockAdmin) {
			a.On("LoginAdmin", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("401"))
		}},
		{"realm", func(a *mockAdmin) {
			login(a)
			a.On("CreateRealm", mock.Anything, "tok", mock.Anything).Return("", &gocloak.APIError{Code: http.StatusInternalServerError})
		}},
		{"client", func(a *mockAdmin) {
			login(a)
			a.On("CreateRealm", mock.Anything, "tok", mock.Anything).Return("", nil)
			a.On("CreateClient", mock.Anything, "tok", mock.Anything, mock.Anything).Return("", errors.New("boom"))
		}},
		{"user", func(a *mockAdmin) {
			login(a)
			a.On("CreateRealm", mock.Anything, "tok", mock.Anything).Return("", nil)
			a.On("CreateClient", mock.Anything, "tok", mock.Anything, mock.Anything).Return("client-uuid", nil)
			a.On("CreateUser", mock.Anything, "tok", mock.Anything, mock.Anything).Return("", errors.New("boom"))
		}},
	}

	for _, tc := range steps {
		t.Run(tc.name, func(t *testing.T) {
			f := newCreationFixture(t)
			f.repositoryCreated()
			f.prov.On("CreateServer", mock.Anything, mock.Anything).Return(&provisioner.CreateAck{Accepted: true, StatusCode: http.StatusOK}, nil)
			tc.setup(f.admin)

			p, err := f.svc.CreateProject(ctx, f.actor, f.input())
			require.NoError(t, err)
			require.NotNil(t, p.Repository)
			require.Equal(t, models.IdentityFailed, p.IdentityStatus)

			_, err = f.realms.GetByProject(ctx, p.ID)
			require.True(t, appErr.IsCode(err, appErr.CodeNotFound))

			evs, err := f.events.ListByProject(ctx, p.ID, repository.EventQuery{Type: models.EventTypeProvisioning})
			require.NoError(t, err)
			var failed int
			for _, ev := range evs {
				if ev.Step == StepIdentity && ev.Status == models.IdentityFailed {
					failed++
				}
			}
			require.Equal(t, 1, failed)
		})
	}
}

func TestUpdateProject(t *testing.T) {
	ctx := context.Background()
	f := newCreationFixture(t)
	p := testutil.SeedProject(t, f.db, f.catalog, nil)

	name := "renamed"
	got, err := f.svc.UpdateProject(ctx, p.ID, &repository.ProjectPatch{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "renamed", got.Name)
	require.Equal(t, p.SSHKey, got.SSHKey)

	missing := uuid.New()
	_, err = f.svc.UpdateProject(ctx, p.ID, &repository.ProjectPatch{FlavorID: &missing})
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	_, err = f.svc.UpdateProject(ctx, uuid.New(), &repository.ProjectPatch{Name: &name})
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	empty := ""
	_, err = f.svc.UpdateProject(ctx, p.ID, &repository.ProjectPatch{Name: &empty})
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestMirrorServer(t *testing.T) {
	ctx := context.Background()
	f := newCreationFixture(t)
	p := testutil.SeedProject(t, f.db, f.catalog, nil)
	serverID := uuid.New()
	ip := "10.0.0.5"

	srv, err := f.svc.MirrorServer(ctx, p.ID, &ServerUpdate{ID: serverID, State: "BUILD"})
	require.NoError(t, err)
	require.Equal(t, "BUILD", srv.State)

	srv, err = f.svc.MirrorServer(ctx, p.ID, &ServerUpdate{ID: serverID, PublicIP: &ip, State: "ACTIVE"})
	require.NoError(t, err)
	require.Equal(t, "ACTIVE", srv.State)
	require.Equal(t, ip, *srv.PublicIP)

	_, err = f.svc.MirrorServer(ctx, uuid.New(), &ServerUpdate{ID: uuid.New()})
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestListProjectsByOwner(t *testing.T) {
	ctx := context.Background()
	f := newCreationFixture(t)
	testutil.SeedProject(t, f.db, f.catalog, nil)
	testutil.SeedProject(t, f.db, f.catalog, nil)

	got, err := f.svc.ListProjectsByOwner(ctx, f.actor)
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = f.svc.ListProjectsByOwner(ctx, Actor{OwnerID: "someone-else", Username: "other"})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestProfileGetOrCreate(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewProfileService(repository.NewProfileRepository(db))

	_, err := svc.GetOrCreate(ctx, Actor{})
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	actor := Actor{OwnerID: "sub-1", Username: "alice"}
	first, err := svc.GetOrCreate(ctx, actor)
	require.NoError(t, err)
	require.Equal(t, "alice", first.Username)
	require.Len(t, first.Password, 12)

	second, err := svc.GetOrCreate(ctx, actor)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.Password, second.Password)
}
