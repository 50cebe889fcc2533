package services

import (
	"context"
	"os"
	"testing"

	"github.com/Nerzal/gocloak/v13"
	"github.com/desp-aas/project-management/internal/models"
	"github.com/desp-aas/project-management/internal/notify"
	"github.com/desp-aas/project-management/internal/provisioner"
	"github.com/desp-aas/project-management/internal/repoprovider"
	"github.com/desp-aas/project-management/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

type mockRepoProvider struct {
	mock.Mock
}

func (m *mockRepoProvider) CreateRepository(ctx context.Context, name, group string) (*repoprovider.RemoteRepository, error) {
	args := m.Called(ctx, name, group)
	if v := args.Get(0); v != nil {
		return v.(*repoprovider.RemoteRepository), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockProvisioner struct {
	mock.Mock
}

func (m *mockProvisioner) CreateServer(ctx context.Context, req *provisioner.CreateServerRequest) (*provisioner.CreateAck, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*provisioner.CreateAck), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProvisioner) DeleteServer(ctx context.Context, serverID uuid.UUID) error {
	return m.Called(ctx, serverID).Error(0)
}

func (m *mockProvisioner) GetServer(ctx context.Context, serverID uuid.UUID) (*provisioner.ServerStatus, error) {
	args := m.Called(ctx, serverID)
	if v := args.Get(0); v != nil {
		return v.(*provisioner.ServerStatus), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockRealms struct {
	mock.Mock
}

func (m *mockRealms) SetupRealm(ctx context.Context, projectID uuid.UUID, username, email string) (*models.IdentityRealm, error) {
	args := m.Called(ctx, projectID, username, email)
	if v := args.Get(0); v != nil {
		return v.(*models.IdentityRealm), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRealms) CleanupRealm(ctx context.Context, projectID uuid.UUID) error {
	return m.Called(ctx, projectID).Error(0)
}

type mockAdmin struct {
	mock.Mock
}

func (m *mockAdmin) LoginAdmin(ctx context.Context, username, password, realm string) (*gocloak.JWT, error) {
	args := m.Called(ctx, username, password, realm)
	if v := args.Get(0); v != nil {
		return v.(*gocloak.JWT), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAdmin) CreateRealm(ctx context.Context, token string, realm gocloak.RealmRepresentation) (string, error) {
	args := m.Called(ctx, token, realm)
	return args.String(0), args.Error(1)
}

func (m *mockAdmin) CreateClient(ctx context.Context, token, realm string, client gocloak.Client) (string, error) {
	args := m.Called(ctx, token, realm, client)
	return args.String(0), args.Error(1)
}

func (m *mockAdmin) CreateUser(ctx context.Context, token, realm string, user gocloak.User) (string, error) {
	args := m.Called(ctx, token, realm, user)
	return args.String(0), args.Error(1)
}

func (m *mockAdmin) DeleteRealm(ctx context.Context, token, realm string) error {
	return m.Called(ctx, token, realm).Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, n notify.Notification) error {
	return m.Called(ctx, n).Error(0)
}
