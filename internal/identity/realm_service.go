package identity

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"strings"

	"github.com/Nerzal/gocloak/v13"
	"github.com/desp-aas/project-management/internal/models"
	"github.com/desp-aas/project-management/internal/repository"
	appErr "github.com/desp-aas/project-management/pkg/errors"
	"github.com/desp-aas/project-management/pkg/logger"
	"github.com/desp-aas/project-management/pkg/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdminClient is the subset of the Keycloak admin API used here. *gocloak.GoCloak satisfies it.
type AdminClient interface {
	LoginAdmin(ctx context.Context, username, password, realm string) (*gocloak.JWT, error)
	CreateRealm(ctx context.Context, token string, realm gocloak.RealmRepresentation) (string, error)
	CreateClient(ctx context.Context, token, realm string, client gocloak.Client) (string, error)
	CreateUser(ctx context.Context, token, realm string, user gocloak.User) (string, error)
	DeleteRealm(ctx context.Context, token, realm string) error
}

var _ AdminClient = (*gocloak.GoCloak)(nil)

// RealmService manages the per-project realm, its client and default user.
type RealmService interface {
	SetupRealm(ctx context.Context, projectID uuid.UUID, username, email string) (*models.IdentityRealm, error)
	// CleanupRealm is a no-op for projects without a recorded realm.
	CleanupRealm(ctx context.Context, projectID uuid.UUID) error
}

// Settings is the admin session and realm template configuration.
type Settings struct {
	AdminUsername       string
	AdminPassword       string
	MasterRealm         string
	ClientID            string
	RedirectURIs        []string
	DefaultUserPassword string
}

type realmService struct {
	admin    AdminClient
	realms   repository.IdentityRealmRepository
	settings Settings
}

func NewRealmService(admin AdminClient, realms repository.IdentityRealmRepository, settings Settings) RealmService {
	return &realmService{admin: admin, realms: realms, settings: settings}
}

// NewGoCloak builds the Keycloak admin client.
func NewGoCloak(serverURL string, verifySSL bool) *gocloak.GoCloak {
	client := gocloak.NewClient(strings.TrimRight(serverURL, "/"))
	if !verifySSL {
		client.RestyClient().SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec
	}
	return client
}

func (s *realmService) SetupRealm(ctx context.Context, projectID uuid.UUID, username, email string) (*models.IdentityRealm, error) {
	realmName := projectID.String()
	log := logger.L().With(zap.String("project_id", realmName))

	token, err := s.login(ctx)
	if err != nil {
		return nil, err
	}

	_, err = s.admin.CreateRealm(ctx, token, gocloak.RealmRepresentation{
		Realm:       gocloak.StringP(realmName),
		Enabled:     gocloak.BoolP(true),
		DisplayName: gocloak.StringP(capitalize(realmName) + " Realm"),
	})
	if err != nil && !isConflict(err) {
		log.Error("create realm failed", zap.Error(err))
		return nil, appErr.Setup(err, "failed to create realm "+realmName)
	}
	log.Info("realm created or already exists")

	clientID, err := s.admin.CreateClient(ctx, token, realmName, s.clientTemplate())
	if err != nil {
		log.Error("create client failed", zap.Error(err))
		return nil, appErr.Setup(err, "failed to create client "+s.settings.ClientID)
	}

	password := s.settings.DefaultUserPassword
	if password == "" {
		if password, err = utils.GeneratePassword(); err != nil {
			return nil, appErr.Setup(err, "failed to generate default user password")
		}
	}
	_, err = s.admin.CreateUser(ctx, token, realmName, gocloak.User{
		Username:      gocloak.StringP(username),
		Enabled:       gocloak.BoolP(true),
		Email:         gocloak.StringP(email),
		EmailVerified: gocloak.BoolP(true),
		FirstName:     gocloak.StringP("Default"),
		LastName:      gocloak.StringP("User"),
		Credentials: &[]gocloak.CredentialRepresentation{{
			Type:      gocloak.StringP("password"),
			Value:     gocloak.StringP(password),
			Temporary: gocloak.BoolP(true),
		}},
		RequiredActions: &[]string{"UPDATE_PASSWORD"},
	})
	if err != nil {
		log.Error("create default user failed", zap.Error(err))
		return nil, appErr.Setup(err, "failed to create default user in realm "+realmName)
	}

	mapping := &models.IdentityRealm{
		ProjectID: projectID,
		RealmName: realmName,
		ClientID:  clientID,
		Username:  username,
	}
	if err := s.realms.Create(ctx, mapping); err != nil {
		log.Error("store realm mapping failed", zap.Error(err))
		return nil, appErr.Setup(err, "failed to store identity realm for project "+realmName)
	}

	log.Info("identity realm ready", zap.String("client_id", clientID))
	return mapping, nil
}

func (s *realmService) CleanupRealm(ctx context.Context, projectID uuid.UUID) error {
	log := logger.L().With(zap.String("project_id", projectID.String()))

	mapping, err := s.realms.GetByProject(ctx, projectID)
	if err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			log.Info("no identity realm recorded, skipping cleanup")
			return nil
		}
		return appErr.Setup(err, "failed to load identity realm")
	}

	token, err := s.login(ctx)
	if err != nil {
		return err
	}

	// clients and users go with the realm
	if err := s.admin.DeleteRealm(ctx, token, mapping.RealmName); err != nil {
		log.Warn("delete realm failed", zap.String("realm", mapping.RealmName), zap.Error(err))
	}

	if err := s.realms.DeleteByProject(ctx, projectID); err != nil {
		log.Error("delete realm mapping failed", zap.Error(err))
		return appErr.Setup(err, "failed to delete identity realm record")
	}
	log.Info("identity realm cleaned up", zap.String("realm", mapping.RealmName))
	return nil
}

func (s *realmService) login(ctx context.Context) (string, error) {
	jwt, err := s.admin.LoginAdmin(ctx, s.settings.AdminUsername, s.settings.AdminPassword, s.settings.MasterRealm)
	if err != nil {
		logger.L().Error("keycloak admin login failed", zap.Error(err))
		return "", appErr.Setup(err, "failed to initialize keycloak admin")
	}
	return jwt.AccessToken, nil
}

func (s *realmService) clientTemplate() gocloak.Client {
	origins := make([]string, 0, len(s.settings.RedirectURIs))
	for _, uri := range s.settings.RedirectURIs {
		origins = append(origins, strings.TrimSuffix(strings.TrimSuffix(uri, "*"), "/"))
	}
	return gocloak.Client{
		ClientID:                     gocloak.StringP(s.settings.ClientID),
		Enabled:                      gocloak.BoolP(true),
		Protocol:                     gocloak.StringP("openid-connect"),
		PublicClient:                 gocloak.BoolP(true),
		RedirectURIs:                 &s.settings.RedirectURIs,
		WebOrigins:                   &origins,
		StandardFlowEnabled:          gocloak.BoolP(true),
		ImplicitFlowEnabled:          gocloak.BoolP(false),
		DirectAccessGrantsEnabled:    gocloak.BoolP(true),
		ServiceAccountsEnabled:       gocloak.BoolP(false),
		AuthorizationServicesEnabled: gocloak.BoolP(false),
		Attributes: &map[string]string{
			"backchannel.logout.session.required":      "true",
			"backchannel.logout.revoke.offline.tokens": "false",
		},
	}
}

func isConflict(err error) bool {
	var apiErr *gocloak.APIError
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
