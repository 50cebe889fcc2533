package repoprovider

import (
	"context"
	"fmt"
	"time"

	appErr "github.com/desp-aas/project-management/pkg/errors"
	"github.com/desp-aas/project-management/pkg/logger"
	"github.com/gosimple/slug"
	gitlab "gitlab.com/gitlab-org/api/client-go"
	"go.uber.org/zap"
)

// tokenLifetime is how long project access tokens stay valid.
const tokenLifetime = 365 * 24 * time.Hour

type gitlabProvider struct {
	client *gitlab.Client
	now    func() time.Time
}

// NewGitLabProvider creates repositories as projects inside a GitLab group.
func NewGitLabProvider(baseURL, token string) (RepositoryProvider, error) {
	client, err := gitlab.NewClient(token, gitlab.WithBaseURL(baseURL))
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid gitlab configuration")
	}
	return &gitlabProvider{client: client, now: time.Now}, nil
}

var _ RepositoryProvider = (*gitlabProvider)(nil)

func (p *gitlabProvider) CreateRepository(ctx context.Context, name, group string) (*RemoteRepository, error) {
	g, resp, err := p.client.Groups.GetGroup(group, nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, gitlabError(resp, err, fmt.Sprintf("group %q lookup failed", group))
	}

	project, resp, err := p.client.Projects.CreateProject(&gitlab.CreateProjectOptions{
		Name:                 gitlab.Ptr(name),
		Path:                 gitlab.Ptr(slug.Make(name)),
		NamespaceID:          gitlab.Ptr(g.ID),
		Visibility:           gitlab.Ptr(gitlab.PrivateVisibility),
		InitializeWithReadme: gitlab.Ptr(true),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, gitlabError(resp, err, "project creation failed")
	}

	expires := gitlab.ISOTime(p.now().Add(tokenLifetime))
	token, resp, err := p.client.ProjectAccessTokens.CreateProjectAccessToken(project.ID, &gitlab.CreateProjectAccessTokenOptions{
		Name:        gitlab.Ptr(name + "-pipeline"),
		Scopes:      gitlab.Ptr([]string{"read_repository", "write_repository"}),
		AccessLevel: gitlab.Ptr(gitlab.MaintainerPermissions),
		ExpiresAt:   &expires,
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, gitlabError(resp, err, "project access token creation failed")
	}

	logger.L().Info("gitlab repository created",
		zap.String("repository", name),
		zap.String("url", project.HTTPURLToRepo),
	)
	return &RemoteRepository{
		ID:    fmt.Sprintf("%d", project.ID),
		URL:   project.HTTPURLToRepo,
		Token: token.Token,
	}, nil
}

// gitlabError separates "no answer" from "answered with an error".
func gitlabError(resp *gitlab.Response, err error, msg string) error {
	if resp == nil {
		return appErr.Unreachable(appErr.ServiceGitLab, err)
	}
	return appErr.Remote(appErr.ServiceGitLab, err, msg).WithMeta("status", resp.StatusCode)
}
