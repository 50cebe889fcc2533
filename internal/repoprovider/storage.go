package repoprovider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	appErr "github.com/desp-aas/project-management/pkg/errors"
	"github.com/desp-aas/project-management/pkg/httpclient"
	"github.com/desp-aas/project-management/pkg/logger"
	"go.uber.org/zap"
)

type storageRequest struct {
	RepositoryName  string  `json:"repositoryName"`
	RepositoryGroup string  `json:"repositoryGroupe"`
	GitServer       *string `json:"gitServer"`
}

type storageResponse struct {
	Data struct {
		ResourceID string `json:"resource_id"`
		URL        string `json:"url"`
		Token      string `json:"token"`
	} `json:"data"`
}

type storageProvider struct {
	baseURL string
	client  *http.Client
}

// NewStorageProvider creates repositories through the storage service REST API.
func NewStorageProvider(baseURL string, client *http.Client) RepositoryProvider {
	return &storageProvider{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

var _ RepositoryProvider = (*storageProvider)(nil)

func (p *storageProvider) CreateRepository(ctx context.Context, name, group string) (*RemoteRepository, error) {
	body := storageRequest{RepositoryName: name, RepositoryGroup: group}
	resp, err := httpclient.DoJSON(ctx, p.client, http.MethodPost, p.baseURL+"/repository", body)
	if err != nil {
		return nil, appErr.Unreachable(appErr.ServiceStorage, err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		logger.L().Error("storage service refused repository creation",
			zap.String("repository", name),
			zap.Int("status", resp.StatusCode),
			zap.String("body", resp.Snippet()),
		)
		return nil, appErr.Remote(appErr.ServiceStorage,
			fmt.Errorf("status %d: %s", resp.StatusCode, resp.Snippet()),
			"repository creation failed",
		)
	}

	var out storageResponse
	if err := resp.Decode(&out); err != nil {
		return nil, appErr.Remote(appErr.ServiceStorage, err, "repository creation returned an unreadable body")
	}
	if out.Data.URL == "" {
		return nil, appErr.Remote(appErr.ServiceStorage, nil, "repository creation returned no url")
	}
	return &RemoteRepository{ID: out.Data.ResourceID, URL: out.Data.URL, Token: out.Data.Token}, nil
}
