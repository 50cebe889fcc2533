package provisioner

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	appErr "github.com/desp-aas/project-management/pkg/errors"
	"github.com/desp-aas/project-management/pkg/httpclient"
	"github.com/desp-aas/project-management/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type envelope struct {
	Data *ServerInfo `json:"data"`
}

type httpProvisioner struct {
	baseURL string
	client  *http.Client
}

// NewHTTPProvisioner talks to the VM management REST API at baseURL.
func NewHTTPProvisioner(baseURL string, client *http.Client) Provisioner {
	return &httpProvisioner{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

var _ Provisioner = (*httpProvisioner)(nil)

func (p *httpProvisioner) CreateServer(ctx context.Context, req *CreateServerRequest) (*CreateAck, error) {
	resp, err := httpclient.DoJSON(ctx, p.client, http.MethodPost, p.baseURL+"/servers", req)
	if err != nil {
		return nil, appErr.Unreachable(appErr.ServiceVMManagement, err)
	}

	ack := &CreateAck{StatusCode: resp.StatusCode, Accepted: resp.StatusCode == http.StatusOK}
	if !ack.Accepted {
		ack.Detail = resp.Snippet()
		return ack, nil
	}

	var env envelope
	if err := resp.Decode(&env); err != nil {
		logger.L().Warn("vm creation acknowledged without a readable body",
			zap.String("project_id", req.ProjectID),
			zap.Error(err),
		)
		return ack, nil
	}
	if env.Data != nil && env.Data.ID != uuid.Nil {
		ack.Server = env.Data
	}
	return ack, nil
}

func (p *httpProvisioner) DeleteServer(ctx context.Context, serverID uuid.UUID) error {
	resp, err := httpclient.DoJSON(ctx, p.client, http.MethodDelete, p.serverURL(serverID), nil)
	if err != nil {
		return appErr.Unreachable(appErr.ServiceVMManagement, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return appErr.New(appErr.CodeNotFound, "server not found").WithMeta("server_id", serverID.String())
	}
	if resp.StatusCode != http.StatusAccepted {
		return appErr.Remote(appErr.ServiceVMManagement,
			fmt.Errorf("status %d: %s", resp.StatusCode, resp.Snippet()),
			"server deletion was not accepted",
		).WithMeta("server_id", serverID.String())
	}
	return nil
}

func (p *httpProvisioner) GetServer(ctx context.Context, serverID uuid.UUID) (*ServerStatus, error) {
	resp, err := httpclient.DoJSON(ctx, p.client, http.MethodGet, p.serverURL(serverID), nil)
	if err != nil {
		return nil, appErr.Unreachable(appErr.ServiceVMManagement, err)
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return &ServerStatus{Found: false}, nil
	case http.StatusOK:
	default:
		return nil, appErr.Remote(appErr.ServiceVMManagement,
			fmt.Errorf("status %d: %s", resp.StatusCode, resp.Snippet()),
			"get server failed",
		)
	}

	var env envelope
	if err := resp.Decode(&env); err != nil {
		return nil, appErr.Remote(appErr.ServiceVMManagement, err, "get server returned an unreadable body")
	}
	if env.Data == nil {
		return nil, appErr.Remote(appErr.ServiceVMManagement, nil, "get server returned no data")
	}
	return &ServerStatus{Found: true, ServerInfo: *env.Data}, nil
}

func (p *httpProvisioner) serverURL(id uuid.UUID) string {
	return p.baseURL + "/servers/" + id.String()
}
