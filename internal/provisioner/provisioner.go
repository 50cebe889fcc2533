package provisioner

import (
	"context"

	"github.com/google/uuid"
)

// Provisioner is the VM management service that owns project servers.
type Provisioner interface {
	// CreateServer requests a VM. A non-nil error means the service could not be reached;
	// a rejection by the service is reported through CreateAck.Accepted.
	CreateServer(ctx context.Context, req *CreateServerRequest) (*CreateAck, error)

	// DeleteServer returns nil only when the service accepted the teardown, and a
	// not_found error when the server no longer exists.
	DeleteServer(ctx context.Context, serverID uuid.UUID) error

	// GetServer reports the server state; Found is false once the resource is gone.
	GetServer(ctx context.Context, serverID uuid.UUID) (*ServerStatus, error)
}

type CreateServerRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	ImageName    string `json:"image_name"`
	FlavorName   string `json:"flavor_name"`
	SSHPublicKey string `json:"ssh_public_key"`
	ProjectID    string `json:"project_id"`
}

type CreateAck struct {
	Accepted   bool
	StatusCode int
	// Server is set when the service returned the created server.
	Server *ServerInfo
	Detail string
}

type ServerInfo struct {
	ID       uuid.UUID `json:"id"`
	PublicIP *string   `json:"public_ip"`
	State    string    `json:"state"`
}

type ServerStatus struct {
	Found bool
	ServerInfo
}
