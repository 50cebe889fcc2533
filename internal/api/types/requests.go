package types

import (
	"github.com/desp-aas/project-management/internal/services"
	"github.com/google/uuid"
)

type ProjectCreateRequest struct {
	Name              string      `json:"name" validate:"required,max=255"`
	SSHKey            string      `json:"ssh_key" validate:"required"`
	FlavorID          uuid.UUID   `json:"flavor_id" validate:"required"`
	OperatingSystemID uuid.UUID   `json:"operatingsystem_id" validate:"required"`
	RepositoryID      *uuid.UUID  `json:"repository_id"`
	ApplicationIDs    []uuid.UUID `json:"applications"`
}

func (r *ProjectCreateRequest) Input() *services.CreateProjectInput {
	return &services.CreateProjectInput{
		Name:              r.Name,
		SSHKey:            r.SSHKey,
		FlavorID:          r.FlavorID,
		OperatingSystemID: r.OperatingSystemID,
		RepositoryID:      r.RepositoryID,
		ApplicationIDs:    r.ApplicationIDs,
	}
}

type BuildStatusRequest struct {
	Status      string    `json:"status" validate:"required"`
	Step        string    `json:"step" validate:"required"`
	Message     string    `json:"message"`
	Logs        string    `json:"logs"`
	DockerImage string    `json:"docker_image"`
	PipelineID  string    `json:"pipeline_id"`
	ProfileID   uuid.UUID `json:"profile_id" validate:"required"`
}

func (r *BuildStatusRequest) Input() *services.BuildStatusInput {
	return &services.BuildStatusInput{
		Status:      r.Status,
		Step:        r.Step,
		Message:     r.Message,
		Logs:        r.Logs,
		DockerImage: r.DockerImage,
		PipelineID:  r.PipelineID,
		ProfileID:   r.ProfileID,
	}
}

type ServerUpdateRequest struct {
	ID       uuid.UUID `json:"id" validate:"required"`
	PublicIP *string   `json:"public_ip" validate:"omitempty,ip"`
	State    string    `json:"state" validate:"required"`
}

func (r *ServerUpdateRequest) Input() *services.ServerUpdate {
	return &services.ServerUpdate{ID: r.ID, PublicIP: r.PublicIP, State: r.State}
}

type InstallationRequest struct {
	OperatingSystemID uuid.UUID `json:"operatingsystem_id" validate:"required"`
	Script            string    `json:"script" validate:"required"`
}
