package repository

import "github.com/google/uuid"

// ProjectPatch holds the mutable project fields.
type ProjectPatch struct {
	Name              *string    `json:"name" column:"name,omitempty"`
	SSHKey            *string    `json:"ssh_key" column:"ssh_key,omitempty"`
	FlavorID          *uuid.UUID `json:"flavor_id" column:"flavor_id,omitempty"`
	RepositoryID      *uuid.UUID `json:"repository_id" column:"repository_id,omitempty"`
	ProfileID         *uuid.UUID `json:"profile_id" column:"profile_id,omitempty"`
	OperatingSystemID *uuid.UUID `json:"operatingsystem_id" column:"operating_system_id,omitempty"`
}

type ProfilePatch struct {
	Username    *string `json:"username" column:"username,omitempty"`
	Password    *string `json:"password" column:"password,omitempty"`
	DespOwnerID *string `json:"desp_owner_id" column:"desp_owner_id,omitempty"`
}

type RepositoryPatch struct {
	Username *string `json:"username" column:"username,omitempty"`
	URL      *string `json:"url" column:"url,omitempty"`
	Token    *string `json:"token" column:"token,omitempty"`
}

type FlavorPatch struct {
	Name              *string    `json:"name" column:"name,omitempty"`
	Processor         *string    `json:"processor" column:"processor,omitempty"`
	Memory            *string    `json:"memory" column:"memory,omitempty"`
	Bandwidth         *string    `json:"bandwidth" column:"bandwidth,omitempty"`
	Storage           *string    `json:"storage" column:"storage,omitempty"`
	GPU               *string    `json:"gpu" column:"gpu,omitempty"`
	Price             *string    `json:"price" column:"price,omitempty"`
	OpenstackFlavorID *uuid.UUID `json:"openstack_flavor_id" column:"openstack_flavor_id,omitempty"`
}

type OperatingSystemPatch struct {
	Name  *string `json:"name" column:"name,omitempty"`
	IsGUI *bool   `json:"is_gui" column:"is_gui,omitempty"`
}

type ApplicationPatch struct {
	Name        *string `json:"name" column:"name,omitempty"`
	Description *string `json:"description" column:"description,omitempty"`
	Icon        *[]byte `json:"icon" column:"icon,omitempty"`
}
