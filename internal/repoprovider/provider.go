package repoprovider

import "context"

// RepositoryProvider creates the source repository backing a new project.
type RepositoryProvider interface {
	CreateRepository(ctx context.Context, name, group string) (*RemoteRepository, error)
}

// RemoteRepository is what a provider hands back for a created repository.
type RemoteRepository struct {
	ID    string
	URL   string
	Token string
}
