package project

import (
	"context"
	"errors"
)

// ErrProjectNotFound is returned when a project cannot be found by ID.
var ErrProjectNotFound = errors.New("project not found")

// Repository defines the interface for project persistence.
type Repository interface {
	// Save persists a project, replacing any stored version with the same ID.
	Save(ctx context.Context, p *Project) error

	// FindByID retrieves a project by its unique identifier.
	// Returns ErrProjectNotFound if the project does not exist.
	FindByID(ctx context.Context, id string) (*Project, error)

	// List returns all projects, newest first.
	List(ctx context.Context) ([]*Project, error)

	// Delete removes a project from storage.
	// Returns ErrProjectNotFound if the project does not exist.
	Delete(ctx context.Context, id string) error
}
