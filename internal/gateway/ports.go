// Package gateway defines the boundary between the local cache and the remote
// resource store.
package gateway

import (
	"context"

	"estimator/internal/core"
)

// Ports for remote resource adapters.
type (
	Projects interface {
		ListProjects(ctx context.Context) ([]core.Project, error)
		CreateProject(ctx context.Context, p core.Project) (core.Project, error)
		UpdateProject(ctx context.Context, id string, p core.Project) (core.Project, error)
		DeleteProject(ctx context.Context, id string) error
	}

	// Estimations covers estimations and the sections and items nested under
	// them. Nested records are always addressed through their owner's id.
	Estimations interface {
		ListEstimations(ctx context.Context, q core.EstimationQuery) (core.EstimationPage, error)
		GetEstimation(ctx context.Context, id string) (core.Estimation, error)
		CreateEstimation(ctx context.Context, e core.Estimation) (core.Estimation, error)
		UpdateEstimation(ctx context.Context, id string, e core.Estimation) (core.Estimation, error)
		DeleteEstimation(ctx context.Context, id string) error

		AddSection(ctx context.Context, estimationID string, s core.Section) (core.Section, error)
		UpdateSection(ctx context.Context, estimationID, sectionID string, s core.Section) (core.Section, error)
		DeleteSection(ctx context.Context, estimationID, sectionID string) error

		AddItem(ctx context.Context, estimationID, sectionID string, it core.Item) (core.Item, error)
		UpdateItem(ctx context.Context, estimationID, sectionID, itemID string, it core.Item) (core.Item, error)
		DeleteItem(ctx context.Context, estimationID, sectionID, itemID string) error
	}

	// Resources is everything the collection cache talks to.
	Resources interface {
		Projects
		Estimations
	}

	// Accounts is the auth boundary.
	Accounts interface {
		Login(ctx context.Context, email, password string) (Credential, error)
		Register(ctx context.Context, name, email, password string) (Credential, error)
		// ForgotPassword returns the confirmation message sent back by the store.
		ForgotPassword(ctx context.Context, email string) (string, error)
	}

	// Backend is a complete remote store.
	Backend interface {
		Resources
		Accounts
	}
)

// Credential is what a successful login or registration yields.
type Credential struct {
	Token string    `json:"token"`
	User  core.User `json:"user"`
}
