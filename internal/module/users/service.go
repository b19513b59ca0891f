package users

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/simp-lee/dinesync/internal/domain"
	"github.com/simp-lee/dinesync/internal/identity"
	"github.com/simp-lee/dinesync/internal/listsync"
	"github.com/simp-lee/dinesync/internal/rest"
)

const (
	listPath   = "/users"
	itemsField = "users"
)

// Service exposes the admin user directory: browsing accounts by name
// or email and promoting users to admin.
type Service struct {
	api     *rest.Client
	session *identity.Session
	log     *slog.Logger
}

// NewService creates a users service. Every operation requires an admin
// session; non-admin calls fail locally.
func NewService(api *rest.Client, session *identity.Session, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{api: api, session: session, log: log}
}

// NewController builds a list controller over the user directory.
func (s *Service) NewController(opts ...listsync.ControllerOption[domain.HostelUser]) *listsync.Controller[domain.HostelUser] {
	query := listsync.NewQueryState(
		listsync.WithDefaultSort("created_at", listsync.OrderDescending),
	)
	return listsync.NewController(s.fetchPage, query, opts...)
}

func (s *Service) fetchPage(ctx context.Context, params map[string]string) (listsync.ListResult[domain.HostelUser], error) {
	if err := s.requireAdmin(); err != nil {
		return listsync.ListResult[domain.HostelUser]{}, err
	}
	return rest.FetchList[domain.HostelUser](ctx, s.api, listPath, params, itemsField, rest.AsAdmin(s.session.Email))
}

// MakeAdmin promotes a user to the admin role.
func (s *Service) MakeAdmin(ctx context.Context, id uint) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}
	path := fmt.Sprintf("%s/%d/make-admin", listPath, id)
	return s.api.Mutate(ctx, http.MethodPost, path, nil, rest.AsAdmin(s.session.Email))
}

// MakeAdminMutation builds the confirm-then-promote flow. The role
// flips optimistically in the visible row and reverts if the server
// rejects the promotion.
func (s *Service) MakeAdminMutation(ctrl *listsync.Controller[domain.HostelUser], u domain.HostelUser) listsync.Mutation {
	return listsync.Mutation{
		TargetID:     fmt.Sprintf("user:%d", u.ID),
		Kind:         listsync.MutationMakeAdmin,
		Action:       "promote user",
		NeedsConfirm: true,
		Prompt:       fmt.Sprintf("Make %s (%s) an admin?", u.Name, u.Email),
		Apply: func() (revert func()) {
			return ctrl.Patch(func(items []domain.HostelUser) {
				for i := range items {
					if items[i].ID == u.ID {
						items[i].Role = domain.RoleAdmin
					}
				}
			})
		},
		Call: func(ctx context.Context) error { return s.MakeAdmin(ctx, u.ID) },
	}
}

func (s *Service) requireAdmin() error {
	if s.session == nil || !s.session.IsAdmin() {
		return domain.NewAppError(domain.CodeUnauthorized, "admin access required", nil)
	}
	return nil
}
