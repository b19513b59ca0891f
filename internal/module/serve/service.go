package serve

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
	listPath   = "/requests"
	itemsField = "requests"
)

// Service exposes the serve queue: meal requests waiting to be carried
// out. Admins see the whole queue and mark requests delivered; members
// see and cancel their own.
type Service struct {
	api     *rest.Client
	session *identity.Session
	log     *slog.Logger
}

// NewService creates a serve-queue service.
func NewService(api *rest.Client, session *identity.Session, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{api: api, session: session, log: log}
}

// NewController builds a list controller over the queue, most-requested
// first, with an optional status filter. For admins the server returns
// every request; for members only their own.
func (s *Service) NewController(opts ...listsync.ControllerOption[domain.MealRequest]) *listsync.Controller[domain.MealRequest] {
	query := listsync.NewQueryState(
		listsync.WithDefaultSort("likes", listsync.OrderDescending),
	)
	return listsync.NewController(s.fetchPage, query, opts...)
}

func (s *Service) fetchPage(ctx context.Context, params map[string]string) (listsync.ListResult[domain.MealRequest], error) {
	if s.session == nil {
		return listsync.ListResult[domain.MealRequest]{}, domain.NewAppError(domain.CodeUnauthorized, "sign in to continue", nil)
	}
	var opts []rest.CallOption
	if s.session.IsAdmin() {
		opts = append(opts, rest.AsAdmin(s.session.Email))
	}
	return rest.FetchList[domain.MealRequest](ctx, s.api, listPath, params, itemsField, opts...)
}

// Serve marks a request delivered. Admin only.
func (s *Service) Serve(ctx context.Context, id uint) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}
	return s.api.Mutate(ctx, http.MethodPost, requestPath(id)+"/serve", nil, rest.AsAdmin(s.session.Email))
}

// Cancel withdraws a request. Members cancel their own; admins any.
func (s *Service) Cancel(ctx context.Context, r domain.MealRequest) error {
	if s.session == nil {
		return domain.NewAppError(domain.CodeUnauthorized, "sign in to continue", nil)
	}
	if s.session.IsAdmin() {
		return s.api.Mutate(ctx, http.MethodDelete, requestPath(r.ID), nil, rest.AsAdmin(s.session.Email))
	}
	if r.UserEmail != s.session.Email {
		return domain.NewAppError(domain.CodeUnauthorized, "you can only cancel your own requests", nil)
	}
	return s.api.Mutate(ctx, http.MethodDelete, requestPath(r.ID), nil)
}

// ServeMutation marks the request delivered in place. The status flips
// optimistically and reverts if the server refuses.
func (s *Service) ServeMutation(ctrl *listsync.Controller[domain.MealRequest], r domain.MealRequest) listsync.Mutation {
	return listsync.Mutation{
		TargetID: targetID(r.ID),
		Kind:     listsync.MutationServe,
		Action:   "serve request",
		Apply: func() (revert func()) {
			return ctrl.Patch(func(items []domain.MealRequest) {
				for i := range items {
					if items[i].ID == r.ID {
						items[i].Status = domain.RequestDelivered
					}
				}
			})
		},
		Call: func(ctx context.Context) error { return s.Serve(ctx, r.ID) },
	}
}

// CancelMutation builds the confirm-then-cancel flow for one request.
func (s *Service) CancelMutation(ctrl *listsync.Controller[domain.MealRequest], r domain.MealRequest) listsync.Mutation {
	return listsync.Mutation{
		TargetID:     targetID(r.ID),
		Kind:         listsync.MutationDelete,
		Action:       "cancel request",
		NeedsConfirm: true,
		Prompt:       fmt.Sprintf("Cancel the request for %q?", r.MealTitle),
		Apply: func() (revert func()) {
			return ctrl.Remove(func(item domain.MealRequest) bool { return item.ID == r.ID })
		},
		Call:      func(ctx context.Context) error { return s.Cancel(ctx, r) },
		OnSettled: ctrl.Refresh,
	}
}

func (s *Service) requireAdmin() error {
	if s.session == nil || !s.session.IsAdmin() {
		return domain.NewAppError(domain.CodeUnauthorized, "admin access required", nil)
	}
	return nil
}

func requestPath(id uint) string {
	return fmt.Sprintf("%s/%d", listPath, id)
}

func targetID(id uint) string {
	return fmt.Sprintf("request:%d", id)
}
