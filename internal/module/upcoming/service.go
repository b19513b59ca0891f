package upcoming

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/simp-lee/dinesync/internal/domain"
	"github.com/simp-lee/dinesync/internal/identity"
	"github.com/simp-lee/dinesync/internal/listsync"
	"github.com/simp-lee/dinesync/internal/pkg"
	"github.com/simp-lee/dinesync/internal/rest"
)

const (
	listPath   = "/upcoming"
	itemsField = "items"
)

// PublishThreshold is the like count at which an upcoming meal becomes
// eligible for promotion to the published menu.
const PublishThreshold = 10

// AnnounceRequest is the form for announcing an upcoming meal. Admin only.
type AnnounceRequest struct {
	Title       string  `json:"title" validate:"required,min=2,max=200"`
	Category    string  `json:"category" validate:"required,max=50"`
	Price       float64 `json:"price" validate:"gte=0"`
	Distributor string  `json:"distributor" validate:"required,max=100"`
	Description string  `json:"description" validate:"max=2000"`
	Ingredients string  `json:"ingredients" validate:"max=2000"`
	Image       string  `json:"image" validate:"omitempty,url"`
}

// Service exposes the upcoming-meals board: announcements collecting
// likes until an admin publishes them onto the menu.
type Service struct {
	api     *rest.Client
	session *identity.Session
	log     *slog.Logger
}

// NewService creates an upcoming-meals service.
func NewService(api *rest.Client, session *identity.Session, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{api: api, session: session, log: log}
}

// NewController builds a list controller over the board, most-liked first.
func (s *Service) NewController(opts ...listsync.ControllerOption[domain.UpcomingMeal]) *listsync.Controller[domain.UpcomingMeal] {
	query := listsync.NewQueryState(
		listsync.WithDefaultSort("likes", listsync.OrderDescending),
	)
	return listsync.NewController(s.fetchPage, query, opts...)
}

func (s *Service) fetchPage(ctx context.Context, params map[string]string) (listsync.ListResult[domain.UpcomingMeal], error) {
	return rest.FetchList[domain.UpcomingMeal](ctx, s.api, listPath, params, itemsField)
}

// Announce posts a new upcoming meal. Admin only.
func (s *Service) Announce(ctx context.Context, req AnnounceRequest) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}
	if err := pkg.ValidateStruct(req); err != nil {
		return err
	}
	return s.api.Mutate(ctx, http.MethodPost, listPath, req, rest.AsAdmin(s.session.Email))
}

// Like registers the signed-in member's vote for an upcoming meal.
func (s *Service) Like(ctx context.Context, id uint) error {
	if s.session == nil {
		return domain.NewAppError(domain.CodeUnauthorized, "sign in to continue", nil)
	}
	if !s.session.IsMember() {
		return domain.NewAppError(domain.CodeUnauthorized, "membership required for this action", nil)
	}
	return s.api.Mutate(ctx, http.MethodPost, upcomingPath(id)+"/like", nil)
}

// Publish moves an upcoming meal onto the published menu. Admin only.
// The server performs the move atomically.
func (s *Service) Publish(ctx context.Context, id uint) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}
	return s.api.Mutate(ctx, http.MethodPost, upcomingPath(id)+"/publish", nil, rest.AsAdmin(s.session.Email))
}

// Remove withdraws an announcement. Admin only.
func (s *Service) Remove(ctx context.Context, id uint) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}
	return s.api.Mutate(ctx, http.MethodDelete, upcomingPath(id), nil, rest.AsAdmin(s.session.Email))
}

// Publishable reports whether the meal has collected enough likes to be
// promoted. Display hint only; admins may publish regardless.
func Publishable(m domain.UpcomingMeal) bool {
	return m.Likes >= PublishThreshold
}

// LikeMutation bumps the vote counter optimistically and reverts on
// failure.
func (s *Service) LikeMutation(ctrl *listsync.Controller[domain.UpcomingMeal], m domain.UpcomingMeal) listsync.Mutation {
	return listsync.Mutation{
		TargetID: targetID(m.ID),
		Kind:     listsync.MutationLike,
		Action:   "like meal",
		Apply: func() (revert func()) {
			return ctrl.Patch(func(items []domain.UpcomingMeal) {
				for i := range items {
					if items[i].ID == m.ID {
						items[i].Likes++
					}
				}
			})
		},
		Call: func(ctx context.Context) error { return s.Like(ctx, m.ID) },
	}
}

// PublishMutation builds the confirm-then-publish flow. Publishing
// removes the row from this board entirely, so the settled page is
// refetched rather than patched.
func (s *Service) PublishMutation(ctrl *listsync.Controller[domain.UpcomingMeal], m domain.UpcomingMeal) listsync.Mutation {
	return listsync.Mutation{
		TargetID:     targetID(m.ID),
		Kind:         listsync.MutationPublish,
		Action:       "publish meal",
		NeedsConfirm: true,
		Prompt:       fmt.Sprintf("Publish %q to the menu?", m.Title),
		Apply: func() (revert func()) {
			return ctrl.Remove(func(item domain.UpcomingMeal) bool { return item.ID == m.ID })
		},
		Call:      func(ctx context.Context) error { return s.Publish(ctx, m.ID) },
		OnSettled: ctrl.Refresh,
	}
}

// RemoveMutation builds the confirm-then-withdraw flow.
func (s *Service) RemoveMutation(ctrl *listsync.Controller[domain.UpcomingMeal], m domain.UpcomingMeal) listsync.Mutation {
	return listsync.Mutation{
		TargetID:     targetID(m.ID),
		Kind:         listsync.MutationDelete,
		Action:       "remove announcement",
		NeedsConfirm: true,
		Prompt:       fmt.Sprintf("Withdraw %q from the board?", m.Title),
		Apply: func() (revert func()) {
			return ctrl.Remove(func(item domain.UpcomingMeal) bool { return item.ID == m.ID })
		},
		Call:      func(ctx context.Context) error { return s.Remove(ctx, m.ID) },
		OnSettled: ctrl.Refresh,
	}
}

func (s *Service) requireAdmin() error {
	if s.session == nil || !s.session.IsAdmin() {
		return domain.NewAppError(domain.CodeUnauthorized, "admin access required", nil)
	}
	return nil
}

func upcomingPath(id uint) string {
	return fmt.Sprintf("%s/%d", listPath, id)
}

func targetID(id uint) string {
	return fmt.Sprintf("upcoming:%d", id)
}
