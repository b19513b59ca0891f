package review

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/simp-lee/dinesync/internal/domain"
	"github.com/simp-lee/dinesync/internal/identity"
	"github.com/simp-lee/dinesync/internal/listsync"
	"github.com/simp-lee/dinesync/internal/pkg"
	"github.com/simp-lee/dinesync/internal/rest"
)

const (
	listPath   = "/reviews"
	itemsField = "reviews"
)

// ReviewForm is the form for writing or editing a review.
type ReviewForm struct {
	MealID uint   `json:"meal_id" validate:"required"`
	Rating int    `json:"rating" validate:"required,gte=1,lte=5"`
	Text   string `json:"text" validate:"required,min=4,max=2000"`
}

// Service exposes the reviews collection: browsing all reviews or one
// meal's reviews, plus write, edit and delete for the signed-in user.
type Service struct {
	api     *rest.Client
	session *identity.Session
	log     *slog.Logger
}

// NewService creates a review service. session may be nil for read-only
// browsing.
func NewService(api *rest.Client, session *identity.Session, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{api: api, session: session, log: log}
}

// NewController builds a list controller over all reviews, newest first.
func (s *Service) NewController(opts ...listsync.ControllerOption[domain.Review]) *listsync.Controller[domain.Review] {
	query := listsync.NewQueryState(
		listsync.WithDefaultSort("created_at", listsync.OrderDescending),
	)
	return listsync.NewController(s.fetchPage, query, opts...)
}

// NewMealController builds a controller pinned to one meal's reviews.
// The meal filter is part of the initial query state, so page resets on
// search or sort changes never drop it.
func (s *Service) NewMealController(mealID uint, opts ...listsync.ControllerOption[domain.Review]) *listsync.Controller[domain.Review] {
	query := listsync.NewQueryState(
		listsync.WithDefaultSort("created_at", listsync.OrderDescending),
	)
	query.SetFilter("mealId", strconv.FormatUint(uint64(mealID), 10))
	return listsync.NewController(s.fetchPage, query, opts...)
}

func (s *Service) fetchPage(ctx context.Context, params map[string]string) (listsync.ListResult[domain.Review], error) {
	return rest.FetchList[domain.Review](ctx, s.api, listPath, params, itemsField)
}

// Write posts a new review for the signed-in user.
func (s *Service) Write(ctx context.Context, form ReviewForm) error {
	if err := s.requireSignIn(); err != nil {
		return err
	}
	if err := pkg.ValidateStruct(form); err != nil {
		return err
	}
	return s.api.Mutate(ctx, http.MethodPost, listPath, form)
}

// Edit replaces the text and rating of the user's own review. The
// server verifies ownership; the client gate only avoids a doomed call.
func (s *Service) Edit(ctx context.Context, r domain.Review, form ReviewForm) error {
	if err := s.requireOwnership(r); err != nil {
		return err
	}
	if err := pkg.ValidateStruct(form); err != nil {
		return err
	}
	return s.api.Mutate(ctx, http.MethodPut, reviewPath(r.ID), form)
}

// Delete removes a review. Admins may delete any review; users only
// their own.
func (s *Service) Delete(ctx context.Context, r domain.Review) error {
	if s.session != nil && s.session.IsAdmin() {
		return s.api.Mutate(ctx, http.MethodDelete, reviewPath(r.ID), nil, rest.AsAdmin(s.session.Email))
	}
	if err := s.requireOwnership(r); err != nil {
		return err
	}
	return s.api.Mutate(ctx, http.MethodDelete, reviewPath(r.ID), nil)
}

// DeleteMutation builds the confirm-then-delete flow for one review.
func (s *Service) DeleteMutation(ctrl *listsync.Controller[domain.Review], r domain.Review) listsync.Mutation {
	return listsync.Mutation{
		TargetID:     fmt.Sprintf("review:%d", r.ID),
		Kind:         listsync.MutationDelete,
		Action:       "delete review",
		NeedsConfirm: true,
		Prompt:       fmt.Sprintf("Delete your review of %q?", r.MealTitle),
		Apply: func() (revert func()) {
			return ctrl.Remove(func(item domain.Review) bool { return item.ID == r.ID })
		},
		Call:      func(ctx context.Context) error { return s.Delete(ctx, r) },
		OnSettled: ctrl.Refresh,
	}
}

func (s *Service) requireSignIn() error {
	if s.session == nil {
		return domain.NewAppError(domain.CodeUnauthorized, "sign in to continue", nil)
	}
	return nil
}

func (s *Service) requireOwnership(r domain.Review) error {
	if err := s.requireSignIn(); err != nil {
		return err
	}
	if r.UserEmail != s.session.Email {
		return domain.NewAppError(domain.CodeUnauthorized, "you can only change your own reviews", nil)
	}
	return nil
}

func reviewPath(id uint) string {
	return fmt.Sprintf("%s/%d", listPath, id)
}
