package meal

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
	listPath   = "/meals"
	itemsField = "meals"
)

// DefaultPageSize matches the server's default page length for meals.
const DefaultPageSize = 10

// Service exposes the meals collection: browsing with search, sort,
// price-band filters and pagination, plus the admin and member actions
// on individual meals.
type Service struct {
	api     *rest.Client
	session *identity.Session
	log     *slog.Logger
}

// NewService creates a meal service. session may be nil for anonymous
// browsing; member and admin actions then fail locally before any
// network call.
func NewService(api *rest.Client, session *identity.Session, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{api: api, session: session, log: log}
}

// NewController builds a list controller over the meals collection.
// Meals order by likes descending until the user picks another sort,
// and accept minPrice/maxPrice band filters.
func (s *Service) NewController(opts ...listsync.ControllerOption[domain.Meal]) *listsync.Controller[domain.Meal] {
	query := listsync.NewQueryState(
		listsync.WithDefaultSort("likes", listsync.OrderDescending),
		listsync.WithPageSize(DefaultPageSize),
		listsync.WithNumericFilters("minPrice", "maxPrice"),
	)
	return listsync.NewController(s.fetchPage, query, opts...)
}

func (s *Service) fetchPage(ctx context.Context, params map[string]string) (listsync.ListResult[domain.Meal], error) {
	return rest.FetchList[domain.Meal](ctx, s.api, listPath, params, itemsField)
}

// Get fetches one meal with its detail fields.
func (s *Service) Get(ctx context.Context, id uint) (*domain.Meal, error) {
	var m domain.Meal
	if err := s.api.Get(ctx, mealPath(id), nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Add publishes a new meal. Admin only.
func (s *Service) Add(ctx context.Context, req AddMealRequest) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}
	if err := pkg.ValidateStruct(req); err != nil {
		return err
	}
	return s.api.Mutate(ctx, http.MethodPost, listPath, req, rest.AsAdmin(s.session.Email))
}

// Update replaces a meal's stored fields. Admin only.
func (s *Service) Update(ctx context.Context, id uint, req UpdateMealRequest) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}
	if err := pkg.ValidateStruct(req); err != nil {
		return err
	}
	return s.api.Mutate(ctx, http.MethodPut, mealPath(id), req, rest.AsAdmin(s.session.Email))
}

// Delete removes a meal. Admin only.
func (s *Service) Delete(ctx context.Context, id uint) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}
	return s.api.Mutate(ctx, http.MethodDelete, mealPath(id), nil, rest.AsAdmin(s.session.Email))
}

// Like registers the signed-in member's like. The server enforces
// one like per user; the client gate only prevents a pointless call.
func (s *Service) Like(ctx context.Context, id uint) error {
	if err := s.requireMember(); err != nil {
		return err
	}
	return s.api.Mutate(ctx, http.MethodPost, mealPath(id)+"/like", nil)
}

// Request queues the meal in the serve queue for the signed-in member.
func (s *Service) Request(ctx context.Context, id uint) error {
	if err := s.requireMember(); err != nil {
		return err
	}
	return s.api.Mutate(ctx, http.MethodPost, mealPath(id)+"/request", nil)
}

func (s *Service) requireAdmin() error {
	if s.session == nil || !s.session.IsAdmin() {
		return domain.NewAppError(domain.CodeUnauthorized, "admin access required", nil)
	}
	return nil
}

func (s *Service) requireMember() error {
	if s.session == nil {
		return domain.NewAppError(domain.CodeUnauthorized, "sign in to continue", nil)
	}
	if !s.session.IsMember() {
		return domain.NewAppError(domain.CodeUnauthorized, "membership required for this action", nil)
	}
	return nil
}

func mealPath(id uint) string {
	return fmt.Sprintf("%s/%d", listPath, id)
}

func targetID(id uint) string {
	return fmt.Sprintf("meal:%d", id)
}
