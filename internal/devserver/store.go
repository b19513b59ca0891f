package devserver

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/simp-lee/dinesync/internal/domain"
	"github.com/simp-lee/dinesync/internal/pkg"
)

// Sort-key → column tables per collection. Client keys outside a table
// fall back to the collection default.
var (
	mealSortColumns = map[string]string{
		"likes":         "likes",
		"rating":        "rating",
		"price":         "price",
		"reviews_count": "reviews_count",
		"created_at":    "created_at",
	}
	upcomingSortColumns = map[string]string{
		"likes":      "likes",
		"price":      "price",
		"created_at": "created_at",
	}
	reviewSortColumns = map[string]string{
		"rating":     "rating",
		"created_at": "created_at",
	}
	userSortColumns = map[string]string{
		"name":       "name",
		"email":      "email",
		"created_at": "created_at",
	}
	requestSortColumns = map[string]string{
		"likes":      "likes",
		"created_at": "created_at",
	}
)

// Store is the fixture server's persistence layer, backed by GORM.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store over the given database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the schema for every stored record type.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&domain.Meal{},
		&domain.UpcomingMeal{},
		&domain.Review{},
		&domain.HostelUser{},
		&domain.MealRequest{},
		&domain.PaymentRecord{},
		&domain.MealLike{},
	)
}

// ---- meals ----

func (s *Store) ListMeals(ctx context.Context, q listQuery) ([]domain.Meal, int64, error) {
	base := s.db.WithContext(ctx).Model(&domain.Meal{}).
		Scopes(searchIn(q, "title", "category", "distributor"), mealFilters(q))

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, mapError(err)
	}

	meals := []domain.Meal{}
	if err := base.Scopes(paginate(q), sortBy(q, mealSortColumns, "likes")).Find(&meals).Error; err != nil {
		return nil, 0, mapError(err)
	}
	return meals, total, nil
}

func (s *Store) GetMeal(ctx context.Context, id uint) (*domain.Meal, error) {
	var m domain.Meal
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, mapError(err)
	}
	return &m, nil
}

func (s *Store) CreateMeal(ctx context.Context, m *domain.Meal) error {
	if m.PostTime.IsZero() {
		m.PostTime = time.Now()
	}
	return mapError(s.db.WithContext(ctx).Create(m).Error)
}

func (s *Store) UpdateMeal(ctx context.Context, m *domain.Meal) error {
	return mapError(s.db.WithContext(ctx).Save(m).Error)
}

// DeleteMeal removes the meal and everything hanging off it.
func (s *Store) DeleteMeal(ctx context.Context, id uint) error {
	return pkg.WithTx(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		result := tx.Delete(&domain.Meal{}, id)
		if result.Error != nil {
			return mapError(result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.NewAppError(domain.CodeNotFound, "meal not found", nil)
		}
		if err := tx.Where("meal_id = ?", id).Delete(&domain.Review{}).Error; err != nil {
			return mapError(err)
		}
		if err := tx.Where("meal_id = ? AND upcoming = ?", id, false).Delete(&domain.MealLike{}).Error; err != nil {
			return mapError(err)
		}
		if err := tx.Where("meal_id = ?", id).Delete(&domain.MealRequest{}).Error; err != nil {
			return mapError(err)
		}
		return nil
	})
}

// LikeMeal records one like per user per meal and bumps the counter.
func (s *Store) LikeMeal(ctx context.Context, mealID uint, userEmail string) error {
	return pkg.WithTx(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var m domain.Meal
		if err := tx.First(&m, mealID).Error; err != nil {
			return mapError(err)
		}
		like := domain.MealLike{MealID: mealID, UserEmail: userEmail, Upcoming: false}
		if err := tx.Create(&like).Error; err != nil {
			if isDuplicateKeyError(err) {
				return domain.NewAppError(domain.CodeConflict, "you already liked this meal", err)
			}
			return mapError(err)
		}
		return mapError(tx.Model(&domain.Meal{}).Where("id = ?", mealID).
			UpdateColumn("likes", gorm.Expr("likes + 1")).Error)
	})
}

// ---- upcoming meals ----

func (s *Store) ListUpcoming(ctx context.Context, q listQuery) ([]domain.UpcomingMeal, int64, error) {
	base := s.db.WithContext(ctx).Model(&domain.UpcomingMeal{}).
		Scopes(searchIn(q, "title", "category", "distributor"))

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, mapError(err)
	}

	meals := []domain.UpcomingMeal{}
	if err := base.Scopes(paginate(q), sortBy(q, upcomingSortColumns, "likes")).Find(&meals).Error; err != nil {
		return nil, 0, mapError(err)
	}
	return meals, total, nil
}

func (s *Store) CreateUpcoming(ctx context.Context, m *domain.UpcomingMeal) error {
	if m.PostTime.IsZero() {
		m.PostTime = time.Now()
	}
	return mapError(s.db.WithContext(ctx).Create(m).Error)
}

func (s *Store) DeleteUpcoming(ctx context.Context, id uint) error {
	return pkg.WithTx(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		result := tx.Delete(&domain.UpcomingMeal{}, id)
		if result.Error != nil {
			return mapError(result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.NewAppError(domain.CodeNotFound, "upcoming meal not found", nil)
		}
		return mapError(tx.Where("meal_id = ? AND upcoming = ?", id, true).Delete(&domain.MealLike{}).Error)
	})
}

func (s *Store) LikeUpcoming(ctx context.Context, mealID uint, userEmail string) error {
	return pkg.WithTx(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var m domain.UpcomingMeal
		if err := tx.First(&m, mealID).Error; err != nil {
			return mapError(err)
		}
		like := domain.MealLike{MealID: mealID, UserEmail: userEmail, Upcoming: true}
		if err := tx.Create(&like).Error; err != nil {
			if isDuplicateKeyError(err) {
				return domain.NewAppError(domain.CodeConflict, "you already liked this meal", err)
			}
			return mapError(err)
		}
		return mapError(tx.Model(&domain.UpcomingMeal{}).Where("id = ?", mealID).
			UpdateColumn("likes", gorm.Expr("likes + 1")).Error)
	})
}

// PublishUpcoming atomically promotes an upcoming meal onto the menu:
// the published meal appears and the announcement disappears in the
// same transaction, carrying its like count over.
func (s *Store) PublishUpcoming(ctx context.Context, id uint) (*domain.Meal, error) {
	var published *domain.Meal
	err := pkg.WithTx(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var up domain.UpcomingMeal
		if err := tx.First(&up, id).Error; err != nil {
			return mapError(err)
		}

		meal := domain.Meal{
			Title:       up.Title,
			Category:    up.Category,
			Price:       up.Price,
			Likes:       up.Likes,
			Distributor: up.Distributor,
			Description: up.Description,
			Ingredients: up.Ingredients,
			Image:       up.Image,
			PostTime:    time.Now(),
		}
		if err := tx.Create(&meal).Error; err != nil {
			return mapError(err)
		}
		if err := tx.Delete(&domain.UpcomingMeal{}, id).Error; err != nil {
			return mapError(err)
		}
		if err := tx.Where("meal_id = ? AND upcoming = ?", id, true).Delete(&domain.MealLike{}).Error; err != nil {
			return mapError(err)
		}
		published = &meal
		return nil
	})
	if err != nil {
		return nil, err
	}
	return published, nil
}

// ---- reviews ----

func (s *Store) ListReviews(ctx context.Context, q listQuery, mealID uint) ([]domain.Review, int64, error) {
	base := s.db.WithContext(ctx).Model(&domain.Review{}).
		Scopes(searchIn(q, "meal_title", "user_name", "text"))
	if mealID != 0 {
		base = base.Where("meal_id = ?", mealID)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, mapError(err)
	}

	reviews := []domain.Review{}
	if err := base.Scopes(paginate(q), sortBy(q, reviewSortColumns, "created_at")).Find(&reviews).Error; err != nil {
		return nil, 0, mapError(err)
	}
	return reviews, total, nil
}

// CreateReview stores the review and folds it into the meal's rating
// aggregate in the same transaction.
func (s *Store) CreateReview(ctx context.Context, r *domain.Review) error {
	return pkg.WithTx(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var meal domain.Meal
		if err := tx.First(&meal, r.MealID).Error; err != nil {
			return mapError(err)
		}
		r.MealTitle = meal.Title
		if err := tx.Create(r).Error; err != nil {
			return mapError(err)
		}
		return recomputeMealRating(tx, r.MealID)
	})
}

func (s *Store) GetReview(ctx context.Context, id uint) (*domain.Review, error) {
	var r domain.Review
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, mapError(err)
	}
	return &r, nil
}

func (s *Store) UpdateReview(ctx context.Context, r *domain.Review) error {
	return pkg.WithTx(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Save(r).Error; err != nil {
			return mapError(err)
		}
		return recomputeMealRating(tx, r.MealID)
	})
}

func (s *Store) DeleteReview(ctx context.Context, id uint) error {
	return pkg.WithTx(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var r domain.Review
		if err := tx.First(&r, id).Error; err != nil {
			return mapError(err)
		}
		if err := tx.Delete(&domain.Review{}, id).Error; err != nil {
			return mapError(err)
		}
		return recomputeMealRating(tx, r.MealID)
	})
}

// recomputeMealRating refreshes the meal's review count and average
// rating from the reviews table.
func recomputeMealRating(tx *gorm.DB, mealID uint) error {
	var agg struct {
		Count  int64
		Rating float64
	}
	err := tx.Model(&domain.Review{}).
		Select("COUNT(*) as count, COALESCE(AVG(rating), 0) as rating").
		Where("meal_id = ?", mealID).
		Scan(&agg).Error
	if err != nil {
		return mapError(err)
	}
	return mapError(tx.Model(&domain.Meal{}).Where("id = ?", mealID).Updates(map[string]any{
		"reviews_count": agg.Count,
		"rating":        agg.Rating,
	}).Error)
}

// ---- users ----

func (s *Store) ListUsers(ctx context.Context, q listQuery) ([]domain.HostelUser, int64, error) {
	base := s.db.WithContext(ctx).Model(&domain.HostelUser{}).
		Scopes(searchIn(q, "name", "email"))

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, mapError(err)
	}

	users := []domain.HostelUser{}
	if err := base.Scopes(paginate(q), sortBy(q, userSortColumns, "created_at")).Find(&users).Error; err != nil {
		return nil, 0, mapError(err)
	}
	return users, total, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.HostelUser, error) {
	var u domain.HostelUser
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *domain.HostelUser) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if isDuplicateKeyError(err) {
			return domain.NewAppError(domain.CodeConflict, "an account with this email already exists", err)
		}
		return mapError(err)
	}
	return nil
}

func (s *Store) MakeAdmin(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Model(&domain.HostelUser{}).Where("id = ?", id).
		Update("role", domain.RoleAdmin)
	if result.Error != nil {
		return mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewAppError(domain.CodeNotFound, "user not found", nil)
	}
	return nil
}

// ---- serve queue ----

func (s *Store) ListRequests(ctx context.Context, q listQuery, userEmail string) ([]domain.MealRequest, int64, error) {
	base := s.db.WithContext(ctx).Model(&domain.MealRequest{}).
		Scopes(searchIn(q, "meal_title", "user_name", "user_email"), statusFilter(q))
	if userEmail != "" {
		base = base.Where("user_email = ?", userEmail)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, mapError(err)
	}

	requests := []domain.MealRequest{}
	if err := base.Scopes(paginate(q), sortBy(q, requestSortColumns, "likes")).Find(&requests).Error; err != nil {
		return nil, 0, mapError(err)
	}
	return requests, total, nil
}

// CreateRequest queues a meal for a user. A repeated request bumps the
// existing row's tally instead of inserting a duplicate.
func (s *Store) CreateRequest(ctx context.Context, mealID uint, userEmail, userName string) error {
	return pkg.WithTx(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var meal domain.Meal
		if err := tx.First(&meal, mealID).Error; err != nil {
			return mapError(err)
		}

		var existing domain.MealRequest
		err := tx.Where("meal_id = ? AND user_email = ? AND status = ?", mealID, userEmail, domain.RequestPending).
			First(&existing).Error
		switch {
		case err == nil:
			return mapError(tx.Model(&existing).UpdateColumn("likes", gorm.Expr("likes + 1")).Error)
		case errors.Is(err, gorm.ErrRecordNotFound):
			req := domain.MealRequest{
				MealID:    mealID,
				MealTitle: meal.Title,
				UserEmail: userEmail,
				UserName:  userName,
				Status:    domain.RequestPending,
				Likes:     1,
			}
			return mapError(tx.Create(&req).Error)
		default:
			return mapError(err)
		}
	})
}

func (s *Store) GetRequest(ctx context.Context, id uint) (*domain.MealRequest, error) {
	var r domain.MealRequest
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, mapError(err)
	}
	return &r, nil
}

// ServeRequest marks a pending request delivered. Serving an already
// delivered request is a conflict.
func (s *Store) ServeRequest(ctx context.Context, id uint) error {
	return pkg.WithTx(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var r domain.MealRequest
		if err := tx.First(&r, id).Error; err != nil {
			return mapError(err)
		}
		if r.Status == domain.RequestDelivered {
			return domain.NewAppError(domain.CodeConflict, "request already delivered", nil)
		}
		return mapError(tx.Model(&r).Update("status", domain.RequestDelivered).Error)
	})
}

func (s *Store) DeleteRequest(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&domain.MealRequest{}, id)
	if result.Error != nil {
		return mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewAppError(domain.CodeNotFound, "request not found", nil)
	}
	return nil
}

// ---- payments ----

// SavePayment records the settled payment and upgrades the user's tier
// in the same transaction.
func (s *Store) SavePayment(ctx context.Context, p *domain.PaymentRecord) error {
	return pkg.WithTx(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			if isDuplicateKeyError(err) {
				return domain.NewAppError(domain.CodeConflict, "payment already recorded", err)
			}
			return mapError(err)
		}
		result := tx.Model(&domain.HostelUser{}).Where("email = ?", p.UserEmail).
			Update("tier", p.PackageName)
		if result.Error != nil {
			return mapError(result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.NewAppError(domain.CodeNotFound, "user not found", nil)
		}
		return nil
	})
}

// mapError converts GORM errors to classified errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NewAppError(domain.CodeNotFound, "not found", err)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicateKeyError(err) {
		return domain.NewAppError(domain.CodeConflict, "already exists", err)
	}
	return domain.NewAppError(domain.CodeInternal, "database error", err)
}

// isDuplicateKeyError detects unique constraint violations by examining
// the error message. Not all GORM dialectors translate driver-level
// errors to gorm.ErrDuplicatedKey (e.g. the pure-Go SQLite driver).
func isDuplicateKeyError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
