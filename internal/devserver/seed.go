package devserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/simp-lee/dinesync/internal/domain"
)

// SeedPassword is the password for every seeded account.
const SeedPassword = "dinesync"

// Seed loads a small, deterministic data set into an empty database.
// An already-populated database is left untouched. Emails listed in
// adminEmails are created (or promoted) as admin accounts.
func Seed(ctx context.Context, store *Store, adminEmails []string) error {
	var count int64
	if err := store.db.WithContext(ctx).Model(&domain.HostelUser{}).Count(&count).Error; err != nil {
		return mapError(err)
	}
	if count > 0 {
		return ensureAdmins(ctx, store, adminEmails)
	}

	hash, err := HashPassword(SeedPassword)
	if err != nil {
		return err
	}

	users := []domain.HostelUser{
		{Name: "Asha Verma", Email: "asha@hostel.test", PasswordHash: hash, Role: domain.RoleUser, Tier: domain.TierGold},
		{Name: "Ravi Kumar", Email: "ravi@hostel.test", PasswordHash: hash, Role: domain.RoleUser, Tier: domain.TierSilver},
		{Name: "Meera Joshi", Email: "meera@hostel.test", PasswordHash: hash, Role: domain.RoleUser, Tier: domain.TierNone},
		{Name: "Warden", Email: "warden@hostel.test", PasswordHash: hash, Role: domain.RoleAdmin, Tier: domain.TierPlatinum},
	}
	for i := range users {
		if err := store.CreateUser(ctx, &users[i]); err != nil {
			return fmt.Errorf("seed user %s: %w", users[i].Email, err)
		}
	}

	now := time.Now()
	meals := []domain.Meal{
		{Title: "Hyderabadi Biryani", Category: "dinner", Price: 5.50, Rating: 4.5, Likes: 42, ReviewsCount: 2, Distributor: "Kitchen A", Description: "Fragrant rice with saffron", Ingredients: "basmati rice, saffron, spices", PostTime: now.Add(-72 * time.Hour)},
		{Title: "Masala Dosa", Category: "breakfast", Price: 2.00, Rating: 4.2, Likes: 31, Distributor: "Kitchen B", Ingredients: "rice batter, potato, spices", PostTime: now.Add(-48 * time.Hour)},
		{Title: "Dal Tadka", Category: "lunch", Price: 1.80, Rating: 3.9, Likes: 17, Distributor: "Kitchen A", Ingredients: "lentils, ghee, cumin", PostTime: now.Add(-24 * time.Hour)},
		{Title: "Paneer Butter Masala", Category: "dinner", Price: 4.20, Rating: 4.4, Likes: 28, Distributor: "Kitchen B", Ingredients: "paneer, butter, tomato", PostTime: now.Add(-12 * time.Hour)},
		{Title: "Veg Thali", Category: "lunch", Price: 3.00, Rating: 4.0, Likes: 22, Distributor: "Kitchen A", Ingredients: "assorted", PostTime: now.Add(-6 * time.Hour)},
	}
	for i := range meals {
		if err := store.CreateMeal(ctx, &meals[i]); err != nil {
			return fmt.Errorf("seed meal %q: %w", meals[i].Title, err)
		}
	}

	upcoming := []domain.UpcomingMeal{
		{Title: "Steamed Momos", Category: "snacks", Price: 2.50, Likes: 14, Distributor: "Kitchen B", PostTime: now},
		{Title: "Thukpa", Category: "dinner", Price: 3.20, Likes: 6, Distributor: "Kitchen B", PostTime: now},
	}
	for i := range upcoming {
		if err := store.CreateUpcoming(ctx, &upcoming[i]); err != nil {
			return fmt.Errorf("seed upcoming %q: %w", upcoming[i].Title, err)
		}
	}

	reviews := []domain.Review{
		{MealID: meals[0].ID, UserEmail: "asha@hostel.test", UserName: "Asha Verma", Rating: 5, Text: "Best biryani on campus."},
		{MealID: meals[0].ID, UserEmail: "ravi@hostel.test", UserName: "Ravi Kumar", Rating: 4, Text: "Could use more saffron, still great."},
	}
	for i := range reviews {
		if err := store.CreateReview(ctx, &reviews[i]); err != nil {
			return fmt.Errorf("seed review: %w", err)
		}
	}

	return ensureAdmins(ctx, store, adminEmails)
}

// ensureAdmins creates or promotes the configured admin accounts.
func ensureAdmins(ctx context.Context, store *Store, adminEmails []string) error {
	for _, email := range adminEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" {
			continue
		}
		existing, err := store.GetUserByEmail(ctx, email)
		if err == nil {
			if existing.Role != domain.RoleAdmin {
				if err := store.MakeAdmin(ctx, existing.ID); err != nil {
					return err
				}
			}
			continue
		}
		if !domain.IsNotFound(err) {
			return err
		}

		hash, err := HashPassword(SeedPassword)
		if err != nil {
			return err
		}
		u := domain.HostelUser{
			Name:         email[:strings.Index(email, "@")],
			Email:        email,
			PasswordHash: hash,
			Role:         domain.RoleAdmin,
			Tier:         domain.TierPlatinum,
		}
		if err := store.CreateUser(ctx, &u); err != nil {
			return err
		}
	}
	return nil
}
