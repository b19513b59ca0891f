package domain

import "time"

// BaseModel is the common base struct for stored records.
// It replaces gorm.Model to avoid the implicit soft delete behavior of DeletedAt.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Membership tiers. TierNone marks a user without a paid subscription;
// only subscribed members may like or request meals (client-side gating
// only; the server remains authoritative).
const (
	TierNone     = "none"
	TierSilver   = "Silver"
	TierGold     = "Gold"
	TierPlatinum = "Platinum"
)

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Meal represents a published meal.
type Meal struct {
	BaseModel
	Title        string  `gorm:"size:200;not null" json:"title"`
	Category     string  `gorm:"size:50;index" json:"category"`
	Price        float64 `gorm:"not null" json:"price"`
	Rating       float64 `json:"rating"`
	Likes        int     `json:"likes"`
	ReviewsCount int     `gorm:"column:reviews_count" json:"reviews_count"`
	Distributor  string  `gorm:"size:100" json:"distributor"`
	Description  string  `gorm:"type:text" json:"description"`
	Ingredients  string  `gorm:"type:text" json:"ingredients"`
	Image        string  `gorm:"size:500" json:"image"`
	PostTime     time.Time `json:"post_time"`
}

// UpcomingMeal represents a meal announced for a future menu. It collects
// likes and becomes publishable once it reaches the publish threshold.
type UpcomingMeal struct {
	BaseModel
	Title       string    `gorm:"size:200;not null" json:"title"`
	Category    string    `gorm:"size:50;index" json:"category"`
	Price       float64   `json:"price"`
	Likes       int       `json:"likes"`
	Distributor string    `gorm:"size:100" json:"distributor"`
	Description string    `gorm:"type:text" json:"description"`
	Ingredients string    `gorm:"type:text" json:"ingredients"`
	Image       string    `gorm:"size:500" json:"image"`
	PostTime    time.Time `json:"post_time"`
}

// Review represents a user's review of a meal.
type Review struct {
	BaseModel
	MealID    uint   `gorm:"index;not null" json:"meal_id"`
	MealTitle string `gorm:"size:200" json:"meal_title"`
	UserEmail string `gorm:"size:255;index" json:"user_email"`
	UserName  string `gorm:"size:100" json:"user_name"`
	Rating    int    `gorm:"not null" json:"rating"`
	Text      string `gorm:"type:text;not null" json:"text"`
}

// HostelUser represents an account in the meal service.
type HostelUser struct {
	BaseModel
	Name         string `gorm:"size:100;not null" json:"name"`
	Email        string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:255" json:"-"`
	Role         string `gorm:"size:20;default:user" json:"role"`
	Tier         string `gorm:"size:20;default:none" json:"tier"`
}

// Badge returns the display badge for the user's subscription state.
// Unsubscribed users carry the Bronze badge.
func (u *HostelUser) Badge() string {
	if u.Tier == TierNone || u.Tier == "" {
		return "Bronze"
	}
	return u.Tier
}

// Request statuses for the serve queue.
const (
	RequestPending   = "pending"
	RequestDelivered = "delivered"
)

// MealRequest represents a member's request for a meal, queued for serving.
type MealRequest struct {
	BaseModel
	MealID    uint   `gorm:"index;not null" json:"meal_id"`
	MealTitle string `gorm:"size:200" json:"meal_title"`
	UserEmail string `gorm:"size:255;index" json:"user_email"`
	UserName  string `gorm:"size:100" json:"user_name"`
	Status    string `gorm:"size:20;default:pending" json:"status"`
	Likes     int    `json:"likes"`
}

// MembershipPackage represents a purchasable subscription tier.
type MembershipPackage struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// PaymentRecord represents a settled membership payment.
type PaymentRecord struct {
	BaseModel
	UserEmail     string  `gorm:"size:255;index;not null" json:"user_email"`
	PackageName   string  `gorm:"size:50;not null" json:"package_name"`
	Amount        float64 `gorm:"not null" json:"amount"`
	TransactionID string  `gorm:"size:100;uniqueIndex" json:"transaction_id"`
}

// MealLike records that a user liked a meal, enforcing one like per user
// per meal server-side.
type MealLike struct {
	BaseModel
	MealID    uint   `gorm:"index:idx_meal_user,unique;not null" json:"meal_id"`
	UserEmail string `gorm:"size:255;index:idx_meal_user,unique;not null" json:"user_email"`
	// Upcoming marks likes on upcoming meals, which live in a separate table.
	Upcoming bool `gorm:"index:idx_meal_user,unique" json:"upcoming"`
}
