package devserver

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/dinesync/internal/domain"
)

// membershipPackages are the purchasable tiers, keyed by tier name.
var membershipPackages = []domain.MembershipPackage{
	{Name: domain.TierSilver, Price: 4.99},
	{Name: domain.TierGold, Price: 9.99},
	{Name: domain.TierPlatinum, Price: 19.99},
}

func packageByName(name string) (domain.MembershipPackage, bool) {
	for _, p := range membershipPackages {
		if p.Name == name {
			return p, true
		}
	}
	return domain.MembershipPackage{}, false
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		fail(c, domain.NewAppError(domain.CodeValidation, "invalid id", err))
		return 0, false
	}
	return uint(id), true
}

// ---- auth ----

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, domain.NewAppError(domain.CodeValidation, "email and password are required", err))
		return
	}

	user, err := s.store.GetUserByEmail(c.Request.Context(), strings.ToLower(req.Email))
	if err != nil || !CheckPassword(user.PasswordHash, req.Password) {
		fail(c, domain.NewAppError(domain.CodeUnauthorized, "invalid email or password", nil))
		return
	}

	token, err := s.auth.IssueToken(user)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, domain.NewAppError(domain.CodeValidation, "name, email and a password of at least 6 characters are required", err))
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	user := &domain.HostelUser{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Tier:         domain.TierNone,
	}
	if err := s.store.CreateUser(c.Request.Context(), user); err != nil {
		fail(c, err)
		return
	}

	token, err := s.auth.IssueToken(user)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// ---- meals ----

type mealForm struct {
	Title       string  `json:"title" binding:"required,min=2,max=200"`
	Category    string  `json:"category" binding:"required,max=50"`
	Price       float64 `json:"price" binding:"gte=0"`
	Distributor string  `json:"distributor" binding:"required,max=100"`
	Description string  `json:"description" binding:"max=2000"`
	Ingredients string  `json:"ingredients" binding:"max=2000"`
	Image       string  `json:"image" binding:"omitempty,url"`
}

func (s *Server) listMeals(c *gin.Context) {
	meals, total, err := s.store.ListMeals(c.Request.Context(), parseListQuery(c))
	if err != nil {
		fail(c, err)
		return
	}
	listPayload(c, "meals", meals, total)
}

func (s *Server) getMeal(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	meal, err := s.store.GetMeal(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, meal)
}

func (s *Server) createMeal(c *gin.Context) {
	var form mealForm
	if err := c.ShouldBindJSON(&form); err != nil {
		fail(c, domain.NewAppError(domain.CodeValidation, "invalid meal payload", err))
		return
	}
	meal := mealFromForm(form)
	if err := s.store.CreateMeal(c.Request.Context(), &meal); err != nil {
		fail(c, err)
		return
	}
	done(c, "meal added")
}

func (s *Server) updateMeal(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var form mealForm
	if err := c.ShouldBindJSON(&form); err != nil {
		fail(c, domain.NewAppError(domain.CodeValidation, "invalid meal payload", err))
		return
	}

	meal, err := s.store.GetMeal(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	meal.Title = form.Title
	meal.Category = form.Category
	meal.Price = form.Price
	meal.Distributor = form.Distributor
	meal.Description = form.Description
	meal.Ingredients = form.Ingredients
	meal.Image = form.Image

	if err := s.store.UpdateMeal(c.Request.Context(), meal); err != nil {
		fail(c, err)
		return
	}
	done(c, "meal updated")
}

func (s *Server) deleteMeal(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := s.store.DeleteMeal(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	done(c, "meal deleted")
}

func (s *Server) likeMeal(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	err := s.store.LikeMeal(c.Request.Context(), id, c.GetString(ctxUserEmail))
	if err != nil {
		if domain.IsConflict(err) {
			refused(c, "you already liked this meal")
			return
		}
		fail(c, err)
		return
	}
	done(c, "meal liked")
}

func (s *Server) requestMeal(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	err := s.store.CreateRequest(c.Request.Context(), id, c.GetString(ctxUserEmail), c.GetString(ctxUserName))
	if err != nil {
		fail(c, err)
		return
	}
	done(c, "meal requested")
}

func mealFromForm(form mealForm) domain.Meal {
	return domain.Meal{
		Title:       form.Title,
		Category:    form.Category,
		Price:       form.Price,
		Distributor: form.Distributor,
		Description: form.Description,
		Ingredients: form.Ingredients,
		Image:       form.Image,
	}
}

// ---- upcoming ----

func (s *Server) listUpcoming(c *gin.Context) {
	meals, total, err := s.store.ListUpcoming(c.Request.Context(), parseListQuery(c))
	if err != nil {
		fail(c, err)
		return
	}
	listPayload(c, "items", meals, total)
}

func (s *Server) createUpcoming(c *gin.Context) {
	var form mealForm
	if err := c.ShouldBindJSON(&form); err != nil {
		fail(c, domain.NewAppError(domain.CodeValidation, "invalid meal payload", err))
		return
	}
	up := domain.UpcomingMeal{
		Title:       form.Title,
		Category:    form.Category,
		Price:       form.Price,
		Distributor: form.Distributor,
		Description: form.Description,
		Ingredients: form.Ingredients,
		Image:       form.Image,
	}
	if err := s.store.CreateUpcoming(c.Request.Context(), &up); err != nil {
		fail(c, err)
		return
	}
	done(c, "upcoming meal announced")
}

func (s *Server) deleteUpcoming(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := s.store.DeleteUpcoming(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	done(c, "announcement withdrawn")
}

func (s *Server) likeUpcoming(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	err := s.store.LikeUpcoming(c.Request.Context(), id, c.GetString(ctxUserEmail))
	if err != nil {
		if domain.IsConflict(err) {
			refused(c, "you already liked this meal")
			return
		}
		fail(c, err)
		return
	}
	done(c, "meal liked")
}

func (s *Server) publishUpcoming(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if _, err := s.store.PublishUpcoming(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	done(c, "meal published")
}

// ---- reviews ----

type reviewForm struct {
	MealID uint   `json:"meal_id" binding:"required"`
	Rating int    `json:"rating" binding:"required,gte=1,lte=5"`
	Text   string `json:"text" binding:"required,min=4,max=2000"`
}

func (s *Server) listReviews(c *gin.Context) {
	var mealID uint
	if v := c.Query("mealId"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			fail(c, domain.NewAppError(domain.CodeValidation, "invalid mealId", err))
			return
		}
		mealID = uint(parsed)
	}

	reviews, total, err := s.store.ListReviews(c.Request.Context(), parseListQuery(c), mealID)
	if err != nil {
		fail(c, err)
		return
	}
	listPayload(c, "reviews", reviews, total)
}

func (s *Server) createReview(c *gin.Context) {
	var form reviewForm
	if err := c.ShouldBindJSON(&form); err != nil {
		fail(c, domain.NewAppError(domain.CodeValidation, "invalid review payload", err))
		return
	}
	review := domain.Review{
		MealID:    form.MealID,
		UserEmail: c.GetString(ctxUserEmail),
		UserName:  c.GetString(ctxUserName),
		Rating:    form.Rating,
		Text:      form.Text,
	}
	if err := s.store.CreateReview(c.Request.Context(), &review); err != nil {
		fail(c, err)
		return
	}
	done(c, "review posted")
}

func (s *Server) updateReview(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var form reviewForm
	if err := c.ShouldBindJSON(&form); err != nil {
		fail(c, domain.NewAppError(domain.CodeValidation, "invalid review payload", err))
		return
	}

	review, err := s.store.GetReview(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if review.UserEmail != c.GetString(ctxUserEmail) {
		fail(c, domain.NewAppError(domain.CodeUnauthorized, "you can only change your own reviews", nil))
		return
	}

	review.Rating = form.Rating
	review.Text = form.Text
	if err := s.store.UpdateReview(c.Request.Context(), review); err != nil {
		fail(c, err)
		return
	}
	done(c, "review updated")
}

func (s *Server) deleteReview(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	review, err := s.store.GetReview(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	isOwner := review.UserEmail == c.GetString(ctxUserEmail)
	isAdmin := c.GetString(ctxUserRole) == domain.RoleAdmin
	if !isOwner && !isAdmin {
		fail(c, domain.NewAppError(domain.CodeUnauthorized, "you can only delete your own reviews", nil))
		return
	}

	if err := s.store.DeleteReview(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	done(c, "review deleted")
}

// ---- users ----

func (s *Server) listUsers(c *gin.Context) {
	users, total, err := s.store.ListUsers(c.Request.Context(), parseListQuery(c))
	if err != nil {
		fail(c, err)
		return
	}
	listPayload(c, "users", users, total)
}

func (s *Server) makeAdmin(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := s.store.MakeAdmin(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	done(c, "user promoted to admin")
}

// ---- serve queue ----

func (s *Server) listRequests(c *gin.Context) {
	// Admins see the full queue; everyone else only their own rows.
	userEmail := ""
	if c.GetString(ctxUserRole) != domain.RoleAdmin {
		userEmail = c.GetString(ctxUserEmail)
	}

	requests, total, err := s.store.ListRequests(c.Request.Context(), parseListQuery(c), userEmail)
	if err != nil {
		fail(c, err)
		return
	}
	listPayload(c, "requests", requests, total)
}

func (s *Server) serveRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := s.store.ServeRequest(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	done(c, "request served")
}

func (s *Server) deleteRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	req, err := s.store.GetRequest(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	isOwner := req.UserEmail == c.GetString(ctxUserEmail)
	isAdmin := c.GetString(ctxUserRole) == domain.RoleAdmin
	if !isOwner && !isAdmin {
		fail(c, domain.NewAppError(domain.CodeUnauthorized, "you can only cancel your own requests", nil))
		return
	}

	if err := s.store.DeleteRequest(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	done(c, "request cancelled")
}

// ---- payments ----

type intentForm struct {
	Package string `json:"package" binding:"required"`
}

type savePaymentForm struct {
	Package       string  `json:"package" binding:"required"`
	Amount        float64 `json:"amount" binding:"gte=0"`
	TransactionID string  `json:"transaction_id" binding:"required"`
}

func (s *Server) listPackages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"packages": membershipPackages})
}

func (s *Server) createPaymentIntent(c *gin.Context) {
	var form intentForm
	if err := c.ShouldBindJSON(&form); err != nil {
		fail(c, domain.NewAppError(domain.CodeValidation, "package is required", err))
		return
	}
	pack, ok := packageByName(form.Package)
	if !ok {
		fail(c, domain.NewAppError(domain.CodeValidation, "unknown package "+form.Package, nil))
		return
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"client_secret": "cs_test_" + hex.EncodeToString(b),
		"amount":        pack.Price,
	})
}

func (s *Server) savePayment(c *gin.Context) {
	var form savePaymentForm
	if err := c.ShouldBindJSON(&form); err != nil {
		fail(c, domain.NewAppError(domain.CodeValidation, "invalid payment payload", err))
		return
	}
	if _, ok := packageByName(form.Package); !ok {
		fail(c, domain.NewAppError(domain.CodeValidation, "unknown package "+form.Package, nil))
		return
	}

	record := domain.PaymentRecord{
		UserEmail:     c.GetString(ctxUserEmail),
		PackageName:   form.Package,
		Amount:        form.Amount,
		TransactionID: form.TransactionID,
	}
	if err := s.store.SavePayment(c.Request.Context(), &record); err != nil {
		fail(c, err)
		return
	}
	done(c, "membership activated: sign in again to refresh your badge")
}
