package devserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires every endpoint the client knows about. Paths and
// methods mirror the production API exactly; the client does not know
// it is talking to a fixture.
func (s *Server) registerRoutes() {
	e := s.engine

	e.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := e.Group("/auth")
	{
		auth.POST("/login", s.login)
		auth.POST("/register", s.register)
	}

	meals := e.Group("/meals")
	{
		meals.GET("", s.listMeals)
		meals.GET("/:id", s.getMeal)
		meals.POST("", s.requireUser(), s.requireAdmin(), s.createMeal)
		meals.PUT("/:id", s.requireUser(), s.requireAdmin(), s.updateMeal)
		meals.DELETE("/:id", s.requireUser(), s.requireAdmin(), s.deleteMeal)
		meals.POST("/:id/like", s.requireUser(), s.requireMember(), s.likeMeal)
		meals.POST("/:id/request", s.requireUser(), s.requireMember(), s.requestMeal)
	}

	upcoming := e.Group("/upcoming")
	{
		upcoming.GET("", s.listUpcoming)
		upcoming.POST("", s.requireUser(), s.requireAdmin(), s.createUpcoming)
		upcoming.DELETE("/:id", s.requireUser(), s.requireAdmin(), s.deleteUpcoming)
		upcoming.POST("/:id/like", s.requireUser(), s.requireMember(), s.likeUpcoming)
		upcoming.POST("/:id/publish", s.requireUser(), s.requireAdmin(), s.publishUpcoming)
	}

	reviews := e.Group("/reviews")
	{
		reviews.GET("", s.listReviews)
		reviews.POST("", s.requireUser(), s.createReview)
		reviews.PUT("/:id", s.requireUser(), s.updateReview)
		reviews.DELETE("/:id", s.requireUser(), s.deleteReview)
	}

	users := e.Group("/users", s.requireUser(), s.requireAdmin())
	{
		users.GET("", s.listUsers)
		users.POST("/:id/make-admin", s.makeAdmin)
	}

	requests := e.Group("/requests", s.requireUser())
	{
		requests.GET("", s.listRequests)
		requests.POST("/:id/serve", s.requireAdmin(), s.serveRequest)
		requests.DELETE("/:id", s.deleteRequest)
	}

	e.GET("/packages", s.listPackages)
	payments := e.Group("/payments", s.requireUser())
	{
		payments.POST("/create-intent", s.createPaymentIntent)
		payments.POST("/save", s.savePayment)
	}
}
