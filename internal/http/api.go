package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"library-manager/internal/auth"
	"library-manager/internal/domain"
	"library-manager/internal/service"
	"library-manager/internal/storage"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	books   service.BookService
	users   service.UserService
	lending service.LendingService
	tokens  *auth.TokenManager
	storage storage.Service
	bucket  string
	prefix  string
}

func NewHandler(
	books service.BookService,
	users service.UserService,
	lending service.LendingService,
	tokens *auth.TokenManager,
	store storage.Service,
	bucket string,
	prefix string,
) *Handler {
	return &Handler{
		books:   books,
		users:   users,
		lending: lending,
		tokens:  tokens,
		storage: store,
		bucket:  bucket,
		prefix:  prefix,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api/v1")
	{
		api.POST("/auth/register", h.register)
		api.POST("/auth/login", h.login)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}

	authed := api.Group("", h.authRequired())
	{
		books := authed.Group("/books")
		books.GET("", h.searchBooks)
		books.GET("/:guid", h.getBook)
		books.GET("/:guid/availability", h.bookAvailability)
		books.POST("", h.requireStaff(), h.createBook)
		books.PUT("/:guid", h.requireStaff(), h.updateBook)
		books.DELETE("/:guid", h.requireStaff(), h.deleteBook)
		books.POST("/:guid/activate", h.requireStaff(), h.activateBook)

		borrows := authed.Group("/borrows")
		borrows.POST("", h.borrowBook)
		borrows.POST("/:guid/return", h.returnBook)
		borrows.GET("/my-history", h.myBorrowHistory)
		borrows.GET("/overdue", h.requireStaff(), h.overdueBorrows)
		borrows.GET("/:guid", h.getBorrow)
		borrows.GET("", h.requireStaff(), h.listBorrows)

		users := authed.Group("/users", h.requireStaff())
		users.GET("", h.searchUsers)
		users.GET("/:guid", h.getUser)
		users.POST("", h.createUser)
		users.PUT("/:guid", h.updateUser)
		users.DELETE("/:guid", h.deleteUser)
		users.POST("/:guid/activate", h.activateUser)

		reports := authed.Group("/reports", h.requireRole(domain.RoleAdmin))
		reports.POST("/borrows/export", h.exportBorrows)
		reports.GET("/objects", h.listReportObjects)
		reports.GET("/objects/url", h.getReportObjectURL)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", paginationExposedHeaders)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
