package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"campus-canteen/models"
)

// CORSConfig builds the CORS policy. Development allows every origin;
// otherwise only the configured frontends are allowed.
func CORSConfig(development bool, origins []string) cors.Config {
	if development || len(origins) == 0 {
		return cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:   []string{"Content-Length"},
			MaxAge:          12 * time.Hour,
		}
	}
	return cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// RequestLogger logs one line per request through the handlers' logger.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelDebug
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			level = slog.LevelError
		case c.Writer.Status() >= http.StatusBadRequest:
			level = slog.LevelInfo
		}
		Log.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

func HealthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := Store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// NewRouter registers every route. Init must have been called first.
func NewRouter(corsConfig cors.Config) *gin.Engine {
	router := gin.New()
	router.Use(RequestLogger(), gin.Recovery())
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", HealthHandler)

	// --- Authentication Routes ---
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", RegisterHandler)
		authGroup.POST("/login", LoginHandler)
		authGroup.GET("/me", AuthMiddleware(), AccountHandler)
	}

	// --- Public Shop and Menu Routes --- (Auth token not needed)
	publicGroup := router.Group("/public")
	{
		publicGroup.GET("/shops", ListShopsHandler)
		publicGroup.GET("/shops/:shop_id", GetShopHandler)
		publicGroup.GET("/shops/:shop_id/menu", GetShopMenuHandler)
	}

	// --- Student Routes ---
	studentRoutes := router.Group("/student", AuthMiddleware(), RequireRoles(models.RoleStudent))
	{
		orderRoutes := studentRoutes.Group("/orders")
		{
			orderRoutes.POST("", PlaceOrderHandler)
			orderRoutes.GET("", GetStudentOrdersHandler)
			orderRoutes.GET("/:order_id", GetStudentOrderHandler)
			orderRoutes.POST("/:order_id/cancel", CancelStudentOrderHandler)
			orderRoutes.GET("/:order_id/pickup", GetPickupPayloadHandler)
		}
	}

	// --- Shop Staff Routes ---
	staffRoutes := router.Group("/staff", AuthMiddleware(), RequireRoles(models.RoleCaptain, models.RoleOwner))
	{
		staffRoutes.PUT("/shop", RequireRoles(models.RoleOwner), SetOwnShopOpenHandler)
		staffRoutes.GET("/stats", GetStaffStatsHandler)
		staffRoutes.POST("/scan", ScanHandler)

		menuRoutes := staffRoutes.Group("/menu")
		{
			menuRoutes.GET("", GetStaffMenuHandler)
			menuRoutes.POST("", CreateFoodItemHandler)
			menuRoutes.PUT("/:item_id", UpdateFoodItemHandler)
			menuRoutes.PATCH("/:item_id/availability", ToggleAvailabilityHandler)
			menuRoutes.PATCH("/:item_id/offer", ToggleOfferHandler)
			menuRoutes.DELETE("/:item_id", DeleteFoodItemHandler)
		}

		orderRoutes := staffRoutes.Group("/orders")
		{
			orderRoutes.GET("", GetShopOrdersHandler)
			orderRoutes.GET("/:order_id", GetShopOrderHandler)
			orderRoutes.PUT("/:order_id/status", UpdateOrderStatusHandler)
		}
	}

	// --- Reporting Routes ---
	reportRoutes := router.Group("/reports", AuthMiddleware(),
		RequireRoles(models.RoleAccountant, models.RoleChairman, models.RoleSuperadmin))
	{
		reportRoutes.GET("/shops", GetShopReportsHandler)
		reportRoutes.GET("/shops/:shop_id", GetShopReportHandler)
	}

	// --- Superadmin Routes ---
	adminRoutes := router.Group("/admin", AuthMiddleware(), RequireRoles(models.RoleSuperadmin))
	{
		adminRoutes.GET("/overview", GetAdminOverviewHandler)

		adminRoutes.GET("/students/pending", ListPendingStudentsHandler)
		adminRoutes.POST("/students/:user_id/approve", ApproveStudentHandler)
		adminRoutes.POST("/students/:user_id/reject", RejectStudentHandler)

		adminRoutes.GET("/users", ListUsersHandler)
		adminRoutes.POST("/users", CreateUserHandler)

		adminRoutes.POST("/shops", CreateShopHandler)
		adminRoutes.PUT("/shops/:shop_id", UpdateShopHandler)
	}

	return router
}
