package api

import (
	"github.com/gin-gonic/gin"

	"city_parking/internal/api/handler"
	"city_parking/internal/api/middleware"
	"city_parking/internal/service"
)

func SetupRouter(
	as *service.AuthService,
	ls *service.LotService,
	rs *service.ReservationService,
	authMw *middleware.AuthMiddleware,
	hub *handler.AvailabilityHub,
) *gin.Engine {
	r := gin.Default()

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Live availability feed; no auth needed for the read-only stream.
	wsHandler := handler.NewAvailabilityWSHandler(hub)
	r.GET("/ws", wsHandler.Handle)

	authHandler := handler.NewAuthHandler(as)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/admin/login", authHandler.AdminLogin)
	}

	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate())
	{
		lotH := handler.NewParkingLotHandler(ls)
		lotRoutes := v1.Group("/parking-lots")
		{
			lotRoutes.POST("", authMw.RequireAdmin(), lotH.CreateLot)
			lotRoutes.GET("", lotH.ListLots)
			lotRoutes.GET("/:id", lotH.GetLot)
			lotRoutes.PUT("/:id", authMw.RequireAdmin(), lotH.UpdateLot)
			lotRoutes.DELETE("/:id", authMw.RequireAdmin(), lotH.DeleteLot)
		}

		resH := handler.NewReservationHandler(rs)
		resRoutes := v1.Group("/reservations")
		{
			resRoutes.POST("", resH.Reserve)
			resRoutes.POST("/:id/release", resH.Release)
			resRoutes.GET("/active", resH.Active)
		}

		v1.GET("/users/:id/reservations", resH.History)
	}
	return r
}
