package main

import (
	"os"

	_ "committee_backend/docs"
	"committee_backend/internal/auth"
	"committee_backend/internal/handlers"
	"committee_backend/internal/logger"
	"committee_backend/internal/models"
	"committee_backend/internal/storage"
	"committee_backend/internal/tasks"
	"committee_backend/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @Title						Учёт смен и посещаемости окружных комиссий
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	logger.Init()

	key := os.Getenv("ENV_CHEK")
	if key == "" {
		logger.Log.Info("Подключение к .env")
		if err := godotenv.Load(); err != nil {
			logger.Log.Fatal("Ошибка получения .env")
		}
	}

	storage.ConnectDatabase()

	if err := storage.DB.AutoMigrate(
		&models.User{},
		&models.Committee{},
		&models.CommitteeMember{},
		&models.Slot{},
		&models.Attendance{},
		&models.MemberActivity{},
		&models.NotificationSettings{},
		&models.PushSubscription{},
	); err != nil {
		logger.Log.Fatal("Ошибка при миграции... ", err.Error())
	}

	storage.InitRedis()

	tasks.InitTelegram()
	tasks.InitScheduler()

	go ws.HubInstance.Run()

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", handlers.Login)
		authGroup.POST("/register", handlers.Register)
		authGroup.POST("/refresh", handlers.RefreshToken)
	}

	api := r.Group("/api", auth.AuthMiddleware())
	{
		api.POST("/attendance", handlers.MarkAttendanceHandler)
		api.DELETE("/attendances/:id", handlers.CancelAttendanceHandler)
		api.PATCH("/attendances/:id/confirm", handlers.ConfirmAttendanceHandler)
		api.PATCH("/attendances/:id/absent", handlers.MarkAbsentHandler)
		api.GET("/attendance-report", handlers.GetAttendanceReportHandler)

		api.POST("/committees", handlers.CreateCommitteeHandler)
		api.GET("/committees/:id", handlers.GetCommitteeHandler)
		api.PATCH("/committees/:id", handlers.UpdateCommitteeHandler)
		api.POST("/committees/:id/join", handlers.JoinCommitteeHandler)
		api.GET("/committees/:id/slots", handlers.GetCommitteeSlotsHandler)

		api.POST("/slots", handlers.CreateSlotHandler)
		api.PATCH("/slots/:id", handlers.UpdateSlotHandler)
		api.GET("/slots/:id/status", handlers.GetSlotStatusHandler)

		api.POST("/activities", handlers.CreateActivityHandler)
		api.GET("/activities", handlers.GetMyActivitiesHandler)
		api.PATCH("/activities/:id/complete", handlers.CompleteActivityHandler)

		api.GET("/profile/attendances", handlers.GetMyAttendancesHandler)
		api.GET("/profile/committees", handlers.GetMyCommitteesHandler)
		api.PUT("/profile/notifications", handlers.UpdateNotificationSettingsHandler)
		api.POST("/profile/push-subscription", handlers.RegisterPushSubscriptionHandler)
	}

	slots := r.Group("/api/slots")
	{
		slots.GET("/:id/ws", ws.SlotWebSocketHandler)
	}

	if err := r.Run(":8080"); err != nil {
		logger.Log.Fatal("Ошибка запуска сервера...", err.Error())
	}
}
