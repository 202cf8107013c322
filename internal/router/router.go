package router

import (
	"context"
	"log"

	"messmate/config"
	"messmate/internal/auth"
	"messmate/internal/domain"
	"messmate/internal/handler"
	"messmate/internal/middleware"
	"messmate/internal/notify"
	"messmate/internal/repository"
	"messmate/internal/service"
	"messmate/internal/ws"
	"messmate/pkg/cloudinary"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// deviceManagers builds the notify.Manager for each device session. Records
// go to the local store; subscriptions go to the remote registry when one is
// configured and to this server's own registry otherwise.
func deviceManagers(cfg *config.Config, local notify.Store, subs *service.SubscriptionService) ws.ManagerFactory {
	return func(s *ws.DeviceSession) *notify.Manager {
		opts := s.PlatformOptions()
		opts.Store = local
		opts.VAPIDPublicKey = cfg.Push.VAPIDPublicKey
		if cfg.Push.RegistryURL != "" {
			userID, role := s.UserID, s.Role
			opts.Registry = notify.NewHTTPRegistry(cfg.Push.RegistryURL, func(ctx context.Context) (string, error) {
				return auth.GenerateAccessToken(&cfg.JWT, userID, "", role)
			}, nil)
		} else {
			opts.Registry = subs.ForUser(s.UserID)
		}
		return notify.NewManager(opts)
	}
}

func Setup(cfg *config.Config, db *gorm.DB, cloud cloudinary.Client, local notify.Store) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// Repositories
	userRepo := repository.NewUserRepository(db)
	otpRepo := repository.NewOTPRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	deviceHub := ws.NewDeviceHub()

	// Services
	authSvc := service.NewAuthService(cfg, userRepo, otpRepo, service.NewMailer(cfg.Mail))
	subSvc := service.NewSubscriptionService(subRepo)
	webPush := service.NewWebPushService(cfg.Push, subSvc)
	fcmSvc := service.NewFCMService(cfg.Firebase)
	if fcmSvc != nil {
		log.Printf("[FCM] Push notifications enabled")
	} else {
		log.Printf("[FCM] Push notifications disabled: set FIREBASE_CREDENTIALS_FILE to enable")
	}
	// Typed nils must not reach the service's interface fields.
	var web service.WebPusher
	if webPush != nil {
		web = webPush
	}
	var mobile service.TokenPusher
	if fcmSvc != nil {
		mobile = fcmSvc
	}
	notifSvc := service.NewNotificationService(notificationRepo, userRepo, web, mobile)
	notifSvc.SetLive(deviceHub)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	meHandler := handler.NewMeHandler(userRepo, subRepo, deviceHub)
	notificationHandler := handler.NewNotificationHandler(subSvc, notifSvc, cfg.Push.VAPIDPublicKey)
	deviceHandler := handler.NewDeviceHandler(deviceHub)
	adminNotifHandler := handler.NewAdminNotificationHandler(notifSvc, cloud, cfg.Cloudinary.Folder)

	// Public routes are limited per IP; authenticated routes run the limiter
	// after auth so each user gets their own budget.
	limit := middleware.RateLimit(middleware.NewInMemoryRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	authMw := middleware.AuthRequired(&cfg.JWT)

	api := r.Group("/api")
	{
		authGroup := api.Group("/auth", limit)
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/verify-otp", authHandler.VerifyOTP)
			authGroup.POST("/resend-otp", authHandler.ResendOTP)
			authGroup.POST("/forgot-password", authHandler.ForgotPassword)
			authGroup.POST("/reset-password", authHandler.ResetPassword)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.GET("/me", authMw, authHandler.Me)
		}

		api.GET("/notifications/vapid-public-key", limit, notificationHandler.VAPIDPublicKey)
		notifications := api.Group("/notifications")
		notifications.Use(authMw, limit)
		{
			notifications.POST("/subscribe", notificationHandler.Subscribe)
			notifications.POST("/unsubscribe", notificationHandler.Unsubscribe)
			notifications.GET("", notificationHandler.List)
			notifications.PUT("/:id/read", notificationHandler.MarkRead)
		}

		me := api.Group("/me")
		me.Use(authMw, limit)
		{
			me.POST("/fcm-token", meHandler.RegisterFCMToken)
			me.DELETE("/fcm-token", meHandler.ClearFCMToken)
			me.GET("/push-status", meHandler.PushStatus)
		}

		devices := api.Group("/devices")
		devices.Use(authMw, limit)
		{
			devices.GET("", deviceHandler.List)
			devices.POST("/:id/permission", deviceHandler.RequestPermission)
			devices.POST("/:id/push/subscribe", deviceHandler.SubscribePush)
			devices.POST("/:id/push/unsubscribe", deviceHandler.UnsubscribePush)
			devices.POST("/:id/notifications", deviceHandler.Show)
			devices.GET("/:id/notifications", deviceHandler.History)
			devices.PUT("/:id/notifications/:nid/read", deviceHandler.MarkRead)
			devices.DELETE("/:id/notifications", deviceHandler.Clear)
		}

		dash := api.Group("/dashboard")
		dash.Use(authMw, limit)
		{
			dash.GET("/admin", middleware.AdminRequired(), handler.Dashboard(domain.RoleAdmin))
			dash.GET("/owner", middleware.RequireRole(domain.RoleMessOwner), handler.Dashboard(domain.RoleMessOwner))
			dash.GET("/user", middleware.RequireRole(domain.RoleUser), handler.Dashboard(domain.RoleUser))
		}

		admin := api.Group("/admin")
		admin.Use(authMw, limit, middleware.AdminRequired())
		{
			admin.POST("/notifications/broadcast", adminNotifHandler.Broadcast)
			admin.POST("/notifications/assets", adminNotifHandler.UploadAsset)
			admin.DELETE("/notifications/assets/*publicID", adminNotifHandler.DeleteAsset)
		}
	}

	r.GET("/ws/device", limit, ws.UpgradeDeviceWS(ws.DeviceOptions{
		JWT:               &cfg.JWT,
		RPCTimeout:        cfg.Device.RPCTimeout,
		ReconcileInterval: cfg.Device.ReconcileInterval,
	}, deviceHub, deviceManagers(cfg, local, subSvc)))

	return r
}
