package routes

import (
	"github.com/ake144/e-tutor/internal/config"
	"github.com/ake144/e-tutor/internal/events"
	"github.com/ake144/e-tutor/internal/handlers"
	"github.com/ake144/e-tutor/internal/middleware"
	"github.com/ake144/e-tutor/internal/models"
	"github.com/ake144/e-tutor/internal/repository"
	"github.com/ake144/e-tutor/internal/services"
	roomws "github.com/ake144/e-tutor/internal/websocket"
	"github.com/ake144/e-tutor/pkg/utils"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Dependencies are the process-wide collaborators built in main.
type Dependencies struct {
	DB        *pgxpool.Pool
	Publisher events.Publisher
	Blacklist *utils.TokenBlacklist
	Storage   services.StorageService
	Hub       *roomws.Hub
}

func RegisterRoutes(app *fiber.App, cfg *config.Config, deps Dependencies) {
	store := repository.NewPostgresStore(deps.DB)
	accountStore := repository.NewAccountStore(deps.DB)
	userRepo := repository.NewUserRepository(deps.DB)
	tutorRepo := repository.NewTutorProfileRepository(deps.DB)
	messageRepo := repository.NewMessageRepository(deps.DB)

	authService := services.NewAuthService(
		accountStore,
		userRepo,
		tutorRepo,
		deps.Blacklist,
		cfg.JWTSecret,
		cfg.TokenTTL,
		cfg.AppURL,
	)
	bookingService := services.NewBookingService(store, deps.Publisher, cfg.Location, cfg.MeetingBaseURL)
	sessionService := services.NewSessionService(store, deps.Publisher, cfg.Location)
	tutorService := services.NewTutorService(tutorRepo, store)
	roomService := services.NewRoomService(store, messageRepo)
	profileService := services.NewProfileService(userRepo, deps.Storage)

	authHandler := handlers.NewAuthHandler(authService, cfg.TokenTTL, cfg.SecureCookies())
	bookingHandler := handlers.NewBookingHandler(bookingService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	tutorHandler := handlers.NewTutorHandler(tutorService)
	roomHandler := handlers.NewRoomHandler(roomService, deps.Hub)
	profileHandler := handlers.NewProfileHandler(profileService)

	authRequired := middleware.AuthRequired(cfg.JWTSecret, deps.Blacklist)

	api := app.Group("/api")

	auth := api.Group("/auth")
	limited := middleware.AuthRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	auth.Post("/register", limited, authHandler.Register)
	auth.Post("/login", limited, authHandler.Login)
	auth.Post("/forgot-password", limited, authHandler.ForgotPassword)
	auth.Post("/reset-password", limited, authHandler.ResetPassword)
	auth.Post("/logout", authRequired, authHandler.Logout)
	auth.Get("/me", authRequired, authHandler.Me)

	tutors := api.Group("/tutors")
	tutors.Get("", tutorHandler.ListTutors)
	tutors.Get("/:id", tutorHandler.GetTutor)

	internal := api.Group("/internal", middleware.InternalSecret(cfg.InternalSecret))
	internal.Post("/bookings/:id/confirm", bookingHandler.ConfirmBooking)

	v1 := api.Group("/v1", authRequired)

	bookings := v1.Group("/bookings")
	bookings.Post("", middleware.RequireRole(models.RoleStudent), bookingHandler.CreateBooking)
	bookings.Post("/recurring", sessionHandler.ScheduleRecurring)
	bookings.Get("", bookingHandler.ListBookings)
	bookings.Get("/availability", bookingHandler.CheckAvailability)
	bookings.Get("/:id", bookingHandler.GetBooking)
	bookings.Post("/:id/cancel", bookingHandler.CancelBooking)
	bookings.Patch("/:id/camera", bookingHandler.UpdateCameraMode)

	sessions := v1.Group("/sessions")
	sessions.Get("", sessionHandler.ListSessions)
	sessions.Get("/:id", sessionHandler.GetSession)

	tutorProfile := v1.Group("/tutors/profile", middleware.RequireRole(models.RoleTutor))
	tutorProfile.Get("", tutorHandler.GetOwnProfile)
	tutorProfile.Put("", tutorHandler.UpdateProfile)

	v1.Post("/users/avatar", profileHandler.RequestAvatarUpload)
	v1.Get("/rooms/:bookingId/messages", roomHandler.GetMessages)
	v1.Get("/ws/rooms/:bookingId", roomHandler.WebSocketAuth, websocket.New(roomHandler.HandleWebSocket))
}
