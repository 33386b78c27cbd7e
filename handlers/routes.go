package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/adi27online/meruglobalconnect/metrics"
	"github.com/adi27online/meruglobalconnect/middleware"
	"github.com/adi27online/meruglobalconnect/models"
)

// Router wires every route. limiter may be nil to disable rate limiting.
func (h *Handler) Router(limiter *middleware.IPRateLimiter, corsOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware(corsOrigins))

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	if h.WebSocket != nil {
		r.GET("/ws", h.WebSocket.HandleWebSocket)
	}
	if h.Files != nil {
		r.GET("/files/:filename", h.ServeFile)
		r.GET("/files/:filename/thumbnail", h.GetFileThumbnail)
	}

	auth := middleware.AuthMiddleware(h.Tokens)

	api := r.Group("/api")
	if limiter != nil {
		api.Use(middleware.RateLimitMiddleware(limiter))
	}

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.GET("/verify-email", h.VerifyEmail)
		authGroup.POST("/resend-verification", h.ResendVerification)
		authGroup.POST("/logout", auth, h.Logout)
		authGroup.POST("/refresh", auth, h.RefreshToken)
	}

	payments := api.Group("/payments")
	{
		payments.POST("/intent", h.CreatePaymentIntent)
		payments.POST("/confirm", h.ConfirmPayment)
	}

	users := api.Group("/users")
	users.Use(auth)
	{
		users.GET("/me", h.GetCurrentUser)
		users.PUT("/me", h.UpdateCurrentUser)
		users.POST("/me/avatar", h.UploadAvatar)
		users.POST("/me/matrimony-pictures", h.UploadMatrimonyPictures)
		users.GET("/search", h.SearchUsers)
		users.GET("/:id", h.GetUserProfile)
		users.POST("/send-friend-request", h.SendFriendRequest)
	}

	api.GET("/matrimony", auth, h.SearchMatrimony)

	uploads := api.Group("/uploads")
	uploads.Use(auth)
	{
		uploads.POST("", h.UploadFile)
		uploads.POST("/resume", h.UploadResume)
	}

	friends := api.Group("/friends")
	friends.Use(auth)
	{
		friends.GET("", h.GetFriends)
		friends.GET("/requests", h.GetFriendRequests)
		friends.GET("/requests/count", h.GetFriendRequestCount)
		friends.POST("/requests", h.SendFriendRequest)
		friends.POST("/requests/accept", h.AcceptFriendRequest)
		friends.POST("/requests/reject", h.RejectFriendRequest)
		friends.DELETE("/requests/:user_id", h.WithdrawFriendRequest)
	}

	conversations := api.Group("/conversations")
	conversations.Use(auth)
	{
		conversations.GET("", h.GetConversations)
		conversations.POST("", h.StartConversation)
		conversations.GET("/:id/messages", h.GetMessages)
		conversations.POST("/:id/messages", h.SendMessage)
	}

	api.GET("/news", listPosts[models.NewsItem](h, models.BoardNews))
	api.POST("/news", auth, createPost[models.NewsItem](h))
	api.GET("/job-postings", listPosts[models.JobPosting](h, models.BoardJobPostings))
	api.POST("/job-postings", auth, createPost[models.JobPosting](h))
	api.GET("/meet-greets", listPosts[models.MeetGreet](h, models.BoardMeetGreets))
	api.POST("/meet-greets", auth, createPost[models.MeetGreet](h))
	api.GET("/guest-hosts", listPosts[models.GuestHostOffer](h, models.BoardGuestHosts))
	api.POST("/guest-hosts", auth, createPost[models.GuestHostOffer](h))
	api.GET("/youth-connect", listPosts[models.YouthConnectEntry](h, models.BoardYouthConnect))
	api.POST("/youth-connect", auth, createPost[models.YouthConnectEntry](h))

	jobSeekers := api.Group("/job-seekers")
	{
		jobSeekers.GET("", listPosts[models.JobSeekerProfile](h, models.BoardJobSeekers))
		jobSeekers.GET("/me", auth, h.GetMyJobSeekerProfile)
		jobSeekers.PUT("/me", auth, h.SaveMyJobSeekerProfile)
	}

	return r
}
