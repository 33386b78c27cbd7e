package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/adi27online/meruglobalconnect/middleware"
	"github.com/adi27online/meruglobalconnect/models"
	"github.com/adi27online/meruglobalconnect/services"
	"github.com/adi27online/meruglobalconnect/utils"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type EmailRequest struct {
	Email string `json:"email"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *Handler) Register(c *gin.Context) {
	var req services.RegisterInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.Accounts.Register(c.Request.Context(), req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Created(c, gin.H{
		"message":         "user registered successfully, please verify your email and complete payment",
		"requiresPayment": true,
		"userId":          user.ID,
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	token, user, err := h.Accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, AuthResponse{Token: token, User: user})
}

func (h *Handler) VerifyEmail(c *gin.Context) {
	if err := h.Accounts.VerifyEmail(c.Request.Context(), c.Query("token")); err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "email verified successfully"})
}

func (h *Handler) ResendVerification(c *gin.Context) {
	var req EmailRequest
	if !bindJSON(c, &req) {
		return
	}

	msg, err := h.Accounts.ResendVerification(c.Request.Context(), req.Email)
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, gin.H{"message": msg})
}

// Logout is a no-op for stateless tokens; clients drop the token.
func (h *Handler) Logout(c *gin.Context) {
	utils.Success(c, gin.H{"message": "logged out"})
}

func (h *Handler) RefreshToken(c *gin.Context) {
	token, err := h.Accounts.RefreshToken(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, gin.H{"token": token})
}
