package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/adi27online/meruglobalconnect/services"
	"github.com/adi27online/meruglobalconnect/utils"
)

type PaymentIntentRequest struct {
	UserID string `json:"userId"`
}

type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
}

func (h *Handler) CreatePaymentIntent(c *gin.Context) {
	var req PaymentIntentRequest
	if !bindJSON(c, &req) {
		return
	}

	secret, err := h.Payments.CreateIntent(c.Request.Context(), req.UserID)
	if err != nil {
		utils.Error(c, err)
		return
	}
	if secret == services.AlreadyPaidSecret {
		utils.Success(c, gin.H{"message": "user has already paid", "clientSecret": secret})
		return
	}
	utils.Success(c, gin.H{"clientSecret": secret})
}

func (h *Handler) ConfirmPayment(c *gin.Context) {
	var req ConfirmPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	already, err := h.Payments.ConfirmPayment(c.Request.Context(), req.PaymentIntentID)
	if err != nil {
		utils.Error(c, err)
		return
	}
	if already {
		utils.Success(c, gin.H{"message": "payment already processed"})
		return
	}
	utils.Success(c, gin.H{"message": "payment confirmed, registration complete"})
}
