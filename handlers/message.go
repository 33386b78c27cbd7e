package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/adi27online/meruglobalconnect/middleware"
	"github.com/adi27online/meruglobalconnect/utils"
)

type SendMessageRequest struct {
	Content string `json:"content"`
}

func (h *Handler) GetMessages(c *gin.Context) {
	msgs, err := h.Messaging.ListMessages(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, msgs)
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	msg, err := h.Messaging.SendMessage(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req.Content)
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Created(c, gin.H{"messageId": msg.ID})
}
