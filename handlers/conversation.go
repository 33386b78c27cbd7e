package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adi27online/meruglobalconnect/middleware"
	"github.com/adi27online/meruglobalconnect/utils"
)

type StartConversationRequest struct {
	FriendID string `json:"friendId"`
}

func (h *Handler) GetConversations(c *gin.Context) {
	convs, err := h.Messaging.ListConversations(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, convs)
}

// StartConversation answers 201 when the conversation is new and 200 when it
// already existed.
func (h *Handler) StartConversation(c *gin.Context) {
	var req StartConversationRequest
	if !bindJSON(c, &req) {
		return
	}

	conv, created, err := h.Messaging.StartConversation(c.Request.Context(), middleware.GetUserID(c), req.FriendID)
	if err != nil {
		utils.Error(c, err)
		return
	}

	if created {
		c.JSON(http.StatusCreated, gin.H{"conversationId": conv.ID, "message": "conversation created"})
		return
	}
	utils.Success(c, gin.H{"conversationId": conv.ID, "message": "conversation already exists"})
}
