package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/adi27online/meruglobalconnect/middleware"
	"github.com/adi27online/meruglobalconnect/utils"
)

type FriendRequest struct {
	RecipientID string `json:"recipientId"`
}

type RespondRequest struct {
	SenderID string `json:"senderId"`
}

func (h *Handler) GetFriends(c *gin.Context) {
	friends, err := h.Relationships.Friends(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, friends)
}

func (h *Handler) GetFriendRequests(c *gin.Context) {
	requests, err := h.Relationships.IncomingRequests(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, requests)
}

func (h *Handler) GetFriendRequestCount(c *gin.Context) {
	count, err := h.Relationships.IncomingCount(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, gin.H{"count": count})
}

func (h *Handler) SendFriendRequest(c *gin.Context) {
	var req FriendRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.Relationships.SendRequest(c.Request.Context(), middleware.GetUserID(c), req.RecipientID); err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "friend request sent"})
}

func (h *Handler) AcceptFriendRequest(c *gin.Context) {
	var req RespondRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.Relationships.Accept(c.Request.Context(), middleware.GetUserID(c), req.SenderID); err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "friend request accepted"})
}

func (h *Handler) RejectFriendRequest(c *gin.Context) {
	var req RespondRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.Relationships.Reject(c.Request.Context(), middleware.GetUserID(c), req.SenderID); err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "friend request rejected"})
}

func (h *Handler) WithdrawFriendRequest(c *gin.Context) {
	if err := h.Relationships.Withdraw(c.Request.Context(), middleware.GetUserID(c), c.Param("user_id")); err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "friend request withdrawn"})
}
