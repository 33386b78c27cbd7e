package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/adi27online/meruglobalconnect/middleware"
	"github.com/adi27online/meruglobalconnect/models"
	"github.com/adi27online/meruglobalconnect/services"
	"github.com/adi27online/meruglobalconnect/utils"
)

const maxMatrimonyFiles = 10

func (h *Handler) GetCurrentUser(c *gin.Context) {
	user, err := h.Accounts.GetProfile(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, user)
}

func (h *Handler) UpdateCurrentUser(c *gin.Context) {
	var req models.Profile
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.Accounts.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, user)
}

func (h *Handler) UploadAvatar(c *gin.Context) {
	header, err := c.FormFile("profilePicture")
	if err != nil {
		utils.BadRequest(c, "no file uploaded")
		return
	}
	up, err := readUpload(header, services.MaxImageSize)
	if err != nil {
		utils.Error(c, err)
		return
	}

	url, err := h.Media.UploadProfilePicture(c.Request.Context(), middleware.GetUserID(c), up)
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "profile picture updated", "profilePicture": url})
}

// UploadMatrimonyPictures accepts several files; ones that are too large or
// not images are skipped.
func (h *Handler) UploadMatrimonyPictures(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["matrimonyImages"]) == 0 {
		utils.BadRequest(c, "no files uploaded")
		return
	}
	headers := form.File["matrimonyImages"]
	if len(headers) > maxMatrimonyFiles {
		utils.BadRequest(c, "too many files (max 10)")
		return
	}

	uploads := make([]services.Upload, 0, len(headers))
	for _, header := range headers {
		up, err := readUpload(header, services.MaxImageSize)
		if err != nil {
			continue
		}
		uploads = append(uploads, up)
	}

	urls, err := h.Media.UploadMatrimonyPictures(c.Request.Context(), middleware.GetUserID(c), uploads)
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "matrimony pictures uploaded", "matrimonyPictures": urls})
}

func (h *Handler) SearchUsers(c *gin.Context) {
	var q services.SearchInput
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.BadRequest(c, "invalid query")
		return
	}

	users, err := h.Accounts.FindPeople(c.Request.Context(), middleware.GetUserID(c), q)
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, users)
}

func (h *Handler) SearchMatrimony(c *gin.Context) {
	var q services.SearchInput
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.BadRequest(c, "invalid query")
		return
	}

	users, err := h.Accounts.FindMatrimony(c.Request.Context(), middleware.GetUserID(c), q)
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, users)
}

func (h *Handler) GetUserProfile(c *gin.Context) {
	profile, err := h.Accounts.PublicProfile(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, profile)
}
