package handlers

import (
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/adi27online/meruglobalconnect/services"
	"github.com/adi27online/meruglobalconnect/utils"
)

const (
	defaultThumbWidth = 200
	maxThumbWidth     = 500
)

func (h *Handler) UploadFile(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		utils.BadRequest(c, "no file uploaded")
		return
	}
	up, err := readUpload(header, services.MaxImageSize)
	if err != nil {
		utils.Error(c, err)
		return
	}

	info, err := h.Media.UploadImage(c.Request.Context(), up)
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, info)
}

func (h *Handler) UploadResume(c *gin.Context) {
	header, err := c.FormFile("resume")
	if err != nil {
		utils.BadRequest(c, "no file uploaded")
		return
	}
	up, err := readUpload(header, services.MaxResumeSize)
	if err != nil {
		utils.Error(c, err)
		return
	}

	info, err := h.Media.UploadResume(c.Request.Context(), up)
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, info)
}

// localFile resolves the :filename parameter inside the upload directory.
func (h *Handler) localFile(c *gin.Context) (string, bool) {
	path, err := h.Files.Path(c.Param("filename"))
	if err != nil {
		utils.BadRequest(c, "invalid filename")
		return "", false
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		utils.NotFound(c, "file not found")
		return "", false
	}
	return path, true
}

func (h *Handler) ServeFile(c *gin.Context) {
	path, ok := h.localFile(c)
	if !ok {
		return
	}
	c.File(path)
}

// GetFileThumbnail scales an image down to ?w= pixels wide. Files that are
// not images are served as they are.
func (h *Handler) GetFileThumbnail(c *gin.Context) {
	width, _ := strconv.Atoi(c.DefaultQuery("w", strconv.Itoa(defaultThumbWidth)))
	if width <= 0 || width > maxThumbWidth {
		width = defaultThumbWidth
	}

	path, ok := h.localFile(c)
	if !ok {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		utils.InternalError(c, "failed to read file")
		return
	}
	thumb, err := services.Thumbnail(data, width)
	if err != nil {
		c.File(path)
		return
	}
	c.Data(http.StatusOK, "image/jpeg", thumb)
}
