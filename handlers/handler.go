package handlers

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adi27online/meruglobalconnect/apperrors"
	"github.com/adi27online/meruglobalconnect/database"
	"github.com/adi27online/meruglobalconnect/services"
	"github.com/adi27online/meruglobalconnect/storage"
	"github.com/adi27online/meruglobalconnect/utils"
	"github.com/adi27online/meruglobalconnect/websocket"
)

// Handler holds everything the HTTP layer calls into.
type Handler struct {
	Accounts      *services.AccountService
	Relationships *services.RelationshipService
	Messaging     *services.MessagingService
	Bulletins     *services.BulletinService
	Payments      *services.PaymentService
	Media         *services.MediaService
	Store         database.Store
	Tokens        *utils.TokenManager
	// Files is set only when uploads live on local disk and are served here.
	Files     *storage.Local
	WebSocket *websocket.Handler
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.BadRequest(c, "invalid request body")
		return false
	}
	return true
}

// readUpload loads one multipart file, rejecting it before reading when the
// declared size is already over max.
func readUpload(header *multipart.FileHeader, max int64) (services.Upload, error) {
	if header.Size > max {
		return services.Upload{}, apperrors.BadRequest("file too large (max 5MB)")
	}
	file, err := header.Open()
	if err != nil {
		return services.Upload{}, apperrors.BadRequest("could not read uploaded file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, max+1))
	if err != nil {
		return services.Upload{}, apperrors.BadRequest("could not read uploaded file")
	}
	return services.Upload{Filename: header.Filename, Data: data}, nil
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
