package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adi27online/meruglobalconnect/middleware"
	"github.com/adi27online/meruglobalconnect/models"
	"github.com/adi27online/meruglobalconnect/services"
	"github.com/adi27online/meruglobalconnect/utils"
)

// createPost builds the POST handler for one board. P is the pointer type
// that carries the post methods.
func createPost[T any, P interface {
	*T
	models.Post
}](h *Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		post := P(new(T))
		if !bindJSON(c, post) {
			return
		}

		if err := h.Bulletins.Create(c.Request.Context(), middleware.GetUserID(c), post); err != nil {
			utils.Error(c, err)
			return
		}
		utils.Created(c, post)
	}
}

func listPosts[T any](h *Handler, board models.Board) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := services.ListBoard[T](c.Request.Context(), h.Bulletins, board)
		if err != nil {
			utils.Error(c, err)
			return
		}
		utils.Success(c, items)
	}
}

func (h *Handler) GetMyJobSeekerProfile(c *gin.Context) {
	p, err := h.Bulletins.GetJobSeekerProfile(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, p)
}

// SaveMyJobSeekerProfile answers 201 for the first save and 200 after.
func (h *Handler) SaveMyJobSeekerProfile(c *gin.Context) {
	var p models.JobSeekerProfile
	if !bindJSON(c, &p) {
		return
	}

	created, err := h.Bulletins.SaveJobSeekerProfile(c.Request.Context(), middleware.GetUserID(c), &p)
	if err != nil {
		utils.Error(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, p)
}
