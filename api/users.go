package api

import (
	"net/http"

	"github.com/Domenick1991/outdoorcamp/internal/domain"
	"github.com/Domenick1991/outdoorcamp/internal/service/users"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	service users.UserUseCase
}

type updateUserRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Role  *string `json:"role"`
}

func NewUserHandler(service users.UserUseCase) *UserHandler {
	return &UserHandler{service: service}
}

// Register expects router to be admin only already.
func (h *UserHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.PUT("/:id", h.update)
	router.DELETE("/:id", h.delete)
}

func (h *UserHandler) list(c *gin.Context) {
	principal, ok := actor(c)
	if !ok {
		return
	}
	list, err := h.service.List(c.Request.Context(), principal)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]userResponse, 0, len(list))
	for i := range list {
		out = append(out, newUserResponse(&list[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *UserHandler) get(c *gin.Context) {
	principal, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "user")
	if !ok {
		return
	}
	user, err := h.service.Get(c.Request.Context(), principal, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

func (h *UserHandler) update(c *gin.Context) {
	principal, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "user")
	if !ok {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.service.Update(c.Request.Context(), principal, id, domain.UserPatch{
		Name:  req.Name,
		Email: req.Email,
		Role:  (*domain.Role)(req.Role),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

func (h *UserHandler) delete(c *gin.Context) {
	principal, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "user")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), principal, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
