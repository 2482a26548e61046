package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"library-manager/internal/domain"
	"library-manager/internal/repository"
	"library-manager/internal/service"
)

type registerRequest struct {
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Role      string `json:"role" binding:"omitempty,oneof=ADMIN LIBRARIAN PATRON"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.Register(c.Request.Context(), service.RegisterInput{
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      domain.Role(req.Role),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	created(c, userToResponse(*user))
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid credentials"})
			return
		}
		writeError(c, err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(user)
	if err != nil {
		writeError(c, err)
		return
	}

	ok(c, gin.H{
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
		"user":       userToResponse(*user),
	})
}

func (h *Handler) createUser(c *gin.Context) {
	// same payload as self-registration, but staff can assign any role
	h.register(c)
}

func (h *Handler) getUser(c *gin.Context) {
	user, err := h.users.GetByGUID(c.Request.Context(), c.Param("guid"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, userToResponse(*user))
}

func (h *Handler) searchUsers(c *gin.Context) {
	filter := repository.UserFilter{
		Username:  c.Query("username"),
		FirstName: c.Query("first_name"),
		LastName:  c.Query("last_name"),
	}
	if v := c.Query("role"); v != "" {
		if role, valid := domain.ParseRole(v); valid {
			filter.Role = &role
		}
	}
	if v := c.Query("status"); v != "" {
		status := domain.EntityStatus(v)
		filter.Status = &status
	}

	page, err := h.users.Search(c.Request.Context(), filter, pageFromQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]UserResponse, len(page.Items))
	for i := range page.Items {
		resp[i] = userToResponse(page.Items[i])
	}
	setPaginationHeaders(c, page)
	ok(c, resp)
}

type userUpdateRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

func (h *Handler) updateUser(c *gin.Context) {
	var req userUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.Update(c.Request.Context(), c.Param("guid"), service.UserUpdateInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, userToResponse(*user))
}

func (h *Handler) deleteUser(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), c.Param("guid")); err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"deleted": c.Param("guid")})
}

func (h *Handler) activateUser(c *gin.Context) {
	user, err := h.users.Activate(c.Request.Context(), c.Param("guid"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, userToResponse(*user))
}
