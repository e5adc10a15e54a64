package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"postly/internal/domain"
	"postly/internal/service"
)

const currentUserKey = "postly.currentUser"

type signupRequest struct {
	Email     string `json:"email" binding:"required"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Password  string `json:"password" binding:"required"`
	Birthday  string `json:"birthday" binding:"required"`
}

type signinRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Email, first name, last name, password and birthday are required")
		return
	}

	birthday, err := parseBirthday(req.Birthday)
	if err != nil {
		detail(c, http.StatusBadRequest, "Birthday must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
		return
	}

	user, err := h.users.Signup(c.Request.Context(), service.SignupInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
		Birthday:  birthday,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.logger.WithField("user_id", user.ID).Info("user signed up")
	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) signin(c *gin.Context) {
	var req signinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *Handler) me(c *gin.Context) {
	c.JSON(http.StatusOK, userToResponse(currentUser(c)))
}

// requireUser resolves the bearer token to a user or aborts with 401.
func (h *Handler) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			h.fail(c, service.ErrUnauthorized)
			return
		}

		userID, err := h.tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			h.fail(c, err)
			return
		}

		user, err := h.users.GetByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				err = service.ErrUnauthorized
			}
			h.fail(c, err)
			return
		}

		c.Set(currentUserKey, *user)
		c.Next()
	}
}

func currentUser(c *gin.Context) domain.User {
	user, _ := c.MustGet(currentUserKey).(domain.User)
	return user
}

func parseBirthday(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
