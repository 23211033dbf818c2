package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-api/internal/usecase/user"
	pkgerrors "user-api/pkg/errors"
	"user-api/pkg/logger"
)

// UsersPath is the collection path the Location header points into.
const UsersPath = "/api/users"

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	uc  user.Usecase
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc user.Usecase, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:  uc,
		log: log,
	}
}

// ErrorResponse is the body of 400, 404 and non-database 500 responses
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// PersistenceErrorResponse is the body of a 500 caused by a failing statement
type PersistenceErrorResponse struct {
	Error string `json:"error"`
	SQL   string `json:"sql"`
}

// ValidationErrorResponse is the body of a 422 response
type ValidationErrorResponse struct {
	Errors []pkgerrors.FieldError `json:"errors"`
}

// ListUsers handles GET /api/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	log := logger.WithContext(c.Request.Context(), h.log)
	log.Info("ListUsers request")

	resp, err := h.uc.ListUsers(c.Request.Context())
	if err != nil {
		log.Error("ListUsers failed", zap.Error(err))
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp.Users)
}

// CreateUser handles POST /api/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	log := logger.WithContext(c.Request.Context(), h.log)

	var req user.CreateUserRequest
	if err := bindJSON(c, &req); err != nil {
		log.Warn("Invalid create user request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_body",
			Message: err.Error(),
		})
		return
	}

	log.Info("CreateUser request", zap.String("email", req.Email), zap.String("name", req.Name))

	resp, err := h.uc.CreateUser(c.Request.Context(), req)
	if err != nil {
		log.Error("CreateUser failed", zap.Error(err))
		h.handleError(c, err)
		return
	}

	c.Header("Location", location(c, resp.ID))
	c.JSON(http.StatusCreated, resp)
}

// UpdateUser handles PUT /api/users/:id.
// A successful update answers 201 with a Location header, like creation.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	log := logger.WithContext(c.Request.Context(), h.log)

	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		log.Warn("Invalid user ID", zap.String("id", idStr))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "User ID must be a positive integer",
		})
		return
	}

	req := user.UpdateUserRequest{ID: id}
	if err := bindJSON(c, &req); err != nil {
		log.Warn("Invalid update user request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_body",
			Message: err.Error(),
		})
		return
	}
	req.ID = id

	log.Info("UpdateUser request", zap.Int64("id", id))

	resp, err := h.uc.UpdateUser(c.Request.Context(), req)
	if err != nil {
		log.Error("UpdateUser failed", zap.Int64("id", id), zap.Error(err))
		h.handleError(c, err)
		return
	}

	c.Header("Location", location(c, resp.ID))
	c.JSON(http.StatusCreated, resp)
}

// handleError converts usecase errors to HTTP responses
func (h *UserHandler) handleError(c *gin.Context, err error) {
	var (
		validationErr  *pkgerrors.ValidationError
		persistenceErr *pkgerrors.PersistenceError
		notFoundErr    *pkgerrors.NotFoundError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, ValidationErrorResponse{Errors: validationErr.Fields})
	case errors.As(err, &persistenceErr):
		c.JSON(http.StatusInternalServerError, PersistenceErrorResponse{
			Error: persistenceErr.Message,
			SQL:   persistenceErr.SQL,
		})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: notFoundErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

// bindJSON decodes the request body into obj. An empty body decodes as {}.
func bindJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// location builds the absolute URL of the user resource with the given id.
// X-Forwarded-Proto is honored only for http and https.
func location(c *gin.Context, id int64) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	switch proto := strings.ToLower(strings.TrimSpace(c.GetHeader("X-Forwarded-Proto"))); proto {
	case "http", "https":
		scheme = proto
	}
	return fmt.Sprintf("%s://%s%s/%d", scheme, c.Request.Host, UsersPath, id)
}
