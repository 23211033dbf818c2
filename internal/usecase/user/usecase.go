package user

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	domain "user-api/internal/domain/user"
	pkgerrors "user-api/pkg/errors"
)

// Repository defines the interface for user data access operations.
type Repository interface {
	Create(ctx context.Context, u *domain.User) (int64, error)      // Insert a user, return its id
	GetByID(ctx context.Context, id int64) (*domain.User, error)    // Retrieve user by ID
	Update(ctx context.Context, id int64, patch domain.Patch) error // Apply supplied columns
	List(ctx context.Context) ([]domain.Row, error)                 // Every raw row of the table
}

// UserUsecase implements the business logic for user management operations.
// Each operation is a linear validate, persist, refetch sequence; the first
// failing step ends it.
type UserUsecase struct {
	repo       Repository
	log        *zap.Logger
	validate   *validator.Validate
	bcryptCost int
}

var _ Usecase = (*UserUsecase)(nil)

// New creates a new instance of UserUsecase. Passwords are hashed with the given bcrypt cost.
func New(r Repository, log *zap.Logger, bcryptCost int) *UserUsecase {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &UserUsecase{repo: r, log: log, validate: v, bcryptCost: bcryptCost}
}

// toValidationError converts validator.ValidationErrors into a field-level ValidationError.
func toValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	fields := make([]pkgerrors.FieldError, 0, len(validationErrors))
	for _, e := range validationErrors {
		var msg string
		switch e.Tag() {
		case "required":
			msg = "is required"
		case "email":
			msg = "must be a valid email"
		case "min":
			msg = fmt.Sprintf("must be at least %s characters", e.Param())
		case "max":
			msg = fmt.Sprintf("must be at most %s characters", e.Param())
		default:
			msg = "is invalid"
		}
		fields = append(fields, pkgerrors.FieldError{
			Field:    e.Field(),
			Location: pkgerrors.LocationBody,
			Message:  msg,
		})
	}
	return pkgerrors.NewValidationErrors(fields)
}

func (uc *UserUsecase) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), uc.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", pkgerrors.NewValidationError("password", "must be at most 72 bytes")
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// ListUsers returns every user row with the password column removed.
func (uc *UserUsecase) ListUsers(ctx context.Context) (*ListUsersResponse, error) {
	uc.log.Info("listing users")

	rows, err := uc.repo.List(ctx)
	if err != nil {
		uc.log.Error("failed to list users", zap.Error(err))
		return nil, err
	}

	for i := range rows {
		rows[i] = rows[i].Sanitize()
	}

	return &ListUsersResponse{Users: rows}, nil
}

// CreateUser validates the request, inserts the user and returns the stored row.
func (uc *UserUsecase) CreateUser(ctx context.Context, in CreateUserRequest) (*User, error) {
	uc.log.Info("creating user", zap.String("email", in.Email), zap.String("name", in.Name))

	if err := uc.validate.StructCtx(ctx, in); err != nil {
		uc.log.Warn("validate failed", zap.Error(err))
		return nil, toValidationError(err)
	}

	hash, err := uc.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	id, err := uc.repo.Create(ctx, &domain.User{
		Email:    in.Email,
		Password: hash,
		Name:     in.Name,
	})
	if err != nil {
		uc.log.Error("failed to create user", zap.Error(err))
		return nil, err
	}

	u, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		uc.log.Error("failed to refetch created user", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	return toUser(u), nil
}

// UpdateUser validates the supplied fields, applies them and returns the stored row.
// Fields that were not supplied keep their current value.
func (uc *UserUsecase) UpdateUser(ctx context.Context, in UpdateUserRequest) (*User, error) {
	uc.log.Info("updating user", zap.Int64("id", in.ID))

	if in.ID <= 0 {
		uc.log.Warn("update user validation failed", zap.Int64("id", in.ID), zap.String("reason", "invalid id"))
		return nil, pkgerrors.NewValidationErrors([]pkgerrors.FieldError{{
			Field:    "id",
			Location: pkgerrors.LocationParams,
			Message:  "must be a positive integer",
		}})
	}

	if err := uc.validate.StructCtx(ctx, in); err != nil {
		uc.log.Warn("validate failed", zap.Error(err))
		return nil, toValidationError(err)
	}

	patch := domain.Patch{Email: in.Email, Name: in.Name}
	if in.Password != nil {
		hash, err := uc.hashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		patch.Password = &hash
	}

	if err := uc.repo.Update(ctx, in.ID, patch); err != nil {
		uc.log.Error("failed to update user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, err
	}

	u, err := uc.repo.GetByID(ctx, in.ID)
	if err != nil {
		uc.log.Error("failed to refetch updated user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, err
	}

	return toUser(u), nil
}
