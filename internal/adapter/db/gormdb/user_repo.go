package gormdb

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-api/internal/domain/user"
	pkgerrors "user-api/pkg/errors"
)

// UserRepo implements the user Repository on top of GORM.
// It works with any GORM dialector; production uses PostgreSQL.
type UserRepo struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserRepo creates a new instance of UserRepo.
func NewUserRepo(db *gorm.DB, log *zap.Logger) *UserRepo {
	if err := registerSQLCapture(db); err != nil {
		log.Warn("failed to register sql capture callbacks", zap.Error(err))
	}
	return &UserRepo{db: db, log: log}
}

// UserSchema represents the database schema for the user table.
type UserSchema struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	Email    string `gorm:"not null"`
	Password string `gorm:"not null"`
	Name     string `gorm:"not null"`
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "user"
}

// Migrate creates or updates the user table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&UserSchema{}); err != nil {
		return fmt.Errorf("failed to migrate user table: %w", err)
	}
	return nil
}

const (
	captureCallback = "gormdb:capture_failed_sql"
	failedSQLKey    = "gormdb:failed_sql"
)

// captureFailedSQL keeps the statement of a failed call. GORM resets
// Statement.SQL once the callback chain finishes.
func captureFailedSQL(db *gorm.DB) {
	if db.Error != nil && db.Statement != nil && db.Statement.SQL.Len() > 0 {
		db.InstanceSet(failedSQLKey, db.Statement.SQL.String())
	}
}

// registerSQLCapture hooks captureFailedSQL behind the create, query and update
// callbacks of db. Calling it again on the same db is a no-op.
func registerSQLCapture(db *gorm.DB) error {
	cb := db.Callback()

	if cb.Create().Get(captureCallback) == nil {
		if err := cb.Create().After("gorm:create").Register(captureCallback, captureFailedSQL); err != nil {
			return fmt.Errorf("create callback: %w", err)
		}
	}
	if cb.Query().Get(captureCallback) == nil {
		if err := cb.Query().After("gorm:query").Register(captureCallback, captureFailedSQL); err != nil {
			return fmt.Errorf("query callback: %w", err)
		}
	}
	if cb.Update().Get(captureCallback) == nil {
		if err := cb.Update().After("gorm:update").Register(captureCallback, captureFailedSQL); err != nil {
			return fmt.Errorf("update callback: %w", err)
		}
	}
	return nil
}

// persistenceError pairs the driver error of tx with the statement that failed.
func persistenceError(tx *gorm.DB) *pkgerrors.PersistenceError {
	var sql string
	if v, ok := tx.InstanceGet(failedSQLKey); ok {
		sql, _ = v.(string)
	}
	return pkgerrors.NewPersistenceError(tx.Error, sql)
}

// Create inserts a new user and returns the generated id.
func (r *UserRepo) Create(ctx context.Context, u *user.User) (int64, error) {
	if u == nil {
		return 0, errors.New("user cannot be nil")
	}

	model := UserSchema{
		Email:    u.Email,
		Password: u.Password,
		Name:     u.Name,
	}

	tx := r.db.WithContext(ctx).Create(&model)
	if tx.Error != nil {
		perr := persistenceError(tx)
		r.log.Error("failed to create user in db", zap.Error(tx.Error), zap.String("sql", perr.SQL))
		return 0, fmt.Errorf("failed to create user: %w", perr)
	}

	r.log.Info("user created in db", zap.Int64("id", model.ID))
	return model.ID, nil
}

// Update applies the supplied columns of patch to the row with the given id.
func (r *UserRepo) Update(ctx context.Context, id int64, patch user.Patch) error {
	if id <= 0 {
		return errors.New("invalid user id")
	}
	if patch.Empty() {
		return nil
	}

	tx := r.db.WithContext(ctx).Model(&UserSchema{}).Where("id = ?", id).Updates(patch.Columns())
	if tx.Error != nil {
		perr := persistenceError(tx)
		r.log.Error("failed to update user in db", zap.Error(tx.Error), zap.Int64("id", id), zap.String("sql", perr.SQL))
		return fmt.Errorf("failed to update user: %w", perr)
	}

	r.log.Info("user updated in db", zap.Int64("id", id), zap.Int64("rows_affected", tx.RowsAffected))
	return nil
}

// GetByID retrieves a user by its id.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var model UserSchema
	tx := r.db.WithContext(ctx).First(&model, id)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			r.log.Warn("user not found", zap.Int64("id", id))
			return nil, pkgerrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%d", id))
		}
		perr := persistenceError(tx)
		r.log.Error("failed to get user from db", zap.Error(tx.Error), zap.Int64("id", id), zap.String("sql", perr.SQL))
		return nil, fmt.Errorf("failed to get user: %w", perr)
	}

	return &user.User{
		ID:       model.ID,
		Email:    model.Email,
		Password: model.Password,
		Name:     model.Name,
	}, nil
}

// List returns every row of the user table as raw column maps.
func (r *UserRepo) List(ctx context.Context) ([]user.Row, error) {
	var rows []map[string]any
	tx := r.db.WithContext(ctx).Table(UserSchema{}.TableName()).Find(&rows)
	if tx.Error != nil {
		perr := persistenceError(tx)
		r.log.Error("failed to list users from db", zap.Error(tx.Error), zap.String("sql", perr.SQL))
		return nil, fmt.Errorf("failed to list users: %w", perr)
	}

	out := make([]user.Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, user.Row(row))
	}
	return out, nil
}
