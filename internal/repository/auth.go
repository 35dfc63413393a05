package repository

import (
	"context"
	"errors"
	"strings"

	"authsvc/model"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

type AuthRepository interface {
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	FindUserByID(ctx context.Context, id string) (*model.User, error)
	// CreateUser fails with ErrConflict when the email is taken.
	CreateUser(ctx context.Context, user *model.User) error
	// FindOrCreateUserByEmail inserts user unless one with the same email
	// exists, and returns the stored row either way.
	FindOrCreateUserByEmail(ctx context.Context, user *model.User) (*model.User, error)

	//google account
	FindAccountByUserID(ctx context.Context, userID string) (*model.Account, error)
	UpsertAccount(ctx context.Context, account *model.Account) (*model.Account, error)
}

type authRepository struct {
	db *gorm.DB
}

func NewAuthRepository(db *gorm.DB) AuthRepository {
	return &authRepository{db}
}

func (r *authRepository) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *authRepository) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *authRepository) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicateKeyError(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (r *authRepository) FindOrCreateUserByEmail(ctx context.Context, user *model.User) (*model.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoNothing: true,
		}).
		Create(user).Error
	if err != nil {
		return nil, err
	}
	return r.FindUserByEmail(ctx, user.Email)
}

func (r *authRepository) FindAccountByUserID(ctx context.Context, userID string) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *authRepository) UpsertAccount(ctx context.Context, account *model.Account) (*model.Account, error) {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}

	columns := []string{"access_token", "email_verified", "picture", "issued_at", "expires_at", "updated_at"}
	// google only sends a refresh token on consent; keep the stored one otherwise
	if account.RefreshToken != "" {
		columns = append(columns, "refresh_token")
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns(columns),
		}).
		Create(account).Error
	if err != nil {
		return nil, err
	}
	return r.FindAccountByUserID(ctx, account.UserID)
}

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
