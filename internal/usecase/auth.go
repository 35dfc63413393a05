package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"authsvc/dto"
	"authsvc/internal/repository"
	"authsvc/model"
	"authsvc/utils"
)

const (
	StateTTL = 10 * time.Minute
	// WelcomeMailTimeout bounds how long signup waits on the mail server.
	WelcomeMailTimeout = 5 * time.Second
)

var (
	ErrUserExists         = errors.New("account with this email already exists")
	ErrUserNotFound       = errors.New("user does not exist")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidState       = errors.New("invalid oauth state")
	ErrUpstream           = errors.New("identity provider failure")
)

// GoogleClient is the part of oauth.GoogleClient the usecase needs.
type GoogleClient interface {
	AuthCodeURL(state string) (string, error)
	Exchange(ctx context.Context, code string) (*dto.OAuthTokens, error)
	DecodeIdentity(ctx context.Context, assertion string) (*dto.GoogleIdentity, error)
}

type AuthUsecase interface {
	//email + password
	Signup(ctx context.Context, input *dto.Signup) (*model.User, error)
	Signin(ctx context.Context, input *dto.Signin) (*dto.SigninResponse, error)

	//google auth
	GoogleLoginURL(ctx context.Context) (state string, url string, err error)
	GoogleCallback(ctx context.Context, code, state string) (string, error)

	Profile(ctx context.Context, userID string) (*dto.Profile, error)
}

type authUsecase struct {
	authRepo repository.AuthRepository
	states   repository.StateStore
	tokens   *utils.TokenService
	google   GoogleClient
	mailer   utils.Mailer
	logger   *slog.Logger
}

func NewAuthUsecase(
	authRepo repository.AuthRepository,
	states repository.StateStore,
	tokens *utils.TokenService,
	google GoogleClient,
	mailer utils.Mailer,
	logger *slog.Logger,
) AuthUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	if mailer == nil {
		mailer = utils.LogMailer{Logger: logger}
	}
	return &authUsecase{
		authRepo: authRepo,
		states:   states,
		tokens:   tokens,
		google:   google,
		mailer:   mailer,
		logger:   logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// email + password
func (u *authUsecase) Signup(ctx context.Context, input *dto.Signup) (*model.User, error) {
	email := normalizeEmail(input.Email)

	_, err := u.authRepo.FindUserByEmail(ctx, email)
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     email,
		Password:  &hashed,
	}
	if err := u.authRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), WelcomeMailTimeout)
	defer cancel()
	if err := u.mailer.SendWelcome(mailCtx, user.Email, user.FirstName); err != nil {
		u.logger.WarnContext(ctx, "welcome mail failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	return user, nil
}

func (u *authUsecase) Signin(ctx context.Context, input *dto.Signin) (*dto.SigninResponse, error) {
	user, err := u.authRepo.FindUserByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.HasPassword() {
		return nil, ErrUserNotFound
	}

	if !utils.ComparePassword(input.Password, *user.Password) {
		return nil, ErrInvalidCredentials
	}

	token, err := u.tokens.Issue(user.ID, user.Email, utils.PasswordSessionTTL)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &dto.SigninResponse{
		Message: "Login successful",
		User:    dto.NewUserView(user),
		Token:   token,
	}, nil
}

// google auth
func (u *authUsecase) GoogleLoginURL(ctx context.Context) (string, string, error) {
	state, err := utils.GenerateState()
	if err != nil {
		return "", "", fmt.Errorf("generate state: %w", err)
	}

	url, err := u.google.AuthCodeURL(state)
	if err != nil {
		return "", "", err
	}

	if err := u.states.Save(ctx, state, StateTTL); err != nil {
		return "", "", fmt.Errorf("save state: %w", err)
	}
	return state, url, nil
}

func (u *authUsecase) GoogleCallback(ctx context.Context, code, state string) (string, error) {
	if !utils.ValidateState(state) {
		return "", ErrInvalidState
	}
	ok, err := u.states.Consume(ctx, state)
	if err != nil {
		return "", fmt.Errorf("consume state: %w", err)
	}
	if !ok {
		return "", ErrInvalidState
	}

	tokens, err := u.google.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	identity, err := u.google.DecodeIdentity(ctx, tokens.IDToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	user, err := u.authRepo.FindOrCreateUserByEmail(ctx, &model.User{
		FirstName: identity.GivenName,
		LastName:  identity.FamilyName,
		Email:     normalizeEmail(identity.Email),
	})
	if err != nil {
		return "", fmt.Errorf("find or create user: %w", err)
	}

	_, err = u.authRepo.UpsertAccount(ctx, &model.Account{
		UserID:        user.ID,
		AccessToken:   tokens.AccessToken,
		RefreshToken:  tokens.RefreshToken,
		EmailVerified: identity.EmailVerified,
		Picture:       identity.Picture,
		IssuedAt:      timeOrNil(identity.IssuedAt),
		ExpiresAt:     timeOrNil(identity.ExpiresAt),
	})
	if err != nil {
		return "", fmt.Errorf("upsert account: %w", err)
	}

	token, err := u.tokens.Issue(user.ID, user.Email, utils.OAuthSessionTTL)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	u.logger.InfoContext(ctx, "google login", slog.String("user_id", user.ID))
	return token, nil
}

func (u *authUsecase) Profile(ctx context.Context, userID string) (*dto.Profile, error) {
	user, err := u.authRepo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	profile := dto.NewProfile(user)
	return &profile, nil
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
