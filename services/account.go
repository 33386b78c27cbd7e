package services

import (
	"context"
	"strings"
	"time"

	goval "github.com/go-passwd/validator"
	"github.com/leebenson/conform"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/adi27online/meruglobalconnect/apperrors"
	"github.com/adi27online/meruglobalconnect/database"
	"github.com/adi27online/meruglobalconnect/logger"
	"github.com/adi27online/meruglobalconnect/metrics"
	"github.com/adi27online/meruglobalconnect/mailer"
	"github.com/adi27online/meruglobalconnect/models"
	"github.com/adi27online/meruglobalconnect/utils"
)

const (
	verificationTTL = time.Hour
	searchLimit     = 50
)

var passwordValidator = goval.New(
	goval.MinLength(6, errors.New("password must be at least 6 characters")),
	goval.MaxLength(72, errors.New("password must be at most 72 characters")),
)

type RegisterInput struct {
	Name     string `json:"name" conform:"trim" validate:"required,max=100"`
	Email    string `json:"email" conform:"trim,lower" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	City     string `json:"city" conform:"trim"`
	State    string `json:"state" conform:"trim"`
	Country  string `json:"country" conform:"trim"`
}

type SearchInput struct {
	Query   string `form:"q" conform:"trim"`
	City    string `form:"city" conform:"trim"`
	State   string `form:"state" conform:"trim"`
	Country string `form:"country" conform:"trim"`
	Gender  string `form:"gender" conform:"trim"`
}

type AccountService struct {
	Deps
	tokens  *utils.TokenManager
	mail    mailer.Mailer
	baseURL string
}

func NewAccountService(deps Deps, tokens *utils.TokenManager, mail mailer.Mailer, baseURL string) *AccountService {
	if mail == nil {
		mail = mailer.LogMailer{}
	}
	return &AccountService{
		Deps:    deps.withDefaults(),
		tokens:  tokens,
		mail:    mail,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Register creates an unverified, unpaid account and mails the verification
// link. A mail failure is logged and does not fail the registration.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := conform.Strings(&in); err != nil {
		return nil, apperrors.BadRequest("invalid request")
	}
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	if err := passwordValidator.Validate(in.Password); err != nil {
		return nil, apperrors.BadRequest(err.Error())
	}

	dbCtx, cancel := s.db(ctx)
	defer cancel()

	existing, err := s.Store.GetUserByEmail(dbCtx, in.Email)
	switch {
	case err == nil:
		return nil, existingAccountError(existing)
	case !errors.Is(err, database.ErrNotFound):
		return nil, apperrors.Internal(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal(errors.Wrap(err, "hash password"))
	}
	token, err := utils.GenerateVerificationToken()
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	now := s.Now()
	expires := now.Add(verificationTTL)
	user := (&models.User{
		ID:       utils.GenerateUUID(),
		Email:    in.Email,
		Password: string(hash),
		Profile: models.Profile{
			Name:    in.Name,
			City:    in.City,
			State:   in.State,
			Country: in.Country,
		},
		EmailVerificationToken:        token,
		EmailVerificationTokenExpires: &expires,
		CreatedAt:                     now,
		UpdatedAt:                     now,
	}).Normalize()

	if err := s.Store.CreateUser(dbCtx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, apperrors.Conflict("user with this email already exists")
		}
		return nil, apperrors.Internal(err)
	}

	if err := s.sendVerification(ctx, user, token); err != nil {
		logProviderFailure(err, "mail", "register")
	}
	metrics.Registration("registered")
	logger.Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

func existingAccountError(u *models.User) error {
	if !u.IsPaid || !u.IsVerified {
		return apperrors.Conflict("user with this email already exists, please complete your registration").
			With("requiresPayment", !u.IsPaid).
			With("userId", u.ID)
	}
	return apperrors.Conflict("user with this email already exists")
}

// Login checks credentials before the verification flag so an unverified
// state is only revealed to the account owner.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, apperrors.BadRequest("email and password are required")
	}

	ctx, cancel := s.db(ctx)
	defer cancel()

	user, err := s.Store.GetUserByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return "", nil, apperrors.Unauthorized("invalid email or password")
	}
	if err != nil {
		return "", nil, apperrors.Internal(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, apperrors.Unauthorized("invalid email or password")
	}
	if !user.IsVerified {
		return "", nil, apperrors.Forbidden("please verify your email before logging in").With("emailNotVerified", true)
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email, user.Name)
	if err != nil {
		return "", nil, apperrors.Internal(err)
	}
	return token, user, nil
}

func (s *AccountService) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperrors.BadRequest("verification token is required")
	}
	ctx, cancel := s.db(ctx)
	defer cancel()

	user, err := s.Store.ConsumeVerificationToken(ctx, token, s.Now())
	if errors.Is(err, database.ErrNotFound) {
		return apperrors.BadRequest("invalid or expired verification token")
	}
	if err != nil {
		return apperrors.Internal(err)
	}
	metrics.Registration("verified")
	logger.Info().Str("user_id", user.ID).Msg("email verified")
	return nil
}

// ResendVerification answers unknown addresses with the same message as a
// successful send.
func (s *AccountService) ResendVerification(ctx context.Context, email string) (string, error) {
	const generic = "if an account with that email exists, a new verification link has been sent"

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperrors.BadRequest("email is required")
	}

	dbCtx, cancel := s.db(ctx)
	defer cancel()

	user, err := s.Store.GetUserByEmail(dbCtx, email)
	if errors.Is(err, database.ErrNotFound) {
		return generic, nil
	}
	if err != nil {
		return "", apperrors.Internal(err)
	}
	if user.IsVerified {
		return "this email is already verified", nil
	}

	token, err := utils.GenerateVerificationToken()
	if err != nil {
		return "", apperrors.Internal(err)
	}
	if err := s.Store.SetVerificationToken(dbCtx, user.ID, token, s.Now().Add(verificationTTL)); err != nil {
		return "", storeError(err, "user not found")
	}
	if err := s.sendVerification(ctx, user, token); err != nil {
		logProviderFailure(err, "mail", "resend_verification")
		return "", apperrors.New(500, "failed to send verification email")
	}
	return generic, nil
}

func (s *AccountService) sendVerification(ctx context.Context, user *models.User, token string) error {
	msg, err := mailer.VerificationEmail(user.Email, user.Name, s.baseURL+"/verify-email?token="+token)
	if err != nil {
		return err
	}
	ctx, cancel := s.provider(ctx)
	defer cancel()
	return s.mail.Send(ctx, msg)
}

// RefreshToken issues a fresh token for an authenticated user.
func (s *AccountService) RefreshToken(ctx context.Context, userID string) (string, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	token, err := s.tokens.GenerateToken(user.ID, user.Email, user.Name)
	if err != nil {
		return "", apperrors.Internal(err)
	}
	return token, nil
}

func (s *AccountService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	ctx, cancel := s.db(ctx)
	defer cancel()
	user, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	return user.Normalize(), nil
}

// UpdateProfile replaces the editable profile. Pictures are managed by the
// upload endpoints and survive an update untouched.
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, p models.Profile) (*models.User, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, apperrors.BadRequest("name is required")
	}

	ctx, cancel := s.db(ctx)
	defer cancel()

	current, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	p.ProfilePicture = current.ProfilePicture
	p.MatrimonyPictures = current.MatrimonyPictures
	if !p.IsMatrimonyEnabled {
		p.ClearMatrimony()
	}
	if p.Hobbies == nil {
		p.Hobbies = []string{}
	}
	if p.Children == nil {
		p.Children = []models.Child{}
	}

	if err := s.Store.UpdateProfile(ctx, userID, p, s.Now()); err != nil {
		return nil, storeError(err, "user not found")
	}
	updated, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	return updated.Normalize(), nil
}

func (s *AccountService) PublicProfile(ctx context.Context, viewerID, id string) (*models.PublicProfile, error) {
	ctx, cancel := s.db(ctx)
	defer cancel()
	user, err := s.Store.GetUser(ctx, id)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	return user.ToPublic(viewerID), nil
}

// FindPeople lists users the viewer has no relationship with yet. q matches
// the name only; city and state are separate filters.
func (s *AccountService) FindPeople(ctx context.Context, viewerID string, in SearchInput) ([]*models.SearchResult, error) {
	if err := conform.Strings(&in); err != nil {
		return nil, apperrors.BadRequest("invalid query")
	}

	ctx, cancel := s.db(ctx)
	defer cancel()

	viewer, err := s.Store.GetUser(ctx, viewerID)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	users, err := s.Store.FindUsers(ctx, database.UserFilter{
		ExcludeIDs:  append(viewer.Connected(), viewerID),
		Query:       in.Query,
		QueryFields: []string{"name"},
		City:        in.City,
		State:       in.State,
		Limit:       searchLimit,
	})
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	out := make([]*models.SearchResult, 0, len(users))
	for _, u := range users {
		out = append(out, u.ToSearchResult(viewerID))
	}
	return out, nil
}

func (s *AccountService) FindMatrimony(ctx context.Context, viewerID string, in SearchInput) ([]*models.PublicProfile, error) {
	if err := conform.Strings(&in); err != nil {
		return nil, apperrors.BadRequest("invalid query")
	}

	ctx, cancel := s.db(ctx)
	defer cancel()

	users, err := s.Store.FindUsers(ctx, database.UserFilter{
		ExcludeIDs:    []string{viewerID},
		Query:         in.Query,
		QueryFields:   []string{"name", "bio", "profession", "fatherName", "motherName", "education"},
		City:          in.City,
		State:         in.State,
		Country:       in.Country,
		Gender:        in.Gender,
		MatrimonyOnly: true,
		Limit:         searchLimit,
	})
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return publicProfiles(users, viewerID), nil
}

func publicProfiles(users []*models.User, viewerID string) []*models.PublicProfile {
	out := make([]*models.PublicProfile, 0, len(users))
	for _, u := range users {
		out = append(out, u.ToPublic(viewerID))
	}
	return out
}
