package service

import (
	"context"
	"fmt"
	"log/slog"

	"accountsvc/internal/common"
	"accountsvc/internal/common/security"
	"accountsvc/internal/domain/model"
	"accountsvc/internal/domain/repository"

	"github.com/google/uuid"
)

// SessionStateCache caches the logged_in flag by username. Implementations
// are best-effort; the account service treats every cache failure as a miss.
type SessionStateCache interface {
	Get(ctx context.Context, username string) (loggedIn bool, found bool, err error)
	Set(ctx context.Context, username string, loggedIn bool) error
	Evict(ctx context.Context, username string) error
}

type AccountService struct {
	userRepo repository.UserRepository
	issuer   *security.TokenIssuer
	sessions SessionStateCache // optional, may be nil
	logger   *slog.Logger
}

func NewAccountService(userRepo repository.UserRepository, issuer *security.TokenIssuer, sessions SessionStateCache, logger *slog.Logger) *AccountService {
	return &AccountService{
		userRepo: userRepo,
		issuer:   issuer,
		sessions: sessions,
		logger:   logger,
	}
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Password   string `json:"password,omitempty"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

type AuthResponse struct {
	Token    string `json:"token"`
	Message  string `json:"message"`
	Username string `json:"username"`
	UserID   string `json:"user_id"`
}

type SessionStateResponse struct {
	LoggedIn bool `json:"logged_in"`
}

// Register creates a new user, marks it logged in, and mints a session token
// bound to the new identity. A duplicate username surfaces as a conflict from
// the unique constraint; concurrent signups for the same name race there.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, common.ErrBadRequest
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:             uuid.NewString(),
		Username:       req.Username,
		HashedPassword: hashedPassword,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	if err := s.userRepo.SetLoggedIn(ctx, user.ID, true); err != nil {
		return nil, err
	}
	s.evictSession(ctx, user.Username)

	token, err := s.issuer.Mint(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to mint token: %w", err)
	}

	return &AuthResponse{
		Token:    token,
		Message:  "User registered",
		Username: user.Username,
		UserID:   user.ID,
	}, nil
}

// Authenticate verifies the supplied credentials and, on success, flips the
// session flag and mints a fresh token.
func (s *AccountService) Authenticate(ctx context.Context, req CredentialsRequest) (*AuthResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, common.ErrBadRequest
	}

	user, err := s.userRepo.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}

	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, common.ErrInvalidCredentials
	}

	if err := s.userRepo.SetLoggedIn(ctx, user.ID, true); err != nil {
		return nil, err
	}
	s.evictSession(ctx, user.Username)

	token, err := s.issuer.Mint(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to mint token: %w", err)
	}

	return &AuthResponse{
		Token:    token,
		Message:  "Logged in",
		Username: user.Username,
		UserID:   user.ID,
	}, nil
}

// EndSession clears the session flag for the identity bound to an already
// verified token. The token itself stays valid until expiry; only the
// informational flag changes. A missing row still acks.
func (s *AccountService) EndSession(ctx context.Context, userID, username string) error {
	if err := s.userRepo.SetLoggedIn(ctx, userID, false); err != nil {
		return err
	}
	s.evictSession(ctx, username)
	return nil
}

// SessionState reports the last persisted session transition for a username.
func (s *AccountService) SessionState(ctx context.Context, username string) (*SessionStateResponse, error) {
	if s.sessions != nil {
		loggedIn, found, err := s.sessions.Get(ctx, username)
		if err != nil {
			s.logger.WarnContext(ctx, "session cache read failed", "username", username, "error", err)
		} else if found {
			return &SessionStateResponse{LoggedIn: loggedIn}, nil
		}
	}

	loggedIn, err := s.userRepo.SessionState(ctx, username)
	if err != nil {
		return nil, err
	}

	if s.sessions != nil {
		if err := s.sessions.Set(ctx, username, loggedIn); err != nil {
			s.logger.WarnContext(ctx, "session cache write failed", "username", username, "error", err)
		}
	}
	return &SessionStateResponse{LoggedIn: loggedIn}, nil
}

// GetProfile returns the stored record. Credential material never leaves the
// service; the hash is excluded from serialization at the model.
func (s *AccountService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateProfile writes username and every profile field as supplied, empty
// values included. The password is rehashed and written only when present.
func (s *AccountService) UpdateProfile(ctx context.Context, req UpdateProfileRequest) error {
	if req.UserID == "" {
		return common.ErrBadRequest
	}

	hashedPassword := ""
	if req.Password != "" {
		var err error
		hashedPassword, err = security.HashPassword(req.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
	}

	user := &model.User{
		ID:         req.UserID,
		Username:   req.Username,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Street:     req.Street,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
	}

	if err := s.userRepo.UpdateProfile(ctx, user, hashedPassword); err != nil {
		return err
	}
	s.evictSession(ctx, req.Username)
	return nil
}

// DeleteProfile removes the user. The contract does not distinguish
// "deleted" from "already absent"; both ack.
func (s *AccountService) DeleteProfile(ctx context.Context, userID string) error {
	username, err := s.userRepo.Delete(ctx, userID)
	if err != nil {
		return err
	}
	if username != "" {
		s.evictSession(ctx, username)
	}
	return nil
}

func (s *AccountService) evictSession(ctx context.Context, username string) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.Evict(ctx, username); err != nil {
		s.logger.WarnContext(ctx, "session cache evict failed", "username", username, "error", err)
	}
}
