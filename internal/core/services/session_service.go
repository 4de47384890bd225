package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"collections-console/internal/adapters/persistence/kvstore"
	"collections-console/internal/config"
	"collections-console/internal/core/domain"
	"collections-console/internal/pkg/jwt"
	"collections-console/internal/pkg/sealer"

	"github.com/google/uuid"
)

// Session errors
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrServiceAccount     = errors.New("service account is not configured")
)

// SessionService owns staff sessions: login, lookup and teardown
type SessionService struct {
	api    CollectionsAPI
	store  SessionRepository
	sealer *sealer.Sealer
	cfg    *config.Config
	onEnd  []func(sessionID string)
}

// NewSessionService creates a new session service
func NewSessionService(api CollectionsAPI, store SessionRepository, cfg *config.Config) *SessionService {
	return &SessionService{
		api:    api,
		store:  store,
		sealer: sealer.New(cfg.Store.SealSecret),
		cfg:    cfg,
	}
}

// OnEnd registers fn to run whenever a session is destroyed.
// Register hooks before the server starts.
func (s *SessionService) OnEnd(fn func(sessionID string)) {
	s.onEnd = append(s.onEnd, fn)
}

func (s *SessionService) ended(sessionID string) {
	for _, fn := range s.onEnd {
		fn(sessionID)
	}
}

// LoginInput represents login input
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned to the browser after a successful login
type LoginResponse struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expiresAt"`
	User      domain.UserProfile `json:"user"`
}

// Login authenticates against the collections API and opens a console session
func (s *SessionService) Login(ctx context.Context, input LoginInput) (*LoginResponse, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, domain.ValidationError("username and password are required")
	}

	res, err := s.api.Login(ctx, username, input.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if res.Token == "" {
		return nil, fmt.Errorf("login response carried no token")
	}

	sealed, err := s.sealer.Seal(res.Token)
	if err != nil {
		return nil, fmt.Errorf("seal token: %w", err)
	}

	sessionID := uuid.New().String()
	user := kvstore.StoredUser{
		UserID:    res.User.ID,
		Name:      res.User.Name,
		Role:      res.User.Role,
		CreatedAt: time.Now(),
	}
	if err := s.store.Put(sessionID, sealed, user); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	token, err := jwt.GenerateSessionToken(sessionID, user.UserID, string(user.Role), s.cfg.JWT.Secret, s.cfg.JWT.SessionMinutes)
	if err != nil {
		s.store.Delete(sessionID)
		return nil, err
	}

	log.Printf("✅ Staff %s signed in (session %s)", user.Name, sealer.HashToken(sessionID))

	return &LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(time.Duration(s.cfg.JWT.SessionMinutes) * time.Minute),
		User:      domain.UserProfile{UserID: user.UserID, Name: user.Name, Role: user.Role},
	}, nil
}

// Resolve turns a console token into the live session behind it
func (s *SessionService) Resolve(token string) (*domain.Session, error) {
	claims, err := jwt.ValidateSessionToken(token, s.cfg.JWT.Secret)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}
	return s.Get(claims.SessionID)
}

// Get loads a session by id
func (s *SessionService) Get(sessionID string) (*domain.Session, error) {
	sealed, user, err := s.store.Get(sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}

	authToken, err := s.sealer.Open(sealed)
	if err != nil {
		// sealed under a rotated secret; the session is useless
		s.store.Delete(sessionID)
		s.ended(sessionID)
		return nil, domain.ErrUnauthenticated
	}

	return &domain.Session{
		ID:        sessionID,
		UserID:    user.UserID,
		Name:      user.Name,
		Role:      user.Role,
		AuthToken: authToken,
		CreatedAt: user.CreatedAt,
	}, nil
}

// Logout destroys a session
func (s *SessionService) Logout(sessionID string) error {
	if err := s.store.Delete(sessionID); err != nil {
		return err
	}
	s.ended(sessionID)
	return nil
}

// Invalidate destroys a session whose upstream token was rejected
func (s *SessionService) Invalidate(sessionID string) {
	if sessionID == "" {
		return
	}
	if err := s.store.Delete(sessionID); err != nil {
		log.Printf("⚠️ Failed to clear session %s: %v", sealer.HashToken(sessionID), err)
		return
	}
	s.ended(sessionID)
	log.Printf("⚠️ Session %s cleared after upstream rejected its token", sealer.HashToken(sessionID))
}

// ServiceSession logs the background service account in. The session is not stored.
func (s *SessionService) ServiceSession(ctx context.Context) (*domain.Session, error) {
	if !s.cfg.Service.Configured() {
		return nil, ErrServiceAccount
	}
	res, err := s.api.Login(ctx, s.cfg.Service.Username, s.cfg.Service.Password)
	if err != nil {
		return nil, fmt.Errorf("service login: %w", err)
	}
	return &domain.Session{
		UserID:    res.User.ID,
		Name:      res.User.Name,
		Role:      res.User.Role,
		AuthToken: res.Token,
		CreatedAt: time.Now(),
	}, nil
}
