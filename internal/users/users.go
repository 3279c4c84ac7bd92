package users

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"healthmate/backend/internal/apierr"
	"healthmate/backend/internal/config"
	"healthmate/backend/internal/logger"
	"healthmate/backend/internal/store"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

var errUserNotFound = apierr.NotFound("user_not_found", "User not found")

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Gender       string    `json:"gender"`
	Age          int       `json:"age"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	Points       int       `json:"points"`
}

// Profile is a User without credentials.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Gender    string    `json:"gender"`
	Age       int       `json:"age"`
	CreatedAt time.Time `json:"created_at"`
	Points    int       `json:"points"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Gender:    u.Gender,
		Age:       u.Age,
		CreatedAt: u.CreatedAt,
		Points:    u.Points,
	}
}

type SignupInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Gender          string `json:"gender"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Age             any    `json:"age"`
}

type ProfileUpdate struct {
	Name            *string `json:"name"`
	Phone           *string `json:"phone"`
	Age             any     `json:"age"`
	CurrentPassword string  `json:"current_password"`
	NewPassword     string  `json:"new_password"`
}

type Service struct {
	store store.DocumentStore
	cfg   config.Config
	log   *logger.Logger
	now   func() time.Time
}

func NewService(docs store.DocumentStore, cfg config.Config, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store: docs,
		cfg:   cfg,
		log:   log.With("service", "AccountService"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	phone := strings.TrimSpace(in.Phone)
	gender := strings.TrimSpace(in.Gender)
	if name == "" || email == "" || phone == "" || gender == "" || in.Password == "" || in.Age == nil {
		return User{}, apierr.BadRequest("missing_fields", "All fields are required")
	}
	if in.ConfirmPassword != "" && in.ConfirmPassword != in.Password {
		return User{}, apierr.BadRequest("password_mismatch", "Passwords do not match")
	}
	if !emailPattern.MatchString(email) {
		return User{}, apierr.BadRequest("invalid_email", "Invalid email format")
	}
	age, err := parseAge(in.Age)
	if err != nil {
		return User{}, err
	}

	if _, found, err := s.findByEmail(ctx, email); err != nil {
		return User{}, err
	} else if found {
		return User{}, apierr.Conflict("email_taken", "Email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Phone:        phone,
		Gender:       gender,
		Age:          age,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
		Points:       0,
	}
	if err := s.store.Put(ctx, store.CollectionUsers, user.ID, user); err != nil {
		return User{}, err
	}
	s.log.Info("user signed up", "user_id", user.ID)
	return user, nil
}

// Login checks credentials and returns the user with a signed bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (User, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return User{}, "", apierr.BadRequest("missing_credentials", "Email and password are required")
	}

	user, found, err := s.findByEmail(ctx, email)
	if err != nil {
		return User{}, "", err
	}
	if !found || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return User{}, "", apierr.Unauthorized("invalid_credentials", "Invalid email or password")
	}

	token, err := s.IssueToken(user.ID)
	if err != nil {
		return User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// IssueToken signs a token whose subject is userID.
func (s *Service) IssueToken(userID string) (string, error) {
	method := jwt.GetSigningMethod(s.cfg.JWTAlgorithm)
	if method == nil {
		return "", fmt.Errorf("unsupported signing method %q", s.cfg.JWTAlgorithm)
	}
	ttlHours := s.cfg.JWTTTLHours
	if ttlHours <= 0 {
		ttlHours = 24 * 7
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlHours) * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
	if s.cfg.JWTAudience != "" {
		claims.Audience = jwt.ClaimStrings{s.cfg.JWTAudience}
	}
	if s.cfg.JWTIssuer != "" {
		claims.Issuer = s.cfg.JWTIssuer
	}
	return jwt.NewWithClaims(method, claims).SignedString([]byte(s.cfg.JWTSecret))
}

func (s *Service) Get(ctx context.Context, userID string) (User, error) {
	var user User
	found, err := s.store.Get(ctx, store.CollectionUsers, userID, &user)
	if err != nil {
		return User{}, err
	}
	if !found {
		return User{}, errUserNotFound
	}
	return user, nil
}

// UpdateProfile applies the allowed profile fields and, when both passwords
// are given, changes the password.
func (s *Service) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return User{}, err
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return User{}, apierr.BadRequest("invalid_name", "Name cannot be empty")
		}
		user.Name = name
	}
	if update.Phone != nil {
		user.Phone = strings.TrimSpace(*update.Phone)
	}
	if update.Age != nil {
		age, err := parseAge(update.Age)
		if err != nil {
			return User{}, err
		}
		user.Age = age
	}

	if update.CurrentPassword != "" && update.NewPassword != "" {
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(update.CurrentPassword)) != nil {
			return User{}, apierr.BadRequest("wrong_password", "Current password is incorrect")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(update.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return User{}, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
		s.log.Info("password changed", "user_id", userID)
	}

	if err := s.store.Put(ctx, store.CollectionUsers, user.ID, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// AwardPoints adds points to the user and returns the new total.
func (s *Service) AwardPoints(ctx context.Context, userID string, points int) (int, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	user.Points += points
	if err := s.store.Put(ctx, store.CollectionUsers, user.ID, user); err != nil {
		return 0, err
	}
	return user.Points, nil
}

func (s *Service) findByEmail(ctx context.Context, email string) (User, bool, error) {
	docs, err := s.store.All(ctx, store.CollectionUsers)
	if err != nil {
		return User{}, false, err
	}
	for key, raw := range docs {
		var user User
		if err := json.Unmarshal(raw, &user); err != nil {
			s.log.Error("skipping corrupted user document", "key", key, "err", err)
			continue
		}
		if strings.EqualFold(user.Email, email) {
			return user, true, nil
		}
	}
	return User{}, false, nil
}

func parseAge(raw any) (int, error) {
	invalid := apierr.BadRequest("invalid_age", "Age must be a whole number between 1 and 150")

	var value float64
	switch v := raw.(type) {
	case float64:
		value = v
	case int:
		value = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, invalid
		}
		value = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, invalid
		}
		value = f
	default:
		return 0, invalid
	}
	if value != math.Trunc(value) || value < 1 || value > 150 {
		return 0, invalid
	}
	return int(value), nil
}
