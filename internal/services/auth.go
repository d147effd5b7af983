package services

import (
  "context"
  "errors"
  "fmt"
  "time"
  "github.com/golang-jwt/jwt/v5"
  "github.com/google/uuid"
  "golang.org/x/crypto/bcrypt"
  "gorm.io/gorm"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/repos"
  "github.com/dr-rompecabezas/lms-backend/internal/types"
  "github.com/dr-rompecabezas/lms-backend/internal/utils"
)

var (
  ErrEmailTaken         = errors.New("email is already registered")
  ErrInvalidCredentials = errors.New("invalid email or password")
  ErrInvalidToken       = errors.New("invalid or expired token")
)

type AuthService interface {
  Register(ctx context.Context, email, password, firstName, lastName string) (*types.User, error)
  Login(ctx context.Context, email, password string) (string, *types.User, error)
  // Authenticate validates a bearer token and loads its user.
  Authenticate(ctx context.Context, token string) (*types.User, error)
}

type authService struct {
  userRepo  repos.UserRepo
  jwtSecret []byte
  accessTTL time.Duration
  log       *logger.Logger
}

func NewAuthService(userRepo repos.UserRepo, baseLog *logger.Logger) AuthService {
  ttlMin := utils.GetEnvAsInt("ACCESS_TTL_MIN", 60, baseLog)
  return &authService{
    userRepo:  userRepo,
    jwtSecret: []byte(utils.GetEnv("JWT_SECRET", "", baseLog)),
    accessTTL: time.Duration(ttlMin) * time.Minute,
    log:       baseLog.With("service", "AuthService"),
  }
}

func (s *authService) Register(ctx context.Context, email, password, firstName, lastName string) (*types.User, error) {
  exists, err := s.userRepo.EmailExists(ctx, nil, email)
  if err != nil {
    return nil, err
  }
  if exists {
    return nil, ErrEmailTaken
  }
  hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
  if err != nil {
    return nil, fmt.Errorf("Failed to hash password: %w", err)
  }
  user := &types.User{
    ID:        uuid.New(),
    Email:     email,
    Password:  string(hash),
    FirstName: firstName,
    LastName:  lastName,
  }
  created, err := s.userRepo.Create(ctx, nil, user)
  if err != nil {
    return nil, err
  }
  s.log.Info("Registered user", "user_id", created.ID)
  return created, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (string, *types.User, error) {
  user, err := s.userRepo.GetByEmail(ctx, nil, email)
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return "", nil, ErrInvalidCredentials
    }
    return "", nil, err
  }
  if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
    return "", nil, ErrInvalidCredentials
  }

  now := time.Now()
  claims := jwt.RegisteredClaims{
    Subject:   user.ID.String(),
    IssuedAt:  jwt.NewNumericDate(now),
    ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
  }
  token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
  if err != nil {
    return "", nil, fmt.Errorf("Failed to sign token: %w", err)
  }
  return token, user, nil
}

func (s *authService) Authenticate(ctx context.Context, tokenString string) (*types.User, error) {
  token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
    if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
      return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
    }
    return s.jwtSecret, nil
  })
  if err != nil || !token.Valid {
    return nil, ErrInvalidToken
  }
  claims, ok := token.Claims.(*jwt.RegisteredClaims)
  if !ok || claims.Subject == "" {
    return nil, ErrInvalidToken
  }
  userID, err := uuid.Parse(claims.Subject)
  if err != nil {
    return nil, ErrInvalidToken
  }
  user, err := s.userRepo.GetByID(ctx, nil, userID)
  if err != nil {
    return nil, ErrInvalidToken
  }
  return user, nil
}
