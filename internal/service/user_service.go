package service

import (
	"errors"
	"time"

	"github.com/shoe-uugan/ai-chat/internal/models"
	"github.com/shoe-uugan/ai-chat/pkg/jwt"

	"gorm.io/gorm"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRole        = errors.New("invalid role")
)

// UserService handles registration and login. It exists so the chat
// core can treat identity as an opaque verified user ID.
type UserService struct {
	db         *gorm.DB
	jwtService *jwt.Service
}

func NewUserService(db *gorm.DB, jwtService *jwt.Service) *UserService {
	return &UserService{
		db:         db,
		jwtService: jwtService,
	}
}

// CreateUser registers a new user and returns a signed token
func (s *UserService) CreateUser(req *models.CreateUserRequest) (*models.User, string, error) {
	role := req.Role
	if role == "" {
		role = string(jwt.RoleUser)
	}
	if role != string(jwt.RoleUser) && role != string(jwt.RoleAdmin) {
		return nil, "", ErrInvalidRole
	}

	var existing models.User
	err := s.db.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return nil, "", ErrUserAlreadyExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password, // hashed by the BeforeCreate hook
		Role:     role,
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, "", err
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

// Login verifies credentials and returns a signed token
func (s *UserService) Login(req *models.LoginRequest) (*models.User, string, error) {
	var user models.User
	if err := s.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !models.CheckPasswordHash(req.Password, user.Password) {
		return nil, "", ErrInvalidCredentials
	}

	user.LastLogin = time.Now()
	if err := s.db.Model(&user).Update("last_login", user.LastLogin).Error; err != nil {
		return nil, "", err
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", err
	}

	return &user, token, nil
}

// GetUserByID loads a user by ID
func (s *UserService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
