package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"querymate-be/internal/constant"
	"querymate-be/internal/dto"
	"querymate-be/internal/entity"
	"querymate-be/internal/pkg/logger"
	"querymate-be/internal/repository/contract"
	"querymate-be/internal/repository/specification"
	"querymate-be/internal/repository/unitofwork"
)

const tokenTTL = 7 * 24 * time.Hour

type IAuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
}

type authService struct {
	uowFactory unitofwork.RepositoryFactory
	jwtSecret  []byte
	logger     logger.ILogger
}

func NewAuthService(uowFactory unitofwork.RepositoryFactory, jwtSecret string, logger logger.ILogger) IAuthService {
	return &authService{
		uowFactory: uowFactory,
		jwtSecret:  []byte(jwtSecret),
		logger:     logger,
	}
}

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &entity.User{
		Id:           uuid.New(),
		Email:        specification.NormalizeEmail(req.Email),
		PasswordHash: string(hash),
	}

	err = s.uowFactory.NewUnitOfWork(ctx).Transaction(ctx, func(tx unitofwork.UnitOfWork) error {
		existing, err := tx.UserRepository().FindOne(ctx, specification.ByEmail{Email: user.Email})
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrEmailTaken
		}
		return tx.UserRepository().Create(ctx, user)
	})
	switch {
	case errors.Is(err, ErrEmailTaken), errors.Is(err, contract.ErrDuplicate):
		return nil, ErrEmailTaken
	case err != nil:
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info(constant.LogModuleAuth, "User registered", map[string]interface{}{
		"user_id": user.Id.String(),
	})
	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	users := s.uowFactory.NewUnitOfWork(ctx).UserRepository()
	user, err := users.FindOne(ctx, specification.ByEmail{Email: req.Email})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn(constant.LogModuleAuth, "Failed login", map[string]interface{}{
			"user_id": user.Id.String(),
		})
		return nil, ErrInvalidCredentials
	}

	if err := users.RecordLogin(ctx, user.Id, time.Now()); err != nil {
		s.logger.Warn(constant.LogModuleAuth, "Failed to record login time", map[string]interface{}{
			"user_id": user.Id.String(),
			"error":   err.Error(),
		})
	}
	return s.issue(user)
}

func (s *authService) issue(user *entity.User) (*dto.AuthResponse, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.Id.String(),
		"email":   user.Email,
		"iat":     now.Unix(),
		"exp":     now.Add(tokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &dto.AuthResponse{Token: signed, Email: user.Email}, nil
}
