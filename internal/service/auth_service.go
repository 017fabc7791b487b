package service

import (
	"go-pos-backoffice/internal/model"
	"go-pos-backoffice/internal/repository"
	"go-pos-backoffice/pkg/apperror"
	"go-pos-backoffice/pkg/jwt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	errInvalidCredentials = apperror.New(401, "Invalid email or password")
	errUserInactive       = apperror.New(403, "User account is inactive")
	errWrongPassword      = apperror.New(422, "Current password is incorrect")
)

type LoginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type AuthService interface {
	Login(email, password string) (*LoginResponse, error)
	ChangePassword(userID uuid.UUID, currentPassword, newPassword string) error
}

type authService struct {
	userRepo repository.UserRepository
	signer   *jwt.Signer
	log      zerolog.Logger
}

func NewAuthService(userRepo repository.UserRepository, signer *jwt.Signer, log zerolog.Logger) AuthService {
	return &authService{userRepo: userRepo, signer: signer, log: log}
}

func (s *authService) Login(email, password string) (*LoginResponse, error) {
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		return nil, errInvalidCredentials
	}
	if !user.IsActive {
		return nil, errUserInactive
	}
	if !user.CheckPassword(password) {
		return nil, errInvalidCredentials
	}

	token, err := s.signer.GenerateToken(user.ID, user.Email, user.FullName)
	if err != nil {
		s.log.Error().Err(err).Str("email", email).Msg("token generation failed")
		return nil, apperror.ErrInternalServer
	}

	return &LoginResponse{Token: token, User: user}, nil
}

func (s *authService) ChangePassword(userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return err
	}
	if !user.CheckPassword(currentPassword) {
		return errWrongPassword
	}
	if err := user.SetPassword(newPassword); err != nil {
		s.log.Error().Err(err).Str("user_id", userID.String()).Msg("password hash failed")
		return apperror.ErrInternalServer
	}
	if err := s.userRepo.Update(user); err != nil {
		s.log.Error().Err(err).Str("user_id", userID.String()).Msg("password update failed")
		return apperror.ErrInternalServer
	}
	return nil
}
