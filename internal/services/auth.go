package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"tg-clicker/internal/domain/dto"
	"tg-clicker/internal/game"
)

const initDataMaxAge = 24 * time.Hour

var (
	ErrAuthDisabled          = errors.New("telegram auth is not configured")
	ErrInvalidInitData       = errors.New("invalid init data")
	ErrFailedToGenerateToken = errors.New("failed to generate token")
)

type TokenGenerator interface {
	Generate(telegramID string) (string, error)
}

type AuthService struct {
	log      *slog.Logger
	botToken string
	jwtGen   TokenGenerator
	now      func() time.Time
}

func NewAuthService(log *slog.Logger, botToken string, jwtGen TokenGenerator) *AuthService {
	return &AuthService{
		log:      log,
		botToken: botToken,
		jwtGen:   jwtGen,
		now:      time.Now,
	}
}

// Authenticate checks Mini-App init data signed with the bot token and issues a session token
// for the telegram user it carries.
func (s *AuthService) Authenticate(_ context.Context, initData string) (dto.AuthResponse, error) {
	const op = "services.AuthService.Authenticate"

	log := s.log.With(slog.String("op", op))

	if s.botToken == "" {
		return dto.AuthResponse{}, fmt.Errorf("%s: %w", op, ErrAuthDisabled)
	}

	values, err := tu.ValidateWebAppData(s.botToken, initData)
	if err != nil {
		log.Info("init data rejected", slog.String("error", err.Error()))
		return dto.AuthResponse{}, fmt.Errorf("%s: %w: %w", op, ErrInvalidInitData, err)
	}

	authDate, err := strconv.ParseInt(values.Get(tu.WebAppAuthDate), 10, 64)
	if err != nil {
		return dto.AuthResponse{}, fmt.Errorf("%s: %w: bad auth_date", op, ErrInvalidInitData)
	}
	if s.now().Sub(time.Unix(authDate, 0)) > initDataMaxAge {
		log.Info("init data expired", slog.Int64("auth_date", authDate))
		return dto.AuthResponse{}, fmt.Errorf("%s: %w: expired", op, ErrInvalidInitData)
	}

	var user telego.User
	if err := json.Unmarshal([]byte(values.Get(tu.WebAppUser)), &user); err != nil || user.ID == 0 {
		return dto.AuthResponse{}, fmt.Errorf("%s: %w: no user", op, ErrInvalidInitData)
	}

	telegramID := strconv.FormatInt(user.ID, 10)

	token, err := s.jwtGen.Generate(telegramID)
	if err != nil {
		log.Error("failed to generate token", slog.String("error", err.Error()))
		return dto.AuthResponse{}, fmt.Errorf("%s: %w", op, ErrFailedToGenerateToken)
	}

	log.Info("telegram user authenticated", slog.String("telegram_id", telegramID))

	return dto.AuthResponse{
		Token:      token,
		TelegramID: telegramID,
		Username:   displayName(user),
	}, nil
}

func displayName(user telego.User) string {
	switch {
	case user.Username != "":
		return user.Username
	case user.FirstName != "":
		return user.FirstName
	default:
		return game.DefaultUsername
	}
}
