package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/passagelab/classroom-api/internal/core/domain"
	"github.com/passagelab/classroom-api/internal/core/ports"
)

type loginEventService struct {
	users ports.UserRepository
	log   zerolog.Logger
}

// NewLoginEventService returns a LoginEventService that records last-login times.
func NewLoginEventService(users ports.UserRepository, log zerolog.Logger) ports.LoginEventService {
	return &loginEventService{users: users, log: log}
}

func (s *loginEventService) Process(ctx context.Context, event domain.LoginEvent) error {
	if err := s.users.UpdateLastLogin(ctx, event.UserID, event.At); err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	s.log.Debug().Str("user_id", event.UserID).Time("at", event.At).Msg("last login updated")
	return nil
}
