package api

import (
	"errors"
	"strings"
	"time"

	"github.com/terraincognita07/lua/internal/backup"
	"github.com/terraincognita07/lua/internal/i18n"
	"github.com/terraincognita07/lua/internal/services"
	"go.uber.org/zap"
)

type HandlerConfig struct {
	Periods   *services.PeriodService
	Sync      *backup.Session
	I18n      *i18n.Manager
	SecretKey string
	PublicURL string
	Now       func() time.Time
	Logger    *zap.Logger
}

func NewHandler(config HandlerConfig) (*Handler, error) {
	if config.Periods == nil {
		return nil, errors.New("period service is required")
	}
	if config.I18n == nil {
		return nil, errors.New("i18n manager is required")
	}
	if strings.TrimSpace(config.SecretKey) == "" {
		return nil, errors.New("secret key is required")
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &Handler{
		periods:   config.Periods,
		sync:      config.Sync,
		i18n:      config.I18n,
		feed:      newFeedTokenSigner([]byte(config.SecretKey), config.Now),
		feedGuard: newFeedGuard(feedFailureLimit, feedFailureWindow),
		publicURL: strings.TrimRight(strings.TrimSpace(config.PublicURL), "/"),
		now:       config.Now,
		logger:    config.Logger,
	}, nil
}
