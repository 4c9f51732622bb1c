package api

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/terraincognita07/lua/internal/backup"
	"github.com/terraincognita07/lua/internal/i18n"
	"github.com/terraincognita07/lua/internal/services"
	"go.uber.org/zap"
)

type Handler struct {
	periods   *services.PeriodService
	sync      *backup.Session
	i18n      *i18n.Manager
	feed      *feedTokenSigner
	feedGuard *feedGuard
	publicURL string
	now       func() time.Time
	logger    *zap.Logger
}

type periodInput struct {
	StartDate string  `json:"startDate" form:"startDate"`
	EndDate   *string `json:"endDate" form:"endDate"`
}

type selectionInput struct {
	Days []string `json:"days"`
}

type connectInput struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

type dashboardResponse struct {
	Status          services.DashboardStatus   `json:"status"`
	StatusText      string                     `json:"statusText"`
	Today           string                     `json:"today"`
	Prediction      *services.CyclePrediction  `json:"prediction"`
	ConfidenceLabel string                     `json:"confidenceLabel,omitempty"`
	CycleDay        *services.CycleDay         `json:"cycleDay"`
	Countdown       string                     `json:"countdown,omitempty"`
	Phase           *services.PhaseInfo        `json:"phase"`
	PhaseLabel      string                     `json:"phaseLabel,omitempty"`
	Ongoing         *ongoingResponse           `json:"ongoing"`
	Fluctuation     *services.CycleFluctuation `json:"fluctuation"`
	NextCycle       *services.FutureCycle      `json:"nextCycle"`
}

type ongoingResponse struct {
	ID        uint   `json:"id"`
	StartDate string `json:"startDate"`
	Day       int    `json:"day"`
}

type cycleResponse struct {
	services.CycleInfo
	Range string `json:"range"`
}

type feedClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

const (
	feedTokenPurpose = "calendar_feed"
	feedTokenTTL     = 365 * 24 * time.Hour
	maxForecastCount = 36
)
