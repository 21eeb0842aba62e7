package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go-survey-console/internal/crud"
	"go-survey-console/internal/model"
	"go-survey-console/internal/rbac"
	"go-survey-console/internal/session"
	"go-survey-console/pkg/apiclient"
	"go-survey-console/pkg/jwt"
	"go-survey-console/pkg/validator"
)

var ErrLoginRejected = errors.New("login response carried no tokens")

type AuthService interface {
	Login(ctx context.Context, prev string, req LoginRequest) (string, error)
	Logout(ctx context.Context, sid string) error
	RequestOTP(ctx context.Context, req RequestOTPRequest) (string, error)
	ResetPassword(ctx context.Context, req ResetPasswordRequest) (string, error)
	Session(ctx context.Context, sid string) (*SessionInfo, error)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email_simple"`
	Password string `json:"password" validate:"required"`
}

type RequestOTPRequest struct {
	Email string `json:"email" validate:"required,email_simple"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email_simple"`
	OTP         string `json:"otp" validate:"required,otp"`
	NewPassword string `json:"new_password" validate:"required"`
}

// SessionInfo is the browser-visible part of a session. Tokens never leave
// the console.
type SessionInfo struct {
	Authenticated    bool       `json:"is_authenticated"`
	AccessExpiresAt  *time.Time `json:"access_expires_at,omitempty"`
	SelectedSurveyID string     `json:"selected_survey_id,omitempty"`
	GoodsType        string     `json:"goods_type"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type authService struct {
	client   *apiclient.Client
	store    session.Store
	resolver *rbac.Resolver
	pages    *crud.Registry
	logger   *slog.Logger
}

func NewAuthService(client *apiclient.Client, store session.Store, resolver *rbac.Resolver, pages *crud.Registry, logger *slog.Logger) AuthService {
	return &authService{
		client:   client,
		store:    store,
		resolver: resolver,
		pages:    pages,
		logger:   logger,
	}
}

// Login exchanges credentials for a token pair and returns a freshly
// created authenticated session. The id the client arrived with, if any, is
// cleared; nothing is stored until the upstream accepts the credentials.
func (s *authService) Login(ctx context.Context, prev string, req LoginRequest) (string, error) {
	// 1. Validate input
	if err := validator.Check(req); err != nil {
		return "", err
	}

	// 2. Authenticate upstream
	var tokens model.TokenPair
	conn := s.client.With(apiclient.Anonymous)
	if err := conn.Post(ctx, "/auth/login/", req, &tokens); err != nil {
		return "", failField(err, "error", "Login failed. Please check your credentials and try again.")
	}
	if tokens.Access == "" || tokens.Refresh == "" {
		return "", &Failure{Message: "Login failed. Please check your credentials and try again.", Err: ErrLoginRejected}
	}

	// 3. Always issue a new id
	sid, err := s.store.Create(ctx)
	if err != nil {
		return "", err
	}
	if err := session.Login(ctx, s.store, sid, tokens.Access, tokens.Refresh); err != nil {
		return "", err
	}

	// 4. Retire the previous id
	if prev != "" && prev != sid {
		if err := s.store.Clear(ctx, prev); err != nil {
			s.logger.Warn("clear previous session", "session_id", prev, "err", err)
		}
		s.resolver.Invalidate(prev)
		s.pages.UnmountSession(prev)
	}
	s.logger.Info("user logged in", "session_id", sid, "email", req.Email)
	return sid, nil
}

// Logout tells the upstream to blacklist the refresh token, then clears the
// session whether or not that call succeeded.
func (s *authService) Logout(ctx context.Context, sid string) error {
	creds := session.NewCredentials(s.store, sid)
	refresh, err := creds.RefreshToken(ctx)
	if err != nil {
		return err
	}
	if refresh != "" {
		if err := s.client.With(creds).Post(ctx, "/auth/logout/", map[string]string{"refresh": refresh}, nil); err != nil {
			s.logger.Warn("upstream logout failed", "session_id", sid, "err", err)
		}
	}

	if err := session.Logout(ctx, s.store, sid); err != nil {
		return err
	}
	s.resolver.Invalidate(sid)
	s.pages.UnmountSession(sid)
	s.logger.Info("user logged out", "session_id", sid)
	return nil
}

func (s *authService) RequestOTP(ctx context.Context, req RequestOTPRequest) (string, error) {
	if err := validator.Check(req); err != nil {
		return "", err
	}
	var resp messageResponse
	if err := s.client.With(apiclient.Anonymous).Post(ctx, "/auth/request-otp/", req, &resp); err != nil {
		return "", failField(err, "error", "Failed to send OTP. Please try again.")
	}
	return resp.Message, nil
}

func (s *authService) ResetPassword(ctx context.Context, req ResetPasswordRequest) (string, error) {
	if err := validator.Check(req); err != nil {
		return "", err
	}
	var resp messageResponse
	if err := s.client.With(apiclient.Anonymous).Post(ctx, "/auth/reset-password/", req, &resp); err != nil {
		return "", failField(err, "error", "Failed to reset password. Please try again.")
	}
	return resp.Message, nil
}

func (s *authService) Session(ctx context.Context, sid string) (*SessionInfo, error) {
	info := &SessionInfo{GoodsType: model.GoodsTypeArticle}
	if sid == "" {
		return info, nil
	}
	values, err := s.store.Snapshot(ctx, sid)
	if errors.Is(err, session.ErrNotFound) {
		return info, nil
	}
	if err != nil {
		return nil, err
	}

	info.Authenticated = values[session.KeyAuthenticated] == "true"
	info.SelectedSurveyID = values[session.KeySelectedSurveyID]
	info.GoodsType = model.NormalizeGoodsType(values[session.KeyGoodsType])
	if exp, ok := jwt.ExpiresAt(values[session.KeyAccessToken]); ok && info.Authenticated {
		info.AccessExpiresAt = &exp
	}
	return info, nil
}
