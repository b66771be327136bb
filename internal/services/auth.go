package services

import (
	"context"
	"net/http"

	"invoiceweb/portal/internal/apiclient"
	"invoiceweb/portal/internal/models"
)

// AuthService is the only service with a side effect on the shared headers:
// successful login, register and refresh install the new access token and a
// successful logout removes it.
type AuthService struct {
	*apiclient.Client
}

func NewAuthService(client *apiclient.Client) *AuthService {
	return &AuthService{Client: client}
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) apiclient.Envelope[models.AuthResponse] {
	return s.authenticate(ctx, "/auth/login", req)
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) apiclient.Envelope[models.AuthResponse] {
	return s.authenticate(ctx, "/auth/register", req)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) apiclient.Envelope[models.AuthResponse] {
	return s.authenticate(ctx, "/auth/refresh", models.RefreshRequest{RefreshToken: refreshToken})
}

func (s *AuthService) authenticate(ctx context.Context, path string, body any) apiclient.Envelope[models.AuthResponse] {
	env := call[models.AuthResponse](ctx, s.Client, apiclient.Request{
		Method:        http.MethodPost,
		Path:          path,
		Body:          body,
		SkipAuthRetry: true,
	})
	if env.Success && env.Data.AccessToken != "" {
		s.SetAuthToken(env.Data.AccessToken)
	}
	return env
}

func (s *AuthService) Logout(ctx context.Context) apiclient.Envelope[apiclient.Void] {
	env := call[apiclient.Void](ctx, s.Client, apiclient.Request{
		Method:        http.MethodPost,
		Path:          "/auth/logout",
		SkipAuthRetry: true,
	})
	if env.Success {
		s.ClearAuthToken()
	}
	return env
}

func (s *AuthService) CurrentUser(ctx context.Context) apiclient.Envelope[models.CurrentUserInfo] {
	return call[models.CurrentUserInfo](ctx, s.Client, apiclient.Request{Method: http.MethodGet, Path: "/auth/me"})
}

func (s *AuthService) ChangePassword(ctx context.Context, req models.ChangePasswordRequest) apiclient.Envelope[apiclient.Void] {
	return call[apiclient.Void](ctx, s.Client, apiclient.Request{Method: http.MethodPost, Path: "/auth/change-password", Body: req})
}

func (s *AuthService) ForgotPassword(ctx context.Context, email string) apiclient.Envelope[apiclient.Void] {
	return call[apiclient.Void](ctx, s.Client, apiclient.Request{
		Method:        http.MethodPost,
		Path:          "/auth/forgot-password",
		Body:          models.ForgotPasswordRequest{Email: email},
		SkipAuthRetry: true,
	})
}

func (s *AuthService) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) apiclient.Envelope[apiclient.Void] {
	return call[apiclient.Void](ctx, s.Client, apiclient.Request{
		Method:        http.MethodPost,
		Path:          "/auth/reset-password",
		Body:          req,
		SkipAuthRetry: true,
	})
}
