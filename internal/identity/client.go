// Package identity はリモートのIDプロバイダー（GoTrue互換API）のクライアントを提供する。
// トークンの発行・更新はプロバイダーに任せ、ここではサインインとユーザー取得のみ行う。
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	// ErrEmailNotConfirmed はメールアドレスが未確認のためサインインできないことを示す。
	ErrEmailNotConfirmed = errors.New("email not confirmed")

	// ErrInvalidCredentials はメールアドレスまたはパスワードが誤っていることを示す。
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken はアクセストークンが無効または期限切れであることを示す。
	ErrInvalidToken = errors.New("invalid access token")
)

// Metadata はプロバイダーに登録されたユーザーメタデータ。
type Metadata struct {
	Name   string `json:"name"`
	Role   string `json:"role"`
	FarmID string `json:"farm_id"`
}

// ProviderUser はプロバイダーから取得したユーザー情報。
type ProviderUser struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
	Metadata         Metadata   `json:"user_metadata"`
}

// Token はサインイン成功時に返されるトークン。
type Token struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
	RefreshToken string       `json:"refresh_token"`
	User         ProviderUser `json:"user"`
}

// errorBody はプロバイダーのエラーレスポンス。新旧2種類の形式がある。
type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
}

func (e *errorBody) message() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Error, e.ErrorCode} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (e *errorBody) emailNotConfirmed() bool {
	return e.ErrorCode == "email_not_confirmed" ||
		strings.Contains(strings.ToLower(e.message()), "email not confirmed")
}

// Client はIDプロバイダーのHTTPクライアント。
type Client struct {
	http *resty.Client
}

// NewClient はClientを生成する。apiKeyはすべてのリクエストのapikeyヘッダーに付与する。
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("apikey", apiKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: c}
}

// GetUser はアクセストークンに対応するユーザーを取得する。
func (c *Client) GetUser(ctx context.Context, accessToken string) (*ProviderUser, error) {
	if accessToken == "" {
		return nil, ErrInvalidToken
	}

	var user ProviderUser
	var errBody errorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&user).
		SetError(&errBody).
		Get("/auth/v1/user")
	if err != nil {
		return nil, fmt.Errorf("failed to call identity provider: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return nil, ErrInvalidToken
	case resp.IsError():
		return nil, fmt.Errorf("identity provider returned %d: %s", resp.StatusCode(), errBody.message())
	}
	if user.ID == "" {
		return nil, ErrInvalidToken
	}
	return &user, nil
}

// SignInWithPassword はメールアドレスとパスワードでサインインする。
// メール未確認の場合はErrEmailNotConfirmedを、認証情報の誤りはErrInvalidCredentialsを返す。
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Token, error) {
	var token Token
	var errBody errorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&token).
		SetError(&errBody).
		Post("/auth/v1/token")
	if err != nil {
		return nil, fmt.Errorf("failed to call identity provider: %w", err)
	}

	if resp.IsError() {
		if errBody.emailNotConfirmed() {
			return nil, ErrEmailNotConfirmed
		}
		if resp.StatusCode() == http.StatusBadRequest || resp.StatusCode() == http.StatusUnauthorized {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("identity provider returned %d: %s", resp.StatusCode(), errBody.message())
	}
	return &token, nil
}
