package model

import "time"

// SessionData はセッションストアに保存するセッション情報。
// ログイン時刻からTTL以内のものだけを有効とする。
type SessionData struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	UserType        Role      `json:"userType"`
	FarmID          string    `json:"farmId"`
	FarmName        string    `json:"farmName"`
	LoginTime       time.Time `json:"loginTime"`
	IsAuthenticated bool      `json:"isAuthenticated"`
	AccessToken     string    `json:"accessToken,omitempty"`
}

// Valid はnow時点でセッションが有効かどうかを返す。
func (s *SessionData) Valid(now time.Time, ttl time.Duration) bool {
	if s == nil || !s.IsAuthenticated || s.LoginTime.IsZero() {
		return false
	}
	return now.Sub(s.LoginTime) < ttl
}

// Principal はセッション情報をPrincipalに変換する。
func (s *SessionData) Principal() *Principal {
	return &Principal{
		UserID:   s.ID,
		Email:    s.Email,
		Name:     s.Name,
		FarmID:   s.FarmID,
		FarmName: s.FarmName,
		Role:     s.UserType,
		Source:   SourceCache,
	}
}

// NewSessionData はユーザーと農場名からセッション情報を生成する。
func NewSessionData(u *User, farmName string, loginTime time.Time) *SessionData {
	return &SessionData{
		ID:              u.ID,
		Email:           u.Email,
		Name:            DisplayName(u.Name, "", u.Email, "Usuário"),
		UserType:        u.Role,
		FarmID:          u.FarmID,
		FarmName:        farmName,
		LoginTime:       loginTime,
		IsAuthenticated: true,
	}
}
