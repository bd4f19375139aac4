// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// Role はユーザーの役割を表す。役割ごとに表示するページが異なる。
type Role string

const (
	// RoleOwner は農場の所有者。
	RoleOwner Role = "proprietario"
	// RoleManager は農場の管理者。
	RoleManager Role = "gerente"
	// RoleEmployee は搾乳などを記録する従業員。
	RoleEmployee Role = "funcionario"
	// RoleVeterinarian は獣医。
	RoleVeterinarian Role = "veterinario"
)

// Valid は既知の役割かどうかを返す。
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleEmployee, RoleVeterinarian:
		return true
	default:
		return false
	}
}

// HomePath は役割ごとのランディングページを返す。未知の役割は管理者ページに振り分ける。
func (r Role) HomePath() string {
	switch r {
	case RoleOwner:
		return "proprietario.html"
	case RoleEmployee:
		return "funcionario.html"
	case RoleVeterinarian:
		return "veterinario.html"
	default:
		return "gerente.html"
	}
}

// User はusersテーブル（プロフィール兼ログイン識別子）の1行を表す。
// Emailはテーブル全体で一意。
type User struct {
	ID              string
	FarmID          string
	Name            string
	Email           string
	Role            Role
	WhatsApp        string
	ProfilePhotoURL string
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PrincipalSource はPrincipalがどこから解決されたかを表す。
type PrincipalSource string

const (
	SourceCache    PrincipalSource = "cache"
	SourceProvider PrincipalSource = "provider"
	SourceProfile  PrincipalSource = "profile"
	SourceFallback PrincipalSource = "fallback"
)

// Principal は認証済みの利用者と所属農場を表す。
// 集計や参照は必ずFarmIDで絞り込み、UserIDは作成者の記録にのみ使う。
type Principal struct {
	UserID   string
	Email    string
	Name     string
	FarmID   string
	FarmName string
	Role     Role
	Source   PrincipalSource
}

// HasFarm は所属農場が解決済みかどうかを返す。
func (p *Principal) HasFarm() bool {
	return p != nil && p.FarmID != ""
}

// EmailLocalPart はメールアドレスの@より前を返す。表示名のフォールバックに使う。
func EmailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}

// DisplayName は表示名を優先順に解決する: 登録名 → メタデータ名 → メールのローカル部 → fallback。
func DisplayName(name, metadataName, email, fallback string) string {
	switch {
	case strings.TrimSpace(name) != "":
		return name
	case strings.TrimSpace(metadataName) != "":
		return metadataName
	case EmailLocalPart(email) != "":
		return EmailLocalPart(email)
	default:
		return fallback
	}
}
