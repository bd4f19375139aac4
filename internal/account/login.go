// Package account は副アカウントの作成・更新と、主アカウントへの切り替えを提供する。
package account

import (
	"fmt"
	"strings"
)

// ログイン値の導出方式。
const (
	StrategyMarker = "marker"
	StrategyShared = "shared"
)

// LoginDeriver は主アカウントのログイン値から副アカウントのログイン値を導出する。
// 方式は起動時に1度だけ選ぶ。
type LoginDeriver interface {
	Derive(primaryLogin string) string
	Strategy() string
}

// NewLoginDeriver は方式名からLoginDeriverを生成する。
func NewLoginDeriver(strategy, marker string) (LoginDeriver, error) {
	switch strategy {
	case StrategyMarker:
		if marker == "" {
			return nil, fmt.Errorf("login marker must not be empty")
		}
		return markerDeriver{marker: marker}, nil
	case StrategyShared:
		return sharedDeriver{}, nil
	default:
		return nil, fmt.Errorf("unknown login strategy %q", strategy)
	}
}

// markerDeriver は@の直前にマーカーを挿入する。例: ana@fazenda.com → ana+secondary@fazenda.com
type markerDeriver struct {
	marker string
}

func (d markerDeriver) Derive(primaryLogin string) string {
	i := strings.LastIndex(primaryLogin, "@")
	if i < 0 {
		return primaryLogin + d.marker
	}
	return primaryLogin[:i] + d.marker + primaryLogin[i:]
}

func (d markerDeriver) Strategy() string { return StrategyMarker }

// sharedDeriver は主アカウントと同じログイン値を使う。
// usersのemail一意制約を外したスキーマ向け。
type sharedDeriver struct{}

func (sharedDeriver) Derive(primaryLogin string) string { return primaryLogin }

func (sharedDeriver) Strategy() string { return StrategyShared }

// StripMarker はマーカー付きのログイン値から主アカウントのログイン値を復元する。
// マーカーが@の直前にない場合はfalseを返す。
func StripMarker(login, marker string) (string, bool) {
	i := strings.LastIndex(login, "@")
	if i < 0 || marker == "" {
		return "", false
	}
	local, domain := login[:i], login[i:]
	if !strings.HasSuffix(local, marker) || len(local) == len(marker) {
		return "", false
	}
	return strings.TrimSuffix(local, marker) + domain, true
}
