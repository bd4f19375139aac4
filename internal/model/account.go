package model

import "time"

// SecondaryAccount は主アカウントと副アカウントの関係を表す。
// 1つの主アカウントに副アカウントは高々1つ。
type SecondaryAccount struct {
	ID                 string
	PrimaryAccountID   string
	SecondaryAccountID string
	CreatedAt          time.Time
}

// SecondaryAccountStatus は副アカウント設定画面の表示状態を表す。
type SecondaryAccountStatus struct {
	HasSecondary  bool
	SecondaryID   string
	SecondaryName string
	SecondaryRole Role
	IsActive      bool
	SwitchEnabled bool
}
