package model

import "time"

// DateLayout は生産日（暦日）の文字列表現。
const DateLayout = "2006-01-02"

// Shift は搾乳の時間帯を表す。
type Shift string

const (
	ShiftMorning   Shift = "manha"
	ShiftAfternoon Shift = "tarde"
	ShiftNight     Shift = "noite"
)

// Valid は3つの固定値のいずれかかどうかを返す。
func (s Shift) Valid() bool {
	return s == ShiftMorning || s == ShiftAfternoon || s == ShiftNight
}

// Order は履歴の並び替えに使う順序（朝 → 午後 → 夜）を返す。未知の値は最後に並ぶ。
func (s Shift) Order() int {
	switch s {
	case ShiftMorning:
		return 0
	case ShiftAfternoon:
		return 1
	case ShiftNight:
		return 2
	default:
		return 3
	}
}

// Label は画面表示用のラベルを返す。未知の値はそのまま返す。
func (s Shift) Label() string {
	switch s {
	case ShiftMorning:
		return "Manhã"
	case ShiftAfternoon:
		return "Tarde"
	case ShiftNight:
		return "Noite"
	default:
		return string(s)
	}
}

// ProductionRecord はmilk_productionテーブルの1行（搾乳記録）を表す。
// UserIDは監査用の作成者であり、参照・集計の絞り込みには使わない。
type ProductionRecord struct {
	ID             string
	FarmID         string
	UserID         string
	CreatorName    string // usersとのJOINで取得。作成者が削除済みなら空
	VolumeLiters   float64
	ProductionDate string // YYYY-MM-DD
	Shift          Shift
	Temperature    *float64
	Observations   string
	CreatedAt      time.Time
}

// DailyVolume は暦日ごとの生産量の合計。
type DailyVolume struct {
	Date   string
	Liters float64
}
