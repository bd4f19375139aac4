package presenter

import (
	"strconv"
	"time"

	"github.com/hitoshi/lactech/internal/dashboard"
	"github.com/hitoshi/lactech/internal/model"
	"github.com/hitoshi/lactech/internal/profile"
)

// IndicatorsView はダッシュボード指標のレスポンス。
type IndicatorsView struct {
	Date   string   `json:"date"`
	Slots  *Board   `json:"slots"`
	Failed []string `json:"failed,omitempty"`
}

// Indicators は4指標をスロットに配置する。失敗した指標はゼロ表示になる。
func Indicators(ind *dashboard.Indicators) *IndicatorsView {
	b := NewBoard(IndicatorSlots...)
	b.Set(SlotTodayVolume, FormatLiters(ind.TodayVolume))
	b.Set(SlotWeekAverage, FormatLiters(ind.WeekAverage))
	b.Set(SlotBestDay, FormatBestDay(ind.BestDay))
	b.Set(SlotMonthTotal, FormatLiters(ind.MonthTotal))
	return &IndicatorsView{Date: ind.Date, Slots: b, Failed: ind.Failed}
}

// ActivityItem は最近の活動の1行。
type ActivityItem struct {
	ID           string  `json:"id"`
	Date         string  `json:"date"`
	Shift        string  `json:"shift"`
	ShiftLabel   string  `json:"shiftLabel"`
	Volume       float64 `json:"volume"`
	VolumeLabel  string  `json:"volumeLabel"`
	CreatorName  string  `json:"creatorName"`
	RelativeTime string  `json:"relativeTime"`
}

// Activity は最近の活動を表示用に変換する。作成者名がなければ "Usuário" とする。
func Activity(records []model.ProductionRecord, now time.Time) []ActivityItem {
	items := make([]ActivityItem, 0, len(records))
	for _, r := range records {
		creator := r.CreatorName
		if creator == "" {
			creator = "Usuário"
		}
		items = append(items, ActivityItem{
			ID:           r.ID,
			Date:         FormatDate(r.ProductionDate),
			Shift:        string(r.Shift),
			ShiftLabel:   r.Shift.Label(),
			Volume:       r.VolumeLiters,
			VolumeLabel:  FormatLiters(r.VolumeLiters),
			CreatorName:  creator,
			RelativeTime: RelativeTime(r.CreatedAt, now),
		})
	}
	return items
}

// HistoryItem は履歴の1行。
type HistoryItem struct {
	ID           string   `json:"id"`
	Date         string   `json:"date"`
	Shift        string   `json:"shift"`
	ShiftLabel   string   `json:"shiftLabel"`
	Volume       float64  `json:"volume"`
	VolumeLabel  string   `json:"volumeLabel"`
	Temperature  *float64 `json:"temperature,omitempty"`
	Observations string   `json:"observations,omitempty"`
	CreatorName  string   `json:"creatorName"`
	IsToday      bool     `json:"isToday"`
}

// History は履歴を表示用に変換する。
func History(entries []dashboard.HistoryEntry) []HistoryItem {
	items := make([]HistoryItem, 0, len(entries))
	for _, e := range entries {
		r := e.Record
		items = append(items, HistoryItem{
			ID:           r.ID,
			Date:         FormatDate(r.ProductionDate),
			Shift:        string(r.Shift),
			ShiftLabel:   r.Shift.Label(),
			Volume:       r.VolumeLiters,
			VolumeLabel:  FormatLiters(r.VolumeLiters),
			Temperature:  r.Temperature,
			Observations: r.Observations,
			CreatorName:  r.CreatorName,
			IsToday:      e.IsToday,
		})
	}
	return items
}

// ChartView はグラフのデータ系列。
type ChartView struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

// Chart は日次合計をラベルと値の系列に変換する。
func Chart(points []model.DailyVolume) *ChartView {
	view := &ChartView{Labels: make([]string, 0, len(points)), Data: make([]float64, 0, len(points))}
	for _, p := range points {
		view.Labels = append(view.Labels, ChartLabel(p.Date))
		view.Data = append(view.Data, p.Liters)
	}
	return view
}

// SecondaryView は副アカウント設定画面のレスポンス。
type SecondaryView struct {
	HasSecondary  bool   `json:"hasSecondary"`
	SwitchEnabled bool   `json:"switchEnabled"`
	Slots         *Board `json:"slots"`
}

// Secondary は副アカウントの状態をスロットに配置する。
func Secondary(status *model.SecondaryAccountStatus) *SecondaryView {
	b := NewBoard(SecondarySlots...)
	if status.HasSecondary {
		b.Set(SlotSecondaryName, status.SecondaryName)
		b.Set(SlotSecondaryRole, string(status.SecondaryRole))
		b.Set(SlotSecondaryActive, strconv.FormatBool(status.IsActive))
	}
	b.Set(SlotSwitchButton, strconv.FormatBool(status.SwitchEnabled))
	return &SecondaryView{HasSecondary: status.HasSecondary, SwitchEnabled: status.SwitchEnabled, Slots: b}
}

// ProfileView はプロフィール画面のレスポンス。
type ProfileView struct {
	UserID          string     `json:"userId"`
	Role            model.Role `json:"role"`
	ProfilePhotoURL string     `json:"profilePhotoUrl,omitempty"`
	IsSecondary     bool       `json:"isSecondary"`
	Slots           *Board     `json:"slots"`
}

// Profile はプロフィールをスロットに配置する。
func Profile(p *profile.Profile) *ProfileView {
	b := NewBoard(ProfileSlots...)
	b.Set(SlotProfileName, p.Name)
	b.Set(SlotProfileEmail, p.Email)
	b.Set(SlotProfileWhatsApp, p.WhatsApp)
	b.Set(SlotFarmName, p.FarmName)
	return &ProfileView{
		UserID:          p.UserID,
		Role:            p.Role,
		ProfilePhotoURL: p.ProfilePhotoURL,
		IsSecondary:     p.IsSecondary,
		Slots:           b,
	}
}
