package presenter

import (
	"fmt"
	"math"
	"time"

	"github.com/hitoshi/lactech/internal/model"
)

// dateLayoutBR はpt-BRの日付表記。
const dateLayoutBR = "02/01/2006"

var weekdaysBR = [...]string{"dom", "seg", "ter", "qua", "qui", "sex", "sáb"}

// FormatLiters は生産量を小数1桁のリットル表記にする。NaNや無限大は0として扱う。
func FormatLiters(liters float64) string {
	if math.IsNaN(liters) || math.IsInf(liters, 0) {
		liters = 0
	}
	return fmt.Sprintf("%.1fL", liters)
}

// FormatDate はYYYY-MM-DDをdd/mm/yyyyに変換する。解釈できなければそのまま返す。
func FormatDate(date string) string {
	t, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format(dateLayoutBR)
}

// FormatBestDay は最高日を "35.0L (01/06/2024)" の形式で返す。データがなければ "0.0L"。
func FormatBestDay(best *model.DailyVolume) string {
	if best == nil {
		return FormatLiters(0)
	}
	return fmt.Sprintf("%s (%s)", FormatLiters(best.Liters), FormatDate(best.Date))
}

// ChartLabel はグラフの横軸ラベル（例: "sáb 01"）を返す。
func ChartLabel(date string) string {
	t, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%s %02d", weekdaysBR[t.Weekday()], t.Day())
}

// RelativeTime はnowから見た経過時間のラベルを返す。
func RelativeTime(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "Agora mesmo"
	case diff < time.Hour:
		return fmt.Sprintf("%dm atrás", int(diff/time.Minute))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh atrás", int(diff/time.Hour))
	default:
		return fmt.Sprintf("%dd atrás", int(diff/(24*time.Hour)))
	}
}
