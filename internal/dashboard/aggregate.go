package dashboard

import (
	"sort"

	"github.com/hitoshi/lactech/internal/model"
)

// DailyTotals は記録を暦日ごとに合計し、日付の昇順で返す。
func DailyTotals(records []model.ProductionRecord) []model.DailyVolume {
	sums := make(map[string]float64)
	for _, r := range records {
		sums[r.ProductionDate] += r.VolumeLiters
	}

	totals := make([]model.DailyVolume, 0, len(sums))
	for date, liters := range sums {
		totals = append(totals, model.DailyVolume{Date: date, Liters: liters})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Date < totals[j].Date })
	return totals
}

// WeeklyAverage はデータのある日の日次合計の平均を返す。
// 個々の記録の平均ではない。データがなければ0。
func WeeklyAverage(totals []model.DailyVolume) float64 {
	if len(totals) == 0 {
		return 0
	}
	var sum float64
	for _, t := range totals {
		sum += t.Liters
	}
	return sum / float64(len(totals))
}

// BestDay は日次合計が最大の日を返す。同点の場合は最も早い日付を採用する。
// データがなければfalseを返す。
func BestDay(totals []model.DailyVolume) (model.DailyVolume, bool) {
	var best model.DailyVolume
	found := false
	for _, t := range totals {
		if !found || t.Liters > best.Liters || (t.Liters == best.Liters && t.Date < best.Date) {
			best = t
			found = true
		}
	}
	return best, found
}

// MonthTotal は日次合計の総和を返す。
func MonthTotal(totals []model.DailyVolume) float64 {
	var sum float64
	for _, t := range totals {
		sum += t.Liters
	}
	return sum
}

func sumVolumes(records []model.ProductionRecord) float64 {
	var sum float64
	for _, r := range records {
		sum += r.VolumeLiters
	}
	return sum
}

// FillDays はdaysの各日付に対応する合計を返す。データのない日は0で埋める。
func FillDays(totals []model.DailyVolume, days []string) []model.DailyVolume {
	byDate := make(map[string]float64, len(totals))
	for _, t := range totals {
		byDate[t.Date] = t.Liters
	}
	points := make([]model.DailyVolume, len(days))
	for i, d := range days {
		points[i] = model.DailyVolume{Date: d, Liters: byDate[d]}
	}
	return points
}

// SortHistory は生産日降順、作成日時降順、シフト順（朝 → 午後 → 夜）で並べ替える。
func SortHistory(records []model.ProductionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.ProductionDate != b.ProductionDate {
			return a.ProductionDate > b.ProductionDate
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.Shift.Order() < b.Shift.Order()
	})
}
