// Package dashboard は農場単位の生産量集計を提供する。
// すべての参照は農場IDで絞り込み、作成者IDでは絞り込まない。
package dashboard

import (
	"time"

	"github.com/hitoshi/lactech/internal/model"
)

// Window は両端を含む日付範囲（YYYY-MM-DD）。
type Window struct {
	From string
	To   string
}

// Windows はnow時点の集計期間。日付は農場のタイムゾーンで決める。
type Windows struct {
	Today string
	Week  Window // 今日を含む直近7日
	Month Window // 今月1日から今日まで
}

// WindowsAt はnowを農場のタイムゾーンに変換して集計期間を求める。
func WindowsAt(now time.Time, loc *time.Location) Windows {
	local := now.In(loc)
	y, m, d := local.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)

	return Windows{
		Today: today.Format(model.DateLayout),
		Week: Window{
			From: time.Date(y, m, d-6, 0, 0, 0, 0, loc).Format(model.DateLayout),
			To:   today.Format(model.DateLayout),
		},
		Month: Window{
			From: time.Date(y, m, 1, 0, 0, 0, 0, loc).Format(model.DateLayout),
			To:   today.Format(model.DateLayout),
		},
	}
}

// LastDays はtoを最終日とするn日分の日付を古い順に返す。
func LastDays(to string, n int) []string {
	end, err := time.Parse(model.DateLayout, to)
	if err != nil || n <= 0 {
		return nil
	}
	days := make([]string, n)
	for i := 0; i < n; i++ {
		days[i] = end.AddDate(0, 0, i-(n-1)).Format(model.DateLayout)
	}
	return days
}
