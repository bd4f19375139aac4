// Package presenter はダッシュボードや設定画面の表示スロットに値を整形して配置する。
package presenter

import (
	"encoding/json"
	"log/slog"
	"sort"
)

// 表示スロット名。
const (
	SlotTodayVolume = "todayVolume"
	SlotWeekAverage = "weekAverage"
	SlotBestDay     = "bestDay"
	SlotMonthTotal  = "monthTotal"

	SlotProfileName     = "profileName"
	SlotProfileEmail    = "profileEmail"
	SlotProfileWhatsApp = "profileWhatsApp"
	SlotFarmName        = "farmName"

	SlotSecondaryName   = "secondaryName"
	SlotSecondaryRole   = "secondaryRole"
	SlotSecondaryActive = "secondaryActive"
	SlotSwitchButton    = "switchAccountButton"
)

// IndicatorSlots はダッシュボードの指標スロット。
var IndicatorSlots = []string{SlotTodayVolume, SlotWeekAverage, SlotBestDay, SlotMonthTotal}

// ProfileSlots はプロフィール表示のスロット。
var ProfileSlots = []string{SlotProfileName, SlotProfileEmail, SlotProfileWhatsApp, SlotFarmName}

// SecondarySlots は副アカウント設定のスロット。
var SecondarySlots = []string{SlotSecondaryName, SlotSecondaryRole, SlotSecondaryActive, SlotSwitchButton}

// Board は名前付き表示スロットの集合。
// 存在しないスロットへの書き込みはログに残して無視する。
type Board struct {
	values map[string]string
}

// NewBoard は指定したスロットを空文字で持つBoardを生成する。
func NewBoard(slots ...string) *Board {
	values := make(map[string]string, len(slots))
	for _, s := range slots {
		values[s] = ""
	}
	return &Board{values: values}
}

// Set はスロットに値を設定する。未知のスロットならfalseを返す。
func (b *Board) Set(slot, value string) bool {
	if _, ok := b.values[slot]; !ok {
		slog.Warn("display slot not found, skipping",
			slog.String("slot", slot),
		)
		return false
	}
	b.values[slot] = value
	return true
}

// Get はスロットの値を返す。
func (b *Board) Get(slot string) (string, bool) {
	v, ok := b.values[slot]
	return v, ok
}

// Slots はスロット名を昇順で返す。
func (b *Board) Slots() []string {
	names := make([]string, 0, len(b.values))
	for name := range b.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON はスロット名をキーとするオブジェクトとして出力する。
func (b *Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.values)
}
