package model

import "time"

// DefaultFarmName は農場名を取得できない場合の表示名。
const DefaultFarmName = "Minha Fazenda"

// Farm はテナント境界となる農場を表す。
// すべてのユーザーと生産記録はちょうど1つの農場に属する。
type Farm struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
