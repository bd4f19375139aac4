package repository

import sq "github.com/Masterminds/squirrel"

// psql はPostgreSQL用プレースホルダ（$1, $2, ...）を使うクエリビルダ。
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
