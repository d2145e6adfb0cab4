package utils

import "database/sql"

// ToSQLStr creates new sql str instance
func ToSQLStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// FromSQLStr returns string from sql.NullString
func FromSQLStr(sqlStr sql.NullString) string {
	if sqlStr.Valid {
		return sqlStr.String
	}
	return ""
}

// ToSQLInt64 creates new sql int instance from an optional value
func ToSQLInt64(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

// FromSQLInt64 returns optional int from sql.NullInt64
func FromSQLInt64(sqlData sql.NullInt64) *int64 {
	if sqlData.Valid {
		v := sqlData.Int64
		return &v
	}
	return nil
}
