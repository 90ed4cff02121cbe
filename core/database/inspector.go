package database

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ColumnInfo matches the output of SHOW COLUMNS
type ColumnInfo struct {
	Field   string
	Type    string
	Null    string
	Key     string
	Default *string // NULL default
	Extra   string
}

// IsKey reports whether the column is part of the primary key.
func (c ColumnInfo) IsKey() bool {
	return c.Key == "PRI"
}

// IsIdentity reports whether the backend generates the column's value.
func (c ColumnInfo) IsIdentity() bool {
	return strings.Contains(strings.ToLower(c.Extra), "auto_increment")
}

// GetTableColumns retrieves the column definitions for a given table in
// declaration order. Types are lowercased; names keep their case. A missing
// table yields no columns on sqlite and an error on MySQL.
func GetTableColumns(ctx context.Context, db *gorm.DB, tableName string) ([]ColumnInfo, error) {
	db = db.WithContext(ctx)
	var columns []ColumnInfo

	if db.Dialector.Name() == DriverSQLite {
		type sqliteColumn struct {
			Cid       int
			Name      string
			Type      string
			Notnull   int
			DfltValue *string
			Pk        int
		}
		var sqliteCols []sqliteColumn
		pragma := fmt.Sprintf("PRAGMA table_info('%s')", strings.ReplaceAll(tableName, "'", "''"))
		if err := db.Raw(pragma).Scan(&sqliteCols).Error; err != nil {
			return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
		}

		keys := 0
		for _, col := range sqliteCols {
			if col.Pk > 0 {
				keys++
			}
		}
		for _, col := range sqliteCols {
			info := ColumnInfo{
				Field:   col.Name,
				Type:    strings.ToLower(col.Type),
				Null:    "YES",
				Default: col.DfltValue,
			}
			if col.Notnull != 0 || col.Pk > 0 {
				info.Null = "NO"
			}
			if col.Pk > 0 {
				info.Key = "PRI"
				// a lone INTEGER primary key aliases the rowid
				if keys == 1 && info.Type == "integer" {
					info.Extra = "auto_increment"
				}
			}
			columns = append(columns, info)
		}
		return columns, nil
	}

	query := fmt.Sprintf("SHOW COLUMNS FROM `%s`", strings.ReplaceAll(tableName, "`", "``"))
	if err := db.Raw(query).Scan(&columns).Error; err != nil {
		return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
	}
	for i := range columns {
		columns[i].Type = strings.ToLower(columns[i].Type)
	}
	return columns, nil
}
