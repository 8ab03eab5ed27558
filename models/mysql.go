// models/mysql.go
package models

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// MySQL error numbers the store distinguishes.
const (
	errDupEntry    = 1062
	errNoSuchTable = 1146
)

// MySQLStore implements Store with parameterized queries against the
// doctor_appointment schema (see schema.sql).
type MySQLStore struct {
	DB *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{DB: db}
}

func (s *MySQLStore) Mode() string { return ModeMySQL }

func (s *MySQLStore) Close() error {
	return s.DB.Close()
}

func isMySQLError(err error, number uint16) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == number
	}
	return false
}

// likePattern wraps term in % wildcards, escaping LIKE metacharacters.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
