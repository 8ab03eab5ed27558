// models/patient.go
package models

import (
	"context"
	"database/sql"
	"errors"
)

// CreatePatient stores a patient whose password is already hashed.
func (s *MySQLStore) CreatePatient(ctx context.Context, patient *Patient) (int64, error) {
	result, err := s.DB.ExecContext(ctx,
		`INSERT INTO patients (name, email, password, dob) VALUES (?, ?, ?, ?)`,
		patient.Username,
		patient.Email,
		patient.Password,
		nullIfEmpty(patient.DOB),
	)
	if err != nil {
		if isMySQLError(err, errDupEntry) {
			return 0, ErrDuplicateEmail
		}
		return 0, err
	}
	return result.LastInsertId()
}

func (s *MySQLStore) GetPatientByEmail(ctx context.Context, email string) (*Patient, error) {
	var patient Patient
	err := s.DB.QueryRowContext(ctx, `
        SELECT id, name, email, password
        FROM patients
        WHERE email = ?`, email).Scan(&patient.ID, &patient.Username, &patient.Email, &patient.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &patient, nil
}
