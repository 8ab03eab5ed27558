// models/clinic.go
package models

import "context"

// CreateClinic registers a clinic. Deployments created before the clinics
// table existed report ErrNoClinicsTable instead of a generic failure.
func (s *MySQLStore) CreateClinic(ctx context.Context, clinic *Clinic) (int64, error) {
	result, err := s.DB.ExecContext(ctx,
		`INSERT INTO clinics (name, address, phone, email) VALUES (?, ?, ?, ?)`,
		clinic.Name,
		clinic.Address,
		clinic.Phone,
		clinic.Email,
	)
	if err != nil {
		if isMySQLError(err, errNoSuchTable) {
			return 0, ErrNoClinicsTable
		}
		return 0, err
	}
	return result.LastInsertId()
}
