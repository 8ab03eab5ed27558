// models/doctor.go
package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const doctorColumns = `
	d.id,
	d.name,
	d.email,
	COALESCE(d.bio, ''),
	COALESCE(d.image_url, ''),
	COALESCE(d.exp, 0),
	COALESCE(d.total_patients, 0),
	COALESCE(d.online_fee, 0),
	COALESCE(d.visit_fee, 0),
	COALESCE(GROUP_CONCAT(DISTINCT s.name ORDER BY s.id SEPARATOR ', '), '') AS specialties`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDoctor(row rowScanner, doctor *Doctor) error {
	return row.Scan(
		&doctor.ID,
		&doctor.Name,
		&doctor.Email,
		&doctor.Bio,
		&doctor.ImageURL,
		&doctor.Exp,
		&doctor.TotalPatients,
		&doctor.OnlineFee,
		&doctor.VisitFee,
		&doctor.Specialties,
	)
}

// ListDoctors returns one page of doctors with their joined specialty
// names. The search filter runs on the aggregated row so the specialty
// string of a match stays complete.
func (s *MySQLStore) ListDoctors(ctx context.Context, q DoctorQuery) ([]Doctor, error) {
	query := `
        SELECT ` + doctorColumns + `
        FROM doctors d
        LEFT JOIN doctor_specialties ds ON d.id = ds.doctor_id
        LEFT JOIN specialties s ON ds.specialty_id = s.id
        GROUP BY d.id`

	var args []interface{}
	if q.Search != "" {
		pattern := likePattern(q.Search)
		query += `
        HAVING LOWER(d.name) LIKE ? OR LOWER(specialties) LIKE ?`
		args = append(args, pattern, pattern)
	}
	query += `
        ORDER BY d.id
        LIMIT ? OFFSET ?`
	args = append(args, q.Limit, q.Offset())

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	doctors := []Doctor{}
	for rows.Next() {
		var doctor Doctor
		if err := scanDoctor(rows, &doctor); err != nil {
			return nil, err
		}
		doctors = append(doctors, doctor)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return doctors, nil
}

// GetDoctor loads the doctor row followed by clinics, the five most recent
// reviews and the next five availability slots.
func (s *MySQLStore) GetDoctor(ctx context.Context, id int) (*DoctorDetail, error) {
	query := `
        SELECT ` + doctorColumns + `
        FROM doctors d
        LEFT JOIN doctor_specialties ds ON d.id = ds.doctor_id
        LEFT JOIN specialties s ON ds.specialty_id = s.id
        WHERE d.id = ?
        GROUP BY d.id`

	detail := DoctorDetail{
		Clinics:      []ClinicAffiliation{},
		Reviews:      []Review{},
		Availability: []AvailabilitySlot{},
	}
	if err := scanDoctor(s.DB.QueryRowContext(ctx, query, id), &detail.Doctor); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var err error
	if detail.Clinics, err = s.doctorClinics(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to load clinics: %w", err)
	}
	if detail.Reviews, err = s.doctorReviews(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to load reviews: %w", err)
	}
	if detail.Availability, err = s.doctorAvailability(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to load availability: %w", err)
	}

	return &detail, nil
}

func (s *MySQLStore) doctorClinics(ctx context.Context, doctorID int) ([]ClinicAffiliation, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT dc.clinic_name, COALESCE(dc.clinic_fee, 0)
        FROM doctor_clinic dc
        WHERE dc.doctor_id = ?
        ORDER BY dc.id`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clinics := []ClinicAffiliation{}
	for rows.Next() {
		var c ClinicAffiliation
		if err := rows.Scan(&c.ClinicName, &c.ClinicFee); err != nil {
			return nil, err
		}
		clinics = append(clinics, c)
	}
	return clinics, rows.Err()
}

func (s *MySQLStore) doctorReviews(ctx context.Context, doctorID int) ([]Review, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT r.rating, COALESCE(r.comment, ''), p.name, DATEDIFF(CURDATE(), r.created_at)
        FROM reviews r
        JOIN patients p ON r.patient_id = p.id
        WHERE r.doctor_id = ?
        ORDER BY r.created_at DESC, r.id DESC
        LIMIT 5`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []Review{}
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.Rating, &r.Comment, &r.PatientName, &r.DaysAgo); err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func (s *MySQLStore) doctorAvailability(ctx context.Context, doctorID int) ([]AvailabilitySlot, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT
            DATE_FORMAT(a.available_date, '%Y-%m-%d'),
            TIME_FORMAT(a.start_time, '%H:%i'),
            TIME_FORMAT(a.end_time, '%H:%i')
        FROM availability a
        WHERE a.doctor_id = ? AND a.available_date >= CURDATE()
        ORDER BY a.available_date ASC, a.start_time ASC
        LIMIT 5`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := []AvailabilitySlot{}
	for rows.Next() {
		var a AvailabilitySlot
		if err := rows.Scan(&a.AvailableDate, &a.StartTime, &a.EndTime); err != nil {
			return nil, err
		}
		slots = append(slots, a)
	}
	return slots, rows.Err()
}

func (s *MySQLStore) ListSpecialties(ctx context.Context) ([]Specialty, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, name FROM specialties ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	specialties := []Specialty{}
	for rows.Next() {
		var sp Specialty
		if err := rows.Scan(&sp.ID, &sp.Name); err != nil {
			return nil, err
		}
		specialties = append(specialties, sp)
	}
	return specialties, rows.Err()
}

// CreateDoctor inserts the doctor and, when specialtyID is set, its
// specialty link in one transaction. doctor.Password must already be hashed.
func (s *MySQLStore) CreateDoctor(ctx context.Context, doctor *Doctor, specialtyID int) (int64, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
        INSERT INTO doctors (name, email, password, bio, image_url, exp, total_patients, online_fee, visit_fee)
        VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		doctor.Name,
		doctor.Email,
		doctor.Password,
		doctor.Bio,
		doctor.ImageURL,
		doctor.Exp,
		doctor.OnlineFee,
		doctor.VisitFee,
	)
	if err != nil {
		if isMySQLError(err, errDupEntry) {
			return 0, ErrDuplicateEmail
		}
		return 0, err
	}

	doctorID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	if specialtyID > 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO doctor_specialties (doctor_id, specialty_id) VALUES (?, ?)`,
			doctorID, specialtyID); err != nil {
			return 0, fmt.Errorf("failed to link specialty: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return doctorID, nil
}

func (s *MySQLStore) GetDoctorByEmail(ctx context.Context, email string) (*Doctor, error) {
	var doctor Doctor
	err := s.DB.QueryRowContext(ctx, `
        SELECT id, name, email, COALESCE(password, '')
        FROM doctors
        WHERE email = ?`, email).Scan(&doctor.ID, &doctor.Name, &doctor.Email, &doctor.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doctor, nil
}
