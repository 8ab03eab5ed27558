// models/appointment.go
package models

import (
	"context"
	"database/sql"
	"errors"
)

func (s *MySQLStore) BookedTimes(ctx context.Context, doctorID int, date string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT time_slot
        FROM appointments
        WHERE doctor_id = ? AND appointment_date = ?
        ORDER BY time_slot`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	times := []string{}
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, err
		}
		times = append(times, slot)
	}
	return times, rows.Err()
}

// CreateAppointment books a slot after checking the doctor exists and the
// slot is still free. The uq_slot key settles concurrent bookings that both
// pass the count.
func (s *MySQLStore) CreateAppointment(ctx context.Context, appointment *Appointment) (int64, error) {
	var doctorName string
	err := s.DB.QueryRowContext(ctx, `SELECT name FROM doctors WHERE id = ?`, appointment.DoctorID).Scan(&doctorName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}

	var taken int
	err = s.DB.QueryRowContext(ctx, `
        SELECT COUNT(*)
        FROM appointments
        WHERE doctor_id = ? AND appointment_date = ? AND time_slot = ?`,
		appointment.DoctorID, appointment.AppointmentDate, appointment.TimeSlot).Scan(&taken)
	if err != nil {
		return 0, err
	}
	if taken > 0 {
		return 0, ErrSlotTaken
	}

	result, err := s.DB.ExecContext(ctx, `
        INSERT INTO appointments (patient_id, doctor_id, appointment_date, time_slot, reason)
        VALUES (?, ?, ?, ?, ?)`,
		appointment.PatientID,
		appointment.DoctorID,
		appointment.AppointmentDate,
		appointment.TimeSlot,
		appointment.Reason,
	)
	if err != nil {
		if isMySQLError(err, errDupEntry) {
			return 0, ErrSlotTaken
		}
		return 0, err
	}

	appointment.DoctorName = doctorName
	appointment.Status = StatusConfirmed
	return result.LastInsertId()
}

// ListPatientAppointments returns a patient's appointments, most recent
// date first and earliest slot first within a day.
func (s *MySQLStore) ListPatientAppointments(ctx context.Context, patientID int) ([]Appointment, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT
            a.id,
            a.patient_id,
            a.doctor_id,
            d.name AS doctor_name,
            DATE_FORMAT(a.appointment_date, '%Y-%m-%d'),
            a.time_slot,
            COALESCE(a.reason, '')
        FROM appointments a
        JOIN doctors d ON a.doctor_id = d.id
        WHERE a.patient_id = ?
        ORDER BY a.appointment_date DESC, a.time_slot ASC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	appointments := []Appointment{}
	for rows.Next() {
		a := Appointment{Status: StatusConfirmed}
		if err := rows.Scan(
			&a.ID,
			&a.PatientID,
			&a.DoctorID,
			&a.DoctorName,
			&a.AppointmentDate,
			&a.TimeSlot,
			&a.Reason,
		); err != nil {
			return nil, err
		}
		appointments = append(appointments, a)
	}
	return appointments, rows.Err()
}

// CancelAppointment removes the row; a cancelled appointment leaves no
// trace in DB mode.
func (s *MySQLStore) CancelAppointment(ctx context.Context, id int) error {
	result, err := s.DB.ExecContext(ctx, `DELETE FROM appointments WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
