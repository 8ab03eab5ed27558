// models/store.go
package models

import (
	"context"
	"errors"
)

const (
	ModeMySQL    = "mysql"
	ModeFallback = "fallback"

	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"

	DefaultDoctorImage = "/img/doc.png"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrNoClinicsTable = errors.New("clinics table missing")
	ErrSlotTaken      = errors.New("time slot already booked")
)

// DoctorQuery carries the already normalized pagination and search input
// of the doctor listing.
type DoctorQuery struct {
	Page   int
	Limit  int
	Search string // lower-cased, trimmed; empty matches everything
}

// Offset returns the number of rows skipped before the requested page.
func (q DoctorQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Store is the data contract shared by the MySQL backend and the
// in-memory fallback. Both implementations must answer every call the
// same way for the same data.
type Store interface {
	Mode() string

	ListDoctors(ctx context.Context, q DoctorQuery) ([]Doctor, error)
	GetDoctor(ctx context.Context, id int) (*DoctorDetail, error)
	ListSpecialties(ctx context.Context) ([]Specialty, error)

	CreatePatient(ctx context.Context, patient *Patient) (int64, error)
	GetPatientByEmail(ctx context.Context, email string) (*Patient, error)
	CreateDoctor(ctx context.Context, doctor *Doctor, specialtyID int) (int64, error)
	GetDoctorByEmail(ctx context.Context, email string) (*Doctor, error)
	CreateClinic(ctx context.Context, clinic *Clinic) (int64, error)

	BookedTimes(ctx context.Context, doctorID int, date string) ([]string, error)
	CreateAppointment(ctx context.Context, appointment *Appointment) (int64, error)
	ListPatientAppointments(ctx context.Context, patientID int) ([]Appointment, error)
	CancelAppointment(ctx context.Context, id int) error

	Close() error
}
