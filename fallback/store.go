// fallback/store.go
package fallback

import (
	"context"
	"sort"
	"strings"
	"sync"

	"doctorAppointment/models"
)

// Store serves the models.Store contract from memory. It is what the
// server runs on when no MySQL database is reachable. Patients,
// appointments and clinics live only as long as the process.
type Store struct {
	mu sync.RWMutex

	doctors           []models.Doctor
	specialties       []models.Specialty
	doctorSpecialties map[int][]int
	clinics           map[int][]models.ClinicAffiliation
	reviews           map[int][]models.Review
	availability      map[int][]models.AvailabilitySlot

	patients     []models.Patient
	registered   []models.Clinic
	appointments []models.Appointment

	nextPatientID     int
	nextAppointmentID int
	nextClinicID      int
}

// Load reads the fixture at path and builds a store from it.
func Load(path string) (*Store, error) {
	data, err := ReadData(path)
	if err != nil {
		return nil, err
	}
	return New(data), nil
}

// New builds a store from parsed fixture data. Doctors are numbered from 1
// in fixture order; specialties without an explicit id take their position.
func New(data *Data) *Store {
	s := &Store{
		doctorSpecialties: make(map[int][]int),
		clinics:           make(map[int][]models.ClinicAffiliation),
		reviews:           make(map[int][]models.Review),
		availability:      make(map[int][]models.AvailabilitySlot),
		nextPatientID:     1,
		nextAppointmentID: 1,
		nextClinicID:      1,
	}

	for i, sp := range data.Specialties {
		id := int(sp.ID)
		if id == 0 {
			id = i + 1
		}
		s.specialties = append(s.specialties, models.Specialty{ID: id, Name: models.StripQuotes(sp.Name)})
	}

	for _, ds := range data.DoctorSpecialties {
		doctorID := int(ds.DoctorID)
		s.doctorSpecialties[doctorID] = append(s.doctorSpecialties[doctorID], int(ds.SpecialtyID))
	}

	for _, c := range data.DoctorClinic {
		doctorID := int(c.DoctorID)
		s.clinics[doctorID] = append(s.clinics[doctorID], models.ClinicAffiliation{
			ClinicName: models.StripQuotes(c.ClinicName),
			ClinicFee:  float64(c.ClinicFee),
		})
	}

	for _, r := range data.Reviews {
		doctorID := int(r.DoctorID)
		s.reviews[doctorID] = append(s.reviews[doctorID], models.Review{
			Rating:      int(r.Rating),
			Comment:     models.StripQuotes(r.Comment),
			PatientName: "Patient",
		})
	}

	for _, a := range data.Availability {
		doctorID := int(a.DoctorID)
		s.availability[doctorID] = append(s.availability[doctorID], models.AvailabilitySlot{
			AvailableDate: models.StripQuotes(a.AvailableDate),
			StartTime:     models.StripQuotes(a.StartTime),
			EndTime:       models.StripQuotes(a.EndTime),
		})
	}
	for _, slots := range s.availability {
		sort.SliceStable(slots, func(i, j int) bool {
			if slots[i].AvailableDate != slots[j].AvailableDate {
				return slots[i].AvailableDate < slots[j].AvailableDate
			}
			return slots[i].StartTime < slots[j].StartTime
		})
	}

	for i, d := range data.Doctors {
		imageURL := models.StripQuotes(d.ImageURL)
		if imageURL == "" {
			imageURL = models.DefaultDoctorImage
		}
		doctor := models.Doctor{
			ID:            i + 1,
			Name:          models.StripQuotes(d.Name),
			Email:         models.StripQuotes(d.Email),
			Bio:           models.StripQuotes(d.Bio),
			ImageURL:      imageURL,
			Exp:           int(d.Exp),
			TotalPatients: int(d.TotalPatients),
			OnlineFee:     float64(d.OnlineFee),
			VisitFee:      float64(d.VisitFee),
		}
		doctor.Specialties = s.specialtyNames(doctor.ID)
		s.doctors = append(s.doctors, doctor)
	}

	return s
}

func (s *Store) Mode() string { return models.ModeFallback }

func (s *Store) Close() error { return nil }

// specialtyNames joins the specialty names linked to a doctor. Callers hold mu.
func (s *Store) specialtyNames(doctorID int) string {
	var names []string
	for _, specialtyID := range s.doctorSpecialties[doctorID] {
		for _, sp := range s.specialties {
			if sp.ID == specialtyID && sp.Name != "" {
				names = append(names, sp.Name)
				break
			}
		}
	}
	return strings.Join(names, ", ")
}

// findDoctor returns the index of the doctor with id, or -1. Callers hold mu.
func (s *Store) findDoctor(id int) int {
	for i := range s.doctors {
		if s.doctors[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) ListDoctors(_ context.Context, q models.DoctorQuery) ([]models.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]models.Doctor, 0, len(s.doctors))
	for _, d := range s.doctors {
		if q.Search == "" ||
			strings.Contains(strings.ToLower(d.Name), q.Search) ||
			strings.Contains(strings.ToLower(d.Specialties), q.Search) {
			matched = append(matched, d)
		}
	}

	start := q.Offset()
	if start >= len(matched) {
		return []models.Doctor{}, nil
	}
	end := start + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (s *Store) GetDoctor(_ context.Context, id int) (*models.DoctorDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.findDoctor(id)
	if idx < 0 {
		return nil, models.ErrNotFound
	}

	detail := &models.DoctorDetail{
		Doctor:       s.doctors[idx],
		Clinics:      append([]models.ClinicAffiliation{}, s.clinics[id]...),
		Reviews:      append([]models.Review{}, s.reviews[id]...),
		Availability: append([]models.AvailabilitySlot{}, s.availability[id]...),
	}
	return detail, nil
}

func (s *Store) ListSpecialties(_ context.Context) ([]models.Specialty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.Specialty{}, s.specialties...), nil
}

func (s *Store) CreatePatient(_ context.Context, patient *models.Patient) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.patients {
		if strings.EqualFold(p.Email, patient.Email) {
			return 0, models.ErrDuplicateEmail
		}
	}

	p := *patient
	p.ID = s.nextPatientID
	s.nextPatientID++
	s.patients = append(s.patients, p)
	return int64(p.ID), nil
}

func (s *Store) GetPatientByEmail(_ context.Context, email string) (*models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.patients {
		if strings.EqualFold(p.Email, email) {
			patient := p
			return &patient, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *Store) CreateDoctor(_ context.Context, doctor *models.Doctor, specialtyID int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.doctors {
		if d.Email != "" && strings.EqualFold(d.Email, doctor.Email) {
			return 0, models.ErrDuplicateEmail
		}
	}

	d := *doctor
	d.ID = len(s.doctors) + 1
	d.TotalPatients = 0
	if specialtyID > 0 {
		s.doctorSpecialties[d.ID] = append(s.doctorSpecialties[d.ID], specialtyID)
	}
	d.Specialties = s.specialtyNames(d.ID)
	s.doctors = append(s.doctors, d)
	return int64(d.ID), nil
}

func (s *Store) GetDoctorByEmail(_ context.Context, email string) (*models.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.doctors {
		if d.Email != "" && strings.EqualFold(d.Email, email) {
			doctor := d
			return &doctor, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *Store) CreateClinic(_ context.Context, clinic *models.Clinic) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *clinic
	c.ID = s.nextClinicID
	s.nextClinicID++
	s.registered = append(s.registered, c)
	return int64(c.ID), nil
}

func (s *Store) BookedTimes(_ context.Context, doctorID int, date string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	times := []string{}
	for _, a := range s.appointments {
		if a.DoctorID == doctorID && a.AppointmentDate == date && a.Status != models.StatusCancelled {
			times = append(times, a.TimeSlot)
		}
	}
	sort.Strings(times)
	return times, nil
}

func (s *Store) CreateAppointment(_ context.Context, appointment *models.Appointment) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findDoctor(appointment.DoctorID)
	if idx < 0 {
		return 0, models.ErrNotFound
	}

	for _, a := range s.appointments {
		if a.DoctorID == appointment.DoctorID &&
			a.AppointmentDate == appointment.AppointmentDate &&
			a.TimeSlot == appointment.TimeSlot &&
			a.Status != models.StatusCancelled {
			return 0, models.ErrSlotTaken
		}
	}

	appointment.ID = s.nextAppointmentID
	s.nextAppointmentID++
	appointment.DoctorName = s.doctors[idx].Name
	appointment.Status = models.StatusConfirmed
	s.appointments = append(s.appointments, *appointment)
	return int64(appointment.ID), nil
}

func (s *Store) ListPatientAppointments(_ context.Context, patientID int) ([]models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := []models.Appointment{}
	for _, a := range s.appointments {
		if a.PatientID == patientID && a.Status != models.StatusCancelled {
			list = append(list, a)
		}
	}

	sort.SliceStable(list, func(i, j int) bool {
		if list[i].AppointmentDate != list[j].AppointmentDate {
			return list[i].AppointmentDate > list[j].AppointmentDate
		}
		return list[i].TimeSlot < list[j].TimeSlot
	})
	return list, nil
}

// CancelAppointment marks the appointment cancelled instead of removing it.
func (s *Store) CancelAppointment(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.appointments {
		if s.appointments[i].ID == id && s.appointments[i].Status != models.StatusCancelled {
			s.appointments[i].Status = models.StatusCancelled
			return nil
		}
	}
	return models.ErrNotFound
}
