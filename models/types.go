// models/types.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type Doctor struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Bio           string  `json:"bio"`
	ImageURL      string  `json:"image_url"`
	Exp           int     `json:"exp"`
	TotalPatients int     `json:"total_patients"`
	OnlineFee     float64 `json:"online_fee"`
	VisitFee      float64 `json:"visit_fee"`
	Specialties   string  `json:"specialties"`
	Password      string  `json:"-"`
}

type ClinicAffiliation struct {
	ClinicName string  `json:"clinic_name"`
	ClinicFee  float64 `json:"clinic_fee"`
}

type Review struct {
	Rating      int    `json:"rating"`
	Comment     string `json:"comment"`
	PatientName string `json:"patient_name"`
	DaysAgo     int    `json:"daysAgo"`
}

type AvailabilitySlot struct {
	AvailableDate string `json:"available_date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
}

// DoctorDetail is the full profile served by GET /doctors/{id}.
type DoctorDetail struct {
	Doctor
	Clinics      []ClinicAffiliation `json:"clinics"`
	Reviews      []Review            `json:"reviews"`
	Availability []AvailabilitySlot  `json:"availability"`
}

type Specialty struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Patient struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	DOB      string `json:"dob,omitempty"`
	Password string `json:"-"`
}

type Clinic struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

type Appointment struct {
	ID              int    `json:"id"`
	PatientID       int    `json:"patient_id"`
	DoctorID        int    `json:"doctor_id"`
	DoctorName      string `json:"doctor_name"`
	AppointmentDate string `json:"appointment_date"`
	TimeSlot        string `json:"time_slot"`
	Reason          string `json:"reason"`
	Status          string `json:"status"`
}

// FlexInt decodes a JSON number, a numeric string or null.
// The frontend sends ids from route params and localStorage as strings.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	v, err := parseFlex(data)
	if err != nil {
		return err
	}
	if v == "" {
		*f = 0
		return nil
	}
	// Fractions, exponents and out-of-range values are rejected, never
	// truncated into some other id.
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid integer %q", v)
	}
	*f = FlexInt(n)
	return nil
}

// FlexFloat decodes a JSON number, a numeric string or null.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	v, err := parseFlex(data)
	if err != nil {
		return err
	}
	if v == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", v)
	}
	*f = FlexFloat(n)
	return nil
}

func parseFlex(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return StripQuotes(s), nil
	}
	return string(data), nil
}

// StripQuotes removes one pair of SQL-style single quotes left around
// exported values and trims surrounding whitespace.
func StripQuotes(s string) string {
	s = strings.TrimPrefix(s, "'")
	s = strings.TrimSuffix(s, "'")
	return strings.TrimSpace(s)
}
