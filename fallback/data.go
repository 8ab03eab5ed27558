// fallback/data.go
package fallback

import (
	"encoding/json"
	"fmt"
	"os"

	"doctorAppointment/models"
)

// Data mirrors appointment_data.json, a table-per-key export of the MySQL
// schema. String values may still carry SQL single quotes.
type Data struct {
	Doctors           []doctorRecord       `json:"doctors"`
	DoctorClinic      []clinicRecord       `json:"doctor_clinic"`
	Specialties       []specialtyRecord    `json:"specialties"`
	DoctorSpecialties []doctorSpecialty    `json:"doctor_specialties"`
	Availability      []availabilityRecord `json:"availability"`
	Reviews           []reviewRecord       `json:"reviews"`
}

type doctorRecord struct {
	Name          string           `json:"name"`
	Email         string           `json:"email"`
	Bio           string           `json:"bio"`
	ImageURL      string           `json:"image_url"`
	Exp           models.FlexInt   `json:"exp"`
	TotalPatients models.FlexInt   `json:"total_patients"`
	OnlineFee     models.FlexFloat `json:"online_fee"`
	VisitFee      models.FlexFloat `json:"visit_fee"`
}

type clinicRecord struct {
	DoctorID   models.FlexInt   `json:"doctor_id"`
	ClinicName string           `json:"clinic_name"`
	ClinicFee  models.FlexFloat `json:"clinic_fee"`
}

type specialtyRecord struct {
	ID   models.FlexInt `json:"id"`
	Name string         `json:"name"`
}

type doctorSpecialty struct {
	DoctorID    models.FlexInt `json:"doctor_id"`
	SpecialtyID models.FlexInt `json:"specialty_id"`
}

type availabilityRecord struct {
	DoctorID      models.FlexInt `json:"doctor_id"`
	AvailableDate string         `json:"available_date"`
	StartTime     string         `json:"start_time"`
	EndTime       string         `json:"end_time"`
}

type reviewRecord struct {
	DoctorID models.FlexInt `json:"doctor_id"`
	Rating   models.FlexInt `json:"rating"`
	Comment  string         `json:"comment"`
}

// ReadData parses the fixture at path.
func ReadData(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fallback data: %w", err)
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse fallback data %s: %w", path, err)
	}
	return &data, nil
}
