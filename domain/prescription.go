package domain

import "time"

// Prescription statuses.
const (
	PrescriptionPending    = "pending"
	PrescriptionProcessing = "processing"
	PrescriptionFulfilled  = "fulfilled"
)

type Prescription struct {
	ID                 int64              `db:"id" json:"id"`
	CustomerID         int64              `db:"customer_id" json:"customer_id"`
	PrescriptionNumber string             `db:"prescription_number" json:"prescription_number"`
	DoctorName         string             `db:"doctor_name" json:"doctor_name"`
	PrescriptionDate   string             `db:"prescription_date" json:"prescription_date"`
	FileURL            string             `db:"file_url" json:"file_url"`
	Status             string             `db:"status" json:"status"`
	Notes              string             `db:"notes" json:"notes"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`
	Items              []PrescriptionItem `db:"-" json:"items,omitempty"`
}

type PrescriptionItem struct {
	ID             int64  `db:"id" json:"id"`
	PrescriptionID int64  `db:"prescription_id" json:"prescription_id"`
	MedicineID     int64  `db:"medicine_id" json:"medicine_id"`
	MedicineName   string `db:"medicine_name" json:"medicine_name,omitempty"`
	Quantity       int64  `db:"quantity" json:"quantity"`
	Dosage         string `db:"dosage" json:"dosage"`
	Status         string `db:"status" json:"status"`
}

// PrescriptionSummary is the list view of a prescription.
type PrescriptionSummary struct {
	Prescription
	CustomerName   string `db:"customer_name" json:"customer_name"`
	CustomerPhone  string `db:"customer_phone" json:"customer_phone"`
	ItemCount      int64  `db:"item_count" json:"item_count"`
	FulfilledCount int64  `db:"fulfilled_count" json:"fulfilled_count"`
}

type PrescriptionFilter struct {
	Search string
	Status string
}

type PrescriptionItemRequest struct {
	MedicineID int64  `json:"medicine_id" validate:"required,gt=0"`
	Quantity   int64  `json:"quantity" validate:"gte=0"`
	Dosage     string `json:"dosage"`
}

type PrescriptionRequest struct {
	CustomerID       int64                     `json:"customer_id" validate:"required,gt=0"`
	DoctorName       string                    `json:"doctor_name"`
	PrescriptionDate string                    `json:"prescription_date" validate:"omitempty,datetime=2006-01-02"`
	FileURL          string                    `json:"file_url" validate:"omitempty,url"`
	Notes            string                    `json:"notes"`
	Items            []PrescriptionItemRequest `json:"items" validate:"dive"`
}

type PrescriptionPatch struct {
	DoctorName *string `json:"doctor_name"`
	Status     *string `json:"status" validate:"omitempty,oneof=pending processing fulfilled"`
	Notes      *string `json:"notes"`
}
