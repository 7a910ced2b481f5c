package models

import "time"

// DocumentType classifies what a student uploaded
type DocumentType string

const (
	DocumentRegistrationSlip        DocumentType = "REGISTRATION_SLIP"
	DocumentFeesReceipt             DocumentType = "FEES_RECEIPT"
	DocumentDepartmentalDuesReceipt DocumentType = "DEPARTMENTAL_DUES_RECEIPT"
)

func (d DocumentType) Valid() bool {
	switch d {
	case DocumentRegistrationSlip, DocumentFeesReceipt, DocumentDepartmentalDuesReceipt:
		return true
	}
	return false
}

// UploadStatus only ever moves PENDING -> VERIFIED
type UploadStatus string

const (
	UploadPending  UploadStatus = "PENDING"
	UploadVerified UploadStatus = "VERIFIED"
)

// Upload is a document a student attached to a term
type Upload struct {
	ID             int64        `json:"id" db:"id"`
	StudentID      int64        `json:"studentId" db:"student_id"`
	RegistrationID *int64       `json:"registrationId,omitempty" db:"registration_id"`
	Semester       Semester     `json:"semester" db:"semester"`
	Level          int          `json:"level" db:"level"`
	DocumentType   DocumentType `json:"documentType" db:"document_type"`
	FileName       string       `json:"fileName" db:"file_name"`
	FilePath       string       `json:"-" db:"file_path"`
	FileURL        string       `json:"fileUrl" db:"file_url"`
	FileSize       int64        `json:"fileSize" db:"file_size"`
	MimeType       string       `json:"mimeType" db:"mime_type"`
	Status         UploadStatus `json:"status" db:"status"`
	VerifiedBy     *int64       `json:"verifiedBy,omitempty" db:"verified_by"`
	VerifiedAt     *time.Time   `json:"verifiedAt,omitempty" db:"verified_at"`
	CreatedAt      time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time    `json:"updatedAt" db:"updated_at"`
}

// Replaceable reports whether the owner may still swap the file at now.
func (u *Upload) Replaceable(now time.Time, window time.Duration) bool {
	return u.Status == UploadPending && now.Before(u.CreatedAt.Add(window))
}
