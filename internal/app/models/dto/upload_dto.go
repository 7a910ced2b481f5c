package dto

import "github.com/yigit/studentportal/internal/app/models"

// UploadDocumentRequest is the form part of a document upload
type UploadDocumentRequest struct {
	DocumentType models.DocumentType `form:"documentType" validate:"required,doctype"`
	Semester     models.Semester     `form:"semester" validate:"required,semester"`
	Level        int                 `form:"level" validate:"required,level"`
}

// UploadListResponse is a page of uploads
type UploadListResponse = Page[*models.Upload]
