package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeTXT  FileType = "txt"
	FileTypeDOCX FileType = "docx"
	FileTypeMD   FileType = "md"
)

// Document is an ingested corpus item. Its chunks live in the vector index under
// VectorStoreID and are addressed by the documentId metadata key.
type Document struct {
	ID            string    `json:"id"`
	Filename      string    `json:"filename"`
	StoragePath   string    `json:"storage_path"`
	FileType      FileType  `json:"file_type"`
	ChunkCount    int       `json:"chunk_count"`
	VectorStoreID string    `json:"vector_store_id"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

// DetectFileType resolves the declared type from the filename extension first and
// the MIME type second.
func DetectFileType(mimeType, filename string) (FileType, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	mime := strings.ToLower(mimeType)

	switch {
	case ext == "pdf" || strings.Contains(mime, "pdf"):
		return FileTypePDF, nil
	case ext == "docx" || strings.Contains(mime, "wordprocessingml"):
		return FileTypeDOCX, nil
	case ext == "md" || strings.Contains(mime, "markdown"):
		return FileTypeMD, nil
	case ext == "txt" || strings.Contains(mime, "text/plain"):
		return FileTypeTXT, nil
	}

	detected := ext
	if detected == "" {
		detected = mime
	}
	return "", WrapError(
		ErrInvalidInput,
		"detect file type",
		fmt.Errorf("unsupported file type %q; supported: PDF, TXT, DOCX, MD", detected),
	)
}
