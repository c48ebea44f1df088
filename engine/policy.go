package engine

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// UploadPolicy is a named file acceptance policy. The document-request
// gateway and the self-service intake path carry different limits and
// allow-lists; the two are deliberately not unified.
type UploadPolicy struct {
	Name     string
	MaxBytes int64
	Allowed  map[string]struct{}
}

// DocumentRequestUploadPolicy governs the public token upload gateway.
var DocumentRequestUploadPolicy = UploadPolicy{
	Name:     "document_request",
	MaxBytes: 25 << 20,
	Allowed: map[string]struct{}{
		"application/pdf": {},
		"image/jpeg":      {},
		"image/png":       {},
		"image/heic":      {},
		"image/heif":      {},
	},
}

// IntakeUploadPolicy governs the self-service intake upload path.
var IntakeUploadPolicy = UploadPolicy{
	Name:     "intake",
	MaxBytes: 10 << 20,
	Allowed: map[string]struct{}{
		"application/pdf": {},
		"image/jpeg":      {},
		"image/png":       {},
	},
}

// Validate checks the declared mime type and size against the policy.
func (p UploadPolicy) Validate(mimeType string, size int64) error {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if _, ok := p.Allowed[mt]; !ok {
		return validationf("file type %q is not accepted", mimeType)
	}
	if size <= 0 {
		return validationf("file is empty")
	}
	if size > p.MaxBytes {
		return validationf("file exceeds the %d MiB limit", p.MaxBytes>>20)
	}
	return nil
}

// SanitizeFileName strips every character outside [A-Za-z0-9._-] from
// the base name of the client-supplied filename.
func SanitizeFileName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" || s == "." || s == ".." {
		return "upload"
	}
	return s
}

// StoragePath builds the object key for a gateway upload:
// document-requests/{requestId}/{unixMillis}-{sanitizedFileName}
func StoragePath(requestID uint, at time.Time, fileName string) string {
	return fmt.Sprintf("document-requests/%d/%d-%s", requestID, at.UnixMilli(), SanitizeFileName(fileName))
}

// IntakeStoragePath builds the object key for an intake upload.
func IntakeStoragePath(linkID uint, at time.Time, fileName string) string {
	return fmt.Sprintf("intake/%d/%d-%s", linkID, at.UnixMilli(), SanitizeFileName(fileName))
}
