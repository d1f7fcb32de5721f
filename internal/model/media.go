package model

import "errors"

const (
	MaxCoverSizeBytes = 8 * 1024 * 1024
	CoverWidth        = 600
	CoverHeight       = 900
	CoverFolder       = "covers"
	CoverExt          = ".jpg"
	CoverCacheControl = "public, max-age=31536000" // 1 year
	CoverPresignTTLS  = 900
)

// Supported image content types for upload validation
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeGIF  = "image/gif"
	ContentTypeWebP = "image/webp"
)

var allowedImageTypes = map[string]struct{}{
	ContentTypeJPEG: {},
	ContentTypePNG:  {},
	ContentTypeGIF:  {},
	ContentTypeWebP: {},
}

// Error codes for HTTP responses
const (
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeInvalidImageType = "INVALID_IMAGE_TYPE"
)

// Domain errors for media operations
var (
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidImageType = errors.New("invalid image type")
	ErrMediaDisabled    = errors.New("media storage is not configured")
)

// UploadResult is where an uploaded cover ended up.
// URL is public, Key is the object key inside the bucket.
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// PresignCoverRequest asks for a direct-to-bucket upload URL.
type PresignCoverRequest struct {
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size"`
}

// PresignCoverResponse returns upload details; the client PUTs the bytes to
// UploadURL and then lists the book with PublicURL as cover_url.
type PresignCoverResponse struct {
	UploadURL  string `json:"upload_url"`
	PublicURL  string `json:"public_url"`
	Key        string `json:"key"`
	ExpiresInS int    `json:"expires_in"`
}

// IsAllowedImageType reports if the provided content type is supported
func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[contentType]
	return ok
}
