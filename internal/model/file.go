package model

// FileMetadata — ответ файлового сервиса на upload.
type FileMetadata struct {
	FileID           string `json:"fileId"`
	OriginalFilename string `json:"originalFilename,omitempty"`
	ContentType      string `json:"contentType,omitempty"`
	Size             int64  `json:"size,omitempty"`
	UploaderUsername string `json:"uploaderUsername,omitempty"`
	UploadTimestamp  int64  `json:"uploadTimestamp,omitempty"`
}
