package fileserver

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/cloudchat/internal/logger"
	"github.com/cloudchat/internal/model"
)

// ErrNotFound — нет файла с таким fileId.
var ErrNotFound = errors.New("file not found")

// Блокируем только опасные расширения (исполняемые/скрипты). Остальные — разрешены.
var BlockedExt = map[string]bool{
	".exe": true, ".sh": true, ".js": true, ".bat": true, ".cmd": true,
	".php": true, ".py": true, ".rb": true,
}

// Service хранит файлы в UploadDir: содержимое {fileId}.gz и метаданные {fileId}.json.
type Service struct {
	UploadDir     string
	MaxUploadSize int64
	now           func() time.Time
}

// New создаёт сервис с заданным каталогом и лимитом размера (в байтах).
func New(uploadDir string, maxUploadSize int64) *Service {
	return &Service{UploadDir: uploadDir, MaxUploadSize: maxUploadSize, now: time.Now}
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("fileserver writeJSON: %v", err)
	}
}

func (s *Service) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// validID пропускает только fileId вида uuid, чтобы id не мог выйти за UploadDir.
func validID(fileID string) bool {
	_, err := uuid.Parse(fileID)
	return err == nil
}

func (s *Service) contentPath(fileID string) string {
	return filepath.Join(s.UploadDir, fileID+".gz")
}

func (s *Service) metaPath(fileID string) string {
	return filepath.Join(s.UploadDir, fileID+".json")
}

// Upload обрабатывает POST multipart/form-data с полем "file" и отвечает 201 + FileMetadata.
func (s *Service) Upload(w http.ResponseWriter, r *http.Request, uploader string) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadSize)

	if err := r.ParseMultipartForm(s.MaxUploadSize); err != nil {
		s.writeError(w, http.StatusBadRequest, "file too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	// В ряде клиентов/прокси пробел в имени кодируется как "+".
	rawFilename := strings.ReplaceAll(header.Filename, "+", " ")
	ext := strings.ToLower(filepath.Ext(rawFilename))
	if BlockedExt[ext] {
		s.writeError(w, http.StatusBadRequest, "file type not allowed")
		return
	}

	head := make([]byte, 512)
	n, _ := io.ReadAtLeast(file, head, len(head))
	head = head[:n]
	knownType, ok := checkType(ext, head)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "file content does not match type")
		return
	}

	if err := os.MkdirAll(s.UploadDir, 0o755); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to create upload dir")
		return
	}

	fileID := uuid.New().String()
	dstPath := s.contentPath(fileID)
	size, err := s.store(ctx, dstPath, head, file)
	if err != nil {
		os.Remove(dstPath)
		if ctx.Err() != nil {
			return
		}
		logger.Errorf("fileserver: save %s: %v", fileID, err)
		s.writeError(w, http.StatusInternalServerError, "failed to save file")
		return
	}

	displayName := safeFilename(filepath.Base(rawFilename))
	if displayName == "" {
		displayName = fileID + ext
	}
	contentType := header.Header.Get("Content-Type")
	if knownType != "" {
		contentType = knownType
	}
	if contentType == "" {
		contentType = http.DetectContentType(head)
	}

	meta := model.FileMetadata{
		FileID:           fileID,
		OriginalFilename: displayName,
		ContentType:      contentType,
		Size:             size,
		UploaderUsername: uploader,
		UploadTimestamp:  s.now().UnixMilli(),
	}
	data, _ := json.Marshal(meta)
	if err := os.WriteFile(s.metaPath(fileID), data, 0o644); err != nil {
		os.Remove(dstPath)
		s.writeError(w, http.StatusInternalServerError, "failed to save file")
		return
	}
	logger.Infof("fileserver: %s uploaded %s (%d bytes) as %s", uploader, displayName, size, fileID)
	s.writeJSON(w, http.StatusCreated, meta)
}

// store пишет head и остаток src в сжатом виде; возвращает размер исходных данных.
func (s *Service) store(ctx context.Context, dstPath string, head []byte, src io.Reader) (int64, error) {
	dst, err := os.Create(dstPath)
	if err != nil {
		return 0, err
	}
	gz := gzip.NewWriter(dst)
	cw := &countingWriter{w: gz}
	if _, err := cw.Write(head); err != nil {
		gz.Close()
		dst.Close()
		return 0, err
	}
	if err := copyWithContext(ctx, cw, src); err != nil {
		gz.Close()
		dst.Close()
		return 0, err
	}
	if err := gz.Close(); err != nil {
		dst.Close()
		return 0, err
	}
	return cw.n, dst.Close()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Metadata читает метаданные файла.
func (s *Service) Metadata(fileID string) (*model.FileMetadata, error) {
	if !validID(fileID) {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(s.metaPath(fileID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata %s: %w", fileID, err)
	}
	var meta model.FileMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata %s: %w", fileID, err)
	}
	return &meta, nil
}

// Serve отдаёт содержимое файла (разархивирует при отдаче) с исходным именем в Content-Disposition.
func (s *Service) Serve(w http.ResponseWriter, r *http.Request, fileID string) {
	meta, err := s.Metadata(fileID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Errorf("fileserver: %v", err)
		}
		s.writeError(w, http.StatusNotFound, "file not found")
		return
	}
	f, err := os.Open(s.contentPath(fileID))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "file not found")
		return
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to read file")
		return
	}
	defer gz.Close()

	if meta.ContentType != "" {
		w.Header().Set("Content-Type", meta.ContentType)
	}
	if safe := safeFilename(meta.OriginalFilename); safe != "" {
		disp := "attachment; filename*=UTF-8''" + url.QueryEscape(safe)
		if ascii := asciiFallbackFilename(safe); ascii == safe {
			disp = "attachment; filename=\"" + ascii + "\"; " + disp
		}
		w.Header().Set("Content-Disposition", disp)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, gz); err != nil && r.Context().Err() == nil {
		logger.Errorf("fileserver: serve %s: %v", fileID, err)
	}
}

// fileType — известный тип вложения: Content-Type и проверка сигнатуры по первым байтам.
type fileType struct {
	contentType string
	magic       func(head []byte) bool
}

func prefix(sig ...[]byte) func([]byte) bool {
	return func(head []byte) bool {
		for _, p := range sig {
			if bytes.HasPrefix(head, p) {
				return true
			}
		}
		return false
	}
}

var knownTypes = map[string]fileType{
	".jpg":  {"image/jpeg", prefix([]byte{0xFF, 0xD8, 0xFF})},
	".jpeg": {"image/jpeg", prefix([]byte{0xFF, 0xD8, 0xFF})},
	".png":  {"image/png", prefix([]byte("\x89PNG\r\n\x1a\n"))},
	".gif":  {"image/gif", prefix([]byte("GIF87a"), []byte("GIF89a"))},
	".webp": {"image/webp", func(h []byte) bool { return len(h) >= 12 && bytes.Equal(h[8:12], []byte("WEBP")) }},
	".pdf":  {"application/pdf", prefix([]byte("%PDF-"))},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", prefix([]byte("PK\x03\x04"), []byte("PK\x05\x06"))},
	".txt":  {"text/plain", nil},
}

// checkType сверяет сигнатуру для известных расширений и возвращает их Content-Type.
// Неизвестное расширение проходит с пустым типом.
func checkType(ext string, head []byte) (string, bool) {
	ft, ok := knownTypes[ext]
	if !ok {
		return "", true
	}
	if ft.magic != nil && !ft.magic(head) {
		return "", false
	}
	return ft.contentType, true
}

// safeFilename оставляет имя файла безопасным для Content-Disposition (без управляющих символов и кавычек).
// Поддерживается UTF-8, чтобы сохранять кириллицу и другие языки.
func safeFilename(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\r', '\n', '"', '\\', '/', '\x00':
			continue
		}
		if unicode.IsPrint(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// asciiFallbackFilename возвращает имя только из ASCII для legacy filename= в Content-Disposition.
// Пробелы и не-ASCII заменяются на подчёркивание, чтобы не появлялось "+" в предложенном имени.
func asciiFallbackFilename(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) error {
	buf := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("upload cancelled: %w", ctx.Err())
		default:
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read: %w", readErr)
		}
	}
}
