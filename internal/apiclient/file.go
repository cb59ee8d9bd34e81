package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudchat/internal/model"
)

// FileClient вызывает файловый сервис: upload (multipart, поле "file") и download.
type FileClient struct {
	base
}

func NewFileClient(baseURL string, httpClient *http.Client) *FileClient {
	return &FileClient{base: newBase("files", baseURL, orDefault(httpClient))}
}

// Upload отправляет содержимое r под именем filename и возвращает метаданные с fileId.
func (c *FileClient) Upload(ctx context.Context, token, filename string, r io.Reader) (*model.FileMetadata, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("files upload: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("files upload: copy: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("files upload: %w", err)
	}
	var meta model.FileMetadata
	err = c.sendJSON(ctx, request{
		op:          "upload",
		method:      http.MethodPost,
		path:        "/upload",
		token:       token,
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, &meta)
	if err != nil {
		return nil, err
	}
	if meta.FileID == "" {
		return nil, fmt.Errorf("files upload: response has no fileId")
	}
	return &meta, nil
}

// UploadFile загружает файл с диска.
func (c *FileClient) UploadFile(ctx context.Context, token, path string) (*model.FileMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("files upload: %w", err)
	}
	defer f.Close()
	return c.Upload(ctx, token, path, f)
}

// DownloadURL — ссылка на скачивание вложения. Пустая строка, если URL сервиса не задан.
func (c *FileClient) DownloadURL(fileID string) string {
	u, err := c.endpoint("/download/" + url.PathEscape(fileID))
	if err != nil {
		return ""
	}
	return u
}

// Download пишет содержимое вложения в w и возвращает число записанных байт.
func (c *FileClient) Download(ctx context.Context, token, fileID string, w io.Writer) (int64, error) {
	u, err := c.endpoint("/download/" + url.PathEscape(fileID))
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("files download: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("files download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return 0, &APIError{Service: c.service, Op: "download", Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return io.Copy(w, resp.Body)
}

// Metadata возвращает метаданные вложения (GET /metadata/{fileId}).
func (c *FileClient) Metadata(ctx context.Context, token, fileID string) (*model.FileMetadata, error) {
	var meta model.FileMetadata
	path := "/metadata/" + url.PathEscape(fileID)
	if err := c.sendJSON(ctx, request{op: "metadata", method: http.MethodGet, path: path, token: token}, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
