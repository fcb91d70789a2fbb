package vfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/flowrun/flowrun/internal/client"
)

// Adapter talks to the remote virtual file system. All operations go
// through the shared authenticated client; errors carry the HTTP status
// they were produced with.
type Adapter struct {
	client *client.Client
}

// StatusError is a VFS operation failure bundled with the HTTP status
// code the server answered with.
type StatusError struct {
	Op     string
	Path   string
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("vfs %s %s: status %d: %s", e.Op, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("vfs %s %s: status %d", e.Op, e.Path, e.Status)
}

// Entry is a single item of a directory listing.
type Entry struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	IsDirectory *bool   `json:"is_directory,omitempty"`
	Children    []Entry `json:"children,omitempty"`
}

// IsDir reports whether the entry describes a directory, accepting both
// the "type" and the "is_directory" envelope variants.
func (e Entry) IsDir() bool {
	if e.IsDirectory != nil {
		return *e.IsDirectory
	}
	return e.Type == "directory"
}

// New creates a VFS adapter on top of an authenticated client.
func New(c *client.Client) *Adapter {
	return &Adapter{client: c}
}

// Read fetches a file's content envelope and returns the content string.
func (a *Adapter) Read(ctx context.Context, path string) (string, error) {
	resp, body, err := a.client.GetJSON(ctx, "/api/virtual-files/read"+path)
	if err != nil {
		return "", fmt.Errorf("vfs read %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Op: "read", Path: path, Status: resp.StatusCode}
	}

	var envelope struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("vfs read %s: decoding envelope: %w", path, err)
	}
	return envelope.Content, nil
}

// Exists checks a path via the info endpoint. Any non-200 answer means
// "does not exist"; only transport failures are reported as errors.
func (a *Adapter) Exists(ctx context.Context, path string) (bool, error) {
	resp, _, err := a.client.GetJSON(ctx, "/api/virtual-files/info"+path)
	if err != nil {
		return false, fmt.Errorf("vfs info %s: %w", path, err)
	}
	return resp.StatusCode == http.StatusOK, nil
}

// Download fetches the raw bytes of a file. Used for binary loads only.
func (a *Adapter) Download(ctx context.Context, path string) ([]byte, error) {
	resp, err := a.client.Do(ctx, http.MethodGet, "/api/virtual-files/download"+path, nil, "")
	if err != nil {
		return nil, fmt.Errorf("vfs download %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Op: "download", Path: path, Status: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

// List returns the entries of a directory. Recursion is the caller's
// job: re-invoke List on child directories when Children is absent.
func (a *Adapter) List(ctx context.Context, path string) ([]Entry, error) {
	resp, body, err := a.client.GetJSON(ctx, "/api/virtual-files/list?path="+path)
	if err != nil {
		return nil, fmt.Errorf("vfs list %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Op: "list", Path: path, Status: resp.StatusCode, Detail: errorDetail(body)}
	}

	var envelope struct {
		Items []Entry `json:"items"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("vfs list %s: decoding envelope: %w", path, err)
	}
	return envelope.Items, nil
}

// CreateFile writes a text file under parent. Overwrite semantics are
// emulated by the caller via Delete + CreateFile.
func (a *Adapter) CreateFile(ctx context.Context, parent, name, content string) error {
	payload, _ := json.Marshal(map[string]string{
		"name":        name,
		"parent_path": parent,
		"content":     content,
	})

	resp, err := a.client.Do(ctx, http.MethodPost, "/api/virtual-files/create-file", payload, "application/json")
	if err != nil {
		return fmt.Errorf("vfs create-file %s/%s: %w", parent, name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &StatusError{Op: "create-file", Path: parent + "/" + name, Status: resp.StatusCode, Detail: errorDetail(body)}
	}
	return nil
}

// UploadFile writes raw bytes under parent via the multipart endpoint.
func (a *Adapter) UploadFile(ctx context.Context, parent, name string, data []byte) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("vfs upload-file %s/%s: %w", parent, name, err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("vfs upload-file %s/%s: %w", parent, name, err)
	}
	if err := writer.WriteField("parent_path", parent); err != nil {
		return fmt.Errorf("vfs upload-file %s/%s: %w", parent, name, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("vfs upload-file %s/%s: %w", parent, name, err)
	}

	resp, err := a.client.DoMultipart(ctx, "/api/virtual-files/upload-file", buf.Bytes(), writer.FormDataContentType())
	if err != nil {
		return fmt.Errorf("vfs upload-file %s/%s: %w", parent, name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &StatusError{Op: "upload-file", Path: parent + "/" + name, Status: resp.StatusCode, Detail: errorDetail(body)}
	}
	return nil
}

// Delete removes a file or directory.
func (a *Adapter) Delete(ctx context.Context, path string) error {
	resp, err := a.client.Do(ctx, http.MethodDelete, "/api/virtual-files/delete"+path, nil, "")
	if err != nil {
		return fmt.Errorf("vfs delete %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &StatusError{Op: "delete", Path: path, Status: resp.StatusCode, Detail: errorDetail(body)}
	}
	return nil
}

// CreateFolder creates a directory under parent.
func (a *Adapter) CreateFolder(ctx context.Context, parent, name string) error {
	payload, _ := json.Marshal(map[string]string{
		"name":        name,
		"parent_path": parent,
	})

	resp, err := a.client.Do(ctx, http.MethodPost, "/api/virtual-files/create-folder", payload, "application/json")
	if err != nil {
		return fmt.Errorf("vfs create-folder %s/%s: %w", parent, name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &StatusError{Op: "create-folder", Path: parent + "/" + name, Status: resp.StatusCode, Detail: errorDetail(body)}
	}
	return nil
}

func errorDetail(body []byte) string {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		if envelope.Error != "" {
			return envelope.Error
		}
		return envelope.Message
	}
	return ""
}
