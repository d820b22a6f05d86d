// =============================
// File: internal/metadata/ipfs.go
// =============================
package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// TokenMetadata is what gets pinned to IPFS and referenced by the token
// creation instruction. The URI embedded on-chain points at the JSON form
// of this struct.
type TokenMetadata struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Twitter     string `json:"twitter,omitempty"`
	Telegram    string `json:"telegram,omitempty"`
	Website     string `json:"website,omitempty"`
	ShowName    bool   `json:"showName"`
}

// Uploader pins token metadata and returns the URI to embed on-chain.
type Uploader interface {
	Upload(ctx context.Context, meta TokenMetadata, imagePath string) (string, error)
}

// IPFSUploader pins metadata through the pump.fun IPFS gateway.
type IPFSUploader struct {
	url    string
	http   *http.Client
	logger *zap.Logger
}

func NewIPFSUploader(url string, logger *zap.Logger) *IPFSUploader {
	return &IPFSUploader{
		url:    url,
		http:   &http.Client{Timeout: 60 * time.Second},
		logger: logger.Named("metadata"),
	}
}

type uploadResponse struct {
	MetadataURI string `json:"metadataUri"`
}

// Upload sends the metadata fields and the token image as one multipart
// request and returns the pinned metadata URI.
func (u *IPFSUploader) Upload(ctx context.Context, meta TokenMetadata, imagePath string) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := map[string]string{
		"name":        meta.Name,
		"symbol":      meta.Symbol,
		"description": meta.Description,
		"twitter":     meta.Twitter,
		"telegram":    meta.Telegram,
		"website":     meta.Website,
		"showName":    fmt.Sprintf("%t", meta.ShowName),
	}
	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(key, value); err != nil {
			return "", fmt.Errorf("write field %s: %w", key, err)
		}
	}

	if imagePath != "" {
		if err := attachImage(writer, imagePath); err != nil {
			return "", err
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := u.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("metadata upload failed with status %d: %s", resp.StatusCode, string(data))
	}

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if result.MetadataURI == "" {
		return "", fmt.Errorf("upload response missing metadata URI")
	}

	u.logger.Info("Metadata pinned",
		zap.String("symbol", meta.Symbol),
		zap.String("uri", result.MetadataURI))
	return result.MetadataURI, nil
}

func attachImage(writer *multipart.Writer, imagePath string) error {
	file, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	part, err := writer.CreateFormFile("file", filepath.Base(imagePath))
	if err != nil {
		return fmt.Errorf("create image part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copy image: %w", err)
	}
	return nil
}
