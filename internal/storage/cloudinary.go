package storage

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"
)

// CloudinaryConfig holds the credentials for signed raw uploads.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// CloudinaryStorage uploads objects to Cloudinary as raw resources.
type CloudinaryStorage struct {
	cfg      CloudinaryConfig
	client   *http.Client
	endpoint string
	now      func() time.Time
}

// NewCloudinaryStorage creates a CloudinaryStorage.
func NewCloudinaryStorage(cfg CloudinaryConfig) (*CloudinaryStorage, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary cloud name, api key and api secret are required")
	}
	return &CloudinaryStorage{
		cfg:      cfg,
		client:   &http.Client{Timeout: 30 * time.Second},
		endpoint: "https://api.cloudinary.com/v1_1/" + cfg.CloudName + "/raw/upload",
		now:      time.Now,
	}, nil
}

// Store uploads data with public_id derived from objectPath.
func (s *CloudinaryStorage) Store(ctx context.Context, objectPath string, data []byte) (string, error) {
	rel, err := cleanPath(objectPath)
	if err != nil {
		return "", err
	}
	publicID := rel
	if s.cfg.Folder != "" {
		publicID = strings.Trim(s.cfg.Folder, "/") + "/" + rel
	}
	timestamp := strconv.FormatInt(s.now().Unix(), 10)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fields := map[string]string{
		"api_key":   s.cfg.APIKey,
		"public_id": publicID,
		"timestamp": timestamp,
		"signature": s.sign(publicID, timestamp),
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return "", err
		}
	}
	part, err := w.CreateFormFile("file", path.Base(rel))
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	res, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("cloudinary upload failed: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read cloudinary response: %w", err)
	}

	var out struct {
		SecureURL string `json:"secure_url"`
		URL       string `json:"url"`
		Error     struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("failed to parse cloudinary response (status %d): %w", res.StatusCode, err)
	}
	if res.StatusCode != http.StatusOK || out.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload rejected (status %d): %s", res.StatusCode, out.Error.Message)
	}
	if out.SecureURL != "" {
		return out.SecureURL, nil
	}
	if out.URL == "" {
		return "", fmt.Errorf("cloudinary returned no URL")
	}
	return out.URL, nil
}

// sign computes the SHA-1 signature over the sorted signed parameters.
func (s *CloudinaryStorage) sign(publicID, timestamp string) string {
	payload := "public_id=" + publicID + "&timestamp=" + timestamp + s.cfg.APISecret
	return fmt.Sprintf("%x", sha1.Sum([]byte(payload)))
}
