package utils

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// CloudinaryConfig holds Cloudinary configuration
type CloudinaryConfig struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadPreset string
}

// AssetUploader stores an uploaded file and returns its public URL.
type AssetUploader interface {
	Upload(ctx context.Context, file interface{}, filename, folder string) (string, error)
}

// CloudinaryUploader implements AssetUploader on Cloudinary.
type CloudinaryUploader struct {
	cld          *cloudinary.Cloudinary
	uploadPreset string
}

// NewCloudinaryUploader initializes the Cloudinary client
func NewCloudinaryUploader(cfg CloudinaryConfig) (*CloudinaryUploader, error) {
	if cfg.CloudName == "" {
		return nil, fmt.Errorf("cloudinary is not configured")
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, err
	}
	return &CloudinaryUploader{cld: cld, uploadPreset: cfg.UploadPreset}, nil
}

// Upload sends file to Cloudinary under a fresh public id and returns the secure URL.
func (u *CloudinaryUploader) Upload(ctx context.Context, file interface{}, filename, folder string) (string, error) {
	params := uploader.UploadParams{
		PublicID:     AssetPublicID(filename),
		Folder:       folder,
		UploadPreset: u.uploadPreset,
	}
	if IsImage(filename) {
		params.Transformation = "c_thumb,w_200,h_200"
	}

	resp, err := u.cld.Upload.Upload(ctx, file, params)
	if err != nil {
		return "", err
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("cloudinary: %s", resp.Error.Message)
	}
	return resp.SecureURL, nil
}

// AssetPublicID derives a collision-free public id from an uploaded file name.
func AssetPublicID(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '-'
	}, base)
	if base == "" || base == "." {
		base = "file"
	}
	return base + "-" + uuid.NewString()
}

// IsImage reports whether filename has an image extension we resize.
func IsImage(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	}
	return false
}
