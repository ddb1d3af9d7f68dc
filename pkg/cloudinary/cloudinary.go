package cloudinary

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// QRUploader hosts a PIX QR image and returns its public URL.
type QRUploader interface {
	UploadQRImage(ctx context.Context, image, externalID string) (string, error)
}

// Eager transformation for QR codes: keep it lossless and small.
const qrEager = "f_png,w_400,c_fit"

var eagerAsyncFalse = false

type clientImpl struct {
	cloudName string
	folder    string
	uploader  *uploader.API
}

// AsDataURI turns a bare base64 PNG into a data URI; URLs and data URIs pass through.
func AsDataURI(image string) string {
	if strings.HasPrefix(image, "data:") || strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") {
		return image
	}
	return "data:image/png;base64," + image
}

// BuildQRImageURL returns the delivery URL for an uploaded QR public id.
func BuildQRImageURL(cloudName, publicID string) string {
	return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/%s/%s.png", cloudName, qrEager, publicID)
}

// UploadQRImage uploads the gateway's QR image (base64, data URI or URL) under
// the external id, overwriting any earlier upload for the same charge.
func (c *clientImpl) UploadQRImage(ctx context.Context, image, externalID string) (string, error) {
	if image == "" {
		return "", fmt.Errorf("cloudinary: empty qr image for %s", externalID)
	}
	overwrite := true
	result, err := c.uploader.Upload(ctx, AsDataURI(image), uploader.UploadParams{
		Folder:     c.folder,
		PublicID:   externalID,
		Overwrite:  &overwrite,
		Eager:      qrEager,
		EagerAsync: &eagerAsyncFalse,
	})
	if err != nil {
		return "", err
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary: %s", result.Error.Message)
	}
	if len(result.Eager) > 0 && result.Eager[0].SecureURL != "" {
		return result.Eager[0].SecureURL, nil
	}
	if result.SecureURL != "" {
		return result.SecureURL, nil
	}
	return BuildQRImageURL(c.cloudName, result.PublicID), nil
}

// NewQRUploader builds a QRUploader from Cloudinary cloud name, API key, and secret.
func NewQRUploader(cloudName, apiKey, apiSecret, folder string) (QRUploader, error) {
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	up, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return &clientImpl{
		cloudName: cloudName,
		folder:    folder,
		uploader:  up,
	}, nil
}
