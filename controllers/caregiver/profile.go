package caregiver

import (
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/carenest/controllers/respond"
	"github.com/meinhoongagan/carenest/db"
	"github.com/meinhoongagan/carenest/middleware"
	"github.com/meinhoongagan/carenest/services"
	"github.com/meinhoongagan/carenest/utils"
	"github.com/meinhoongagan/carenest/validation"
)

const maxUploadSize = 10 << 20

var (
	uploaderMu sync.RWMutex
	uploader   utils.AssetUploader
)

// SetUploader installs the asset store used by picture and document uploads.
func SetUploader(u utils.AssetUploader) {
	uploaderMu.Lock()
	uploader = u
	uploaderMu.Unlock()
}

func currentUploader() utils.AssetUploader {
	uploaderMu.RLock()
	defer uploaderMu.RUnlock()
	return uploader
}

// GetProfile retrieves the caller's caregiver profile
func GetProfile(c *fiber.Ctx) error {
	profile, err := services.GetCaregiverProfile(db.GetDB(), middleware.CurrentActor(c).ID)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(profile)
}

func CreateProfile(c *fiber.Ctx) error {
	var input services.CaregiverProfileInput
	if err := c.BodyParser(&input); err != nil {
		return respond.BadBody(c, err)
	}
	profile, err := services.CreateCaregiverProfile(db.GetDB(), middleware.CurrentActor(c), input)
	if err != nil {
		return respond.Error(c, err)
	}
	return respond.Created(c, profile)
}

// UpdateProfile updates the caller's profile, creating it on first use
func UpdateProfile(c *fiber.Ctx) error {
	var input services.CaregiverProfileInput
	if err := c.BodyParser(&input); err != nil {
		return respond.BadBody(c, err)
	}
	profile, err := services.UpdateCaregiverProfile(db.GetDB(), middleware.CurrentActor(c), input)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Profile updated successfully",
		"profile": profile,
	})
}

// UploadPicture stores a JPEG/PNG profile picture.
func UploadPicture(c *fiber.Ctx) error {
	return upload(c, "profile_picture", "caregiver_profiles", "profile_image_url", func(name string) bool {
		return utils.IsImage(name)
	})
}

// UploadDocument stores an identity document (image or PDF).
func UploadDocument(c *fiber.Ctx) error {
	return upload(c, "document", "caregiver_documents", "id_document_url", func(name string) bool {
		return utils.IsImage(name) || strings.HasSuffix(strings.ToLower(name), ".pdf")
	})
}

func upload(c *fiber.Ctx, field, folder, column string, allowed func(string) bool) error {
	u := currentUploader()
	if u == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(utils.ErrorResponse{
			Message: "File uploads are not configured",
			Error:   "uploader unavailable",
		})
	}

	header, err := c.FormFile(field)
	if err != nil {
		return respond.Error(c, validation.Violations{field: "required"})
	}
	if !allowed(header.Filename) {
		return respond.Error(c, validation.Violations{field: "unsupported_file_type"})
	}
	if header.Size > maxUploadSize {
		return respond.Error(c, validation.Violations{field: "file_too_large"})
	}

	file, err := header.Open()
	if err != nil {
		return respond.Error(c, err)
	}
	defer file.Close()

	url, err := u.Upload(c.UserContext(), file, header.Filename, folder)
	if err != nil {
		return respond.Error(c, err)
	}
	profile, err := services.SetCaregiverAsset(db.GetDB(), middleware.CurrentActor(c), column, url)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Upload successful",
		"url":     url,
		"profile": profile,
	})
}

// Dashboard returns earnings and workload for the caller.
func Dashboard(c *fiber.Ctx) error {
	stats, err := services.CaregiverDashboard(db.GetDB(), middleware.CurrentActor(c), time.Now().UTC())
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(stats)
}
