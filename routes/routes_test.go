package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/meinhoongagan/carenest/config"
	"github.com/meinhoongagan/carenest/controllers/caregiver"
	"github.com/meinhoongagan/carenest/models"
	"github.com/meinhoongagan/carenest/testutil"
	"github.com/meinhoongagan/carenest/utils"
)

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	conn := testutil.NewDB(t)
	testutil.UseGlobalDB(t, conn)

	cfg := &config.Config{
		JWTSecret:         "routes-test-secret",
		AccessTokenTTL:    time.Hour,
		RefreshTokenTTL:   24 * time.Hour,
		BookingRequestTTL: 48 * time.Hour,
		Timezone:          "UTC",
		CORSOrigins:       "*",
	}
	prev := config.Get()
	config.Set(cfg)
	t.Cleanup(func() { config.Set(prev) })

	return NewApp(cfg), conn
}

func tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	cfg := config.Get()
	pair, err := utils.IssueTokens(cfg.JWTSecret, user, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, time.Now())
	require.NoError(t, err)
	return pair.Token
}

func call(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(data, v), string(data))
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t)
	resp, _ := call(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegisterLoginAndMe(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := call(t, app, http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"email":     "New.Client@Example.com",
		"password":  "longenough",
		"user_type": "client",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var registered struct {
		Token        string      `json:"token"`
		RefreshToken string      `json:"refreshToken"`
		User         models.User `json:"user"`
	}
	decode(t, body, &registered)
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, "new.client@example.com", registered.User.Email)

	resp, body = call(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "new.client@example.com",
		"password": "longenough",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = call(t, app, http.MethodGet, "/api/auth/me", registered.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me models.User
	decode(t, body, &me)
	assert.True(t, me.ProfileCompleted)

	resp, _ = call(t, app, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = call(t, app, http.MethodGet, "/api/auth/me", registered.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = call(t, app, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": registered.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = call(t, app, http.MethodGet, "/api/auth/check-email?email=NEW.client@example.com", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"email":"new.client@example.com","exists":true}`, string(body))
}

func TestRegisterValidationAndDuplicates(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := call(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "not-an-email",
		"password": "short",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var errBody utils.ErrorResponse
	decode(t, body, &errBody)
	assert.Contains(t, errBody.Fields, "email")
	assert.Contains(t, errBody.Fields, "password")

	payload := map[string]string{"email": "dup@example.com", "password": "longenough"}
	resp, _ = call(t, app, http.MethodPost, "/api/auth/register", "", payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = call(t, app, http.MethodPost, "/api/auth/register", "", payload)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = call(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "boss@example.com", "password": "longenough", "user_type": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBookingRequestFlow(t *testing.T) {
	app, conn := newTestApp(t)
	client, _ := testutil.CreateClient(t, conn, "client@example.com", "Shelbyville")
	carer, _ := testutil.CreateCaregiver(t, conn, "carer@example.com", 30)
	clientToken, carerToken := tokenFor(t, client), tokenFor(t, carer)

	date := time.Now().UTC().AddDate(0, 0, 7).Format(models.DateLayout)
	resp, body := call(t, app, http.MethodPost, "/api/bookings/requests", clientToken, map[string]interface{}{
		"caregiver_id":   carer.ID,
		"service_type":   "companionship",
		"proposed_date":  date,
		"proposed_time":  "10:00",
		"duration_hours": 3,
		"address":        "1 Main St",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var req models.BookingRequest
	decode(t, body, &req)
	assert.Equal(t, models.RequestSent, req.Status)

	path := fmt.Sprintf("/api/bookings/requests/%d", req.ID)

	// Clients cannot answer requests.
	resp, _ = call(t, app, http.MethodPost, path+"/respond", clientToken, map[string]bool{"accepted": true})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = call(t, app, http.MethodGet, path, carerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, body, &req)
	assert.Equal(t, models.RequestViewed, req.Status)

	resp, body = call(t, app, http.MethodPost, path+"/respond", carerToken, map[string]bool{"accepted": true})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var outcome struct {
		Request models.BookingRequest `json:"request"`
		Booking *models.Booking       `json:"booking"`
	}
	decode(t, body, &outcome)
	assert.Equal(t, models.RequestAccepted, outcome.Request.Status)
	require.NotNil(t, outcome.Booking)
	assert.Equal(t, models.BookingConfirmed, outcome.Booking.Status)
	assert.Equal(t, "Shelbyville", outcome.Booking.City)
	assert.InDelta(t, 90, outcome.Booking.TotalAmount, 0.001)

	// A second answer loses.
	resp, _ = call(t, app, http.MethodPost, path+"/respond", carerToken, map[string]bool{"accepted": false})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = call(t, app, http.MethodGet, "/api/bookings", clientToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var bookings []models.Booking
	decode(t, body, &bookings)
	require.Len(t, bookings, 1)

	statusPath := fmt.Sprintf("/api/bookings/%d/status", outcome.Booking.ID)
	resp, _ = call(t, app, http.MethodPatch, statusPath, clientToken, map[string]string{"status": "in_progress"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, body = call(t, app, http.MethodPatch, statusPath, carerToken, map[string]string{"status": "in_progress"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	resp, _ = call(t, app, http.MethodPatch, statusPath, carerToken, map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = call(t, app, http.MethodGet, "/api/notifications/unread-count", carerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var unread struct {
		UnreadCount int64 `json:"unread_count"`
	}
	decode(t, body, &unread)
	assert.GreaterOrEqual(t, unread.UnreadCount, int64(1))
}

func TestCheckAvailabilityIsPublic(t *testing.T) {
	app, conn := newTestApp(t)
	carer, _ := testutil.CreateCaregiver(t, conn, "carer@example.com", 30)
	carerToken := tokenFor(t, carer)

	resp, body := call(t, app, http.MethodPost, "/api/profiles/caregiver/availability", carerToken, map[string]interface{}{
		"day_of_week":  int(models.Monday),
		"start_time":   "09:00",
		"end_time":     "17:00",
		"is_recurring": true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	monday := testutil.NextWeekday(time.Now().UTC().AddDate(0, 0, 1), models.Monday, 0, 0)
	url := fmt.Sprintf("/api/bookings/caregiver/%d/check-availability?date=%s&time=10:00", carer.ID, monday.Format(models.DateLayout))
	resp, body = call(t, app, http.MethodGet, url, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var res struct {
		Available bool `json:"available"`
	}
	decode(t, body, &res)
	assert.True(t, res.Available)

	resp, _ = call(t, app, http.MethodGet, fmt.Sprintf("/api/bookings/caregiver/%d/check-availability?date=nope&time=10:00", carer.ID), "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCapabilityGates(t *testing.T) {
	app, conn := newTestApp(t)
	client, _ := testutil.CreateClient(t, conn, "client@example.com", "Springfield")
	carer, _ := testutil.CreateCaregiver(t, conn, "carer@example.com", 30)

	resp, _ := call(t, app, http.MethodGet, "/api/profiles/caregiver/me", tokenFor(t, client), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = call(t, app, http.MethodGet, "/api/profiles/client/me", tokenFor(t, carer), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = call(t, app, http.MethodPost, fmt.Sprintf("/api/auth/users/%d/deactivate", carer.ID), tokenFor(t, client), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	admin := testutil.CreateUser(t, conn, "admin@example.com", models.RoleAdmin)
	resp, body := call(t, app, http.MethodPost, fmt.Sprintf("/api/auth/users/%d/deactivate", carer.ID), tokenFor(t, admin), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, _ = call(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{"email": carer.Email, "password": testutil.Password})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestDiscoveryAndPublicProfile(t *testing.T) {
	app, conn := newTestApp(t)
	carer, _ := testutil.CreateCaregiver(t, conn, "carer@example.com", 30)
	testutil.CreateCaregiver(t, conn, "pricey@example.com", 80)

	resp, body := call(t, app, http.MethodGet, "/api/profiles/caregivers?city=spring&max_rate=50", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var found struct {
		Caregivers []models.CaregiverProfile `json:"caregivers"`
		Total      int                       `json:"total"`
	}
	decode(t, body, &found)
	require.Equal(t, 1, found.Total)
	assert.Equal(t, carer.ID, found.Caregivers[0].UserID)

	resp, _ = call(t, app, http.MethodGet, "/api/profiles/caregivers?sort=cheapest", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = call(t, app, http.MethodGet, fmt.Sprintf("/api/profiles/caregivers/%d", carer.ID), "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = call(t, app, http.MethodGet, "/api/profiles/caregivers/9999", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExportBookingsDownload(t *testing.T) {
	app, conn := newTestApp(t)
	client, _ := testutil.CreateClient(t, conn, "client@example.com", "Springfield")
	carer, _ := testutil.CreateCaregiver(t, conn, "carer@example.com", 30)
	testutil.CreateBooking(t, conn, client.ID, carer.ID, time.Now().UTC().Add(48*time.Hour), 2, models.BookingConfirmed)

	resp, body := call(t, app, http.MethodGet, "/api/bookings/export", tokenFor(t, client), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), ".xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Bookings")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestMessagingOverHTTP(t *testing.T) {
	app, conn := newTestApp(t)
	client, _ := testutil.CreateClient(t, conn, "client@example.com", "Springfield")
	carer, _ := testutil.CreateCaregiver(t, conn, "carer@example.com", 30)
	clientToken, carerToken := tokenFor(t, client), tokenFor(t, carer)

	resp, body := call(t, app, http.MethodPost, "/api/messaging/conversations", clientToken, map[string]uint{"user_id": carer.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var conv models.Conversation
	decode(t, body, &conv)

	resp, _ = call(t, app, http.MethodPost, "/api/messaging/conversations", clientToken, map[string]uint{"user_id": carer.ID})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	msgPath := fmt.Sprintf("/api/messaging/conversations/%d/messages", conv.ID)
	resp, body = call(t, app, http.MethodPost, msgPath, clientToken, map[string]string{"content": "Are you free Monday?"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = call(t, app, http.MethodGet, "/api/messaging/messages/unread-count", carerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"unread_count":1}`, string(body))

	resp, _ = call(t, app, http.MethodGet, msgPath, carerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = call(t, app, http.MethodGet, "/api/messaging/messages/unread-count", carerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"unread_count":0}`, string(body))

	outsider, _ := testutil.CreateClient(t, conn, "outsider@example.com", "Springfield")
	resp, _ = call(t, app, http.MethodGet, msgPath, tokenFor(t, outsider), nil)
	assert.Contains(t, []int{http.StatusForbidden, http.StatusNotFound}, resp.StatusCode)
}

type fakeUploader struct {
	folder, filename string
}

func (f *fakeUploader) Upload(_ context.Context, file interface{}, filename, folder string) (string, error) {
	if _, ok := file.(io.Reader); !ok {
		return "", fmt.Errorf("unexpected file type %T", file)
	}
	f.folder, f.filename = folder, filename
	return "https://cdn.example.com/" + folder + "/" + filename, nil
}

func TestCaregiverPictureUpload(t *testing.T) {
	app, conn := newTestApp(t)
	carer, _ := testutil.CreateCaregiver(t, conn, "carer@example.com", 30)
	up := &fakeUploader{}
	caregiver.SetUploader(up)
	t.Cleanup(func() { caregiver.SetUploader(nil) })

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("profile_picture", "me.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("\x89PNG fake"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/profiles/caregiver/me/picture", &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+tokenFor(t, carer))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "caregiver_profiles", up.folder)

	var p models.CaregiverProfile
	require.NoError(t, conn.Where("user_id = ?", carer.ID).First(&p).Error)
	assert.Equal(t, "https://cdn.example.com/caregiver_profiles/me.png", p.ProfileImageURL)
}
