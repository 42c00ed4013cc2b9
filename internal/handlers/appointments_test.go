package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"healthcare-booking-server/internal/config"
	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/routes"
	"healthcare-booking-server/internal/scheduling"
	"healthcare-booking-server/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	cfg    *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))

	cfg := &config.Config{
		JWTSecret:            "test-secret",
		JWTExpirationMinutes: 15,
	}
	service := scheduling.NewService(db, nil, zerolog.Nop())

	router := gin.New()
	routes.SetupRoutes(router, db, cfg, service)

	return &testEnv{router: router, db: db, cfg: cfg}
}

func (e *testEnv) seedUser(t *testing.T, role models.Role) models.User {
	t.Helper()
	var n int64
	e.db.Model(&models.User{}).Count(&n)
	user := models.User{
		Email:     fmt.Sprintf("%s-%d@example.com", role, n),
		FirstName: "Test",
		LastName:  string(role),
		Role:      role,
	}
	require.NoError(t, e.db.Create(&user).Error)
	return user
}

func (e *testEnv) token(t *testing.T, user models.User) string {
	t.Helper()
	token, err := utils.GenerateAccessToken(&user, e.cfg)
	require.NoError(t, err)
	return token
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func bookingBody(practitionerID string) map[string]interface{} {
	return map[string]interface{}{
		"practitionerId": practitionerID,
		"date":           "2024-05-01",
		"timeSlot":       "10:00",
		"mode":           "virtual",
		"reason":         "Annual checkup",
	}
}

func TestCreateAppointmentEndpoint(t *testing.T) {
	env := newTestEnv(t)
	patient := env.seedUser(t, models.RolePatient)
	practitioner := env.seedUser(t, models.RolePractitioner)

	rec := env.request(t, http.MethodPost, "/api/v1/appointments", env.token(t, patient), bookingBody(practitioner.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var appt models.Appointment
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &appt))
	assert.Equal(t, patient.ID, appt.PatientID)
	assert.Equal(t, practitioner.ID, appt.PractitionerID)
	assert.Equal(t, models.StatusPending, appt.Status)
	assert.Equal(t, 30, appt.DurationMinutes)
}

func TestCreateAppointmentRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	practitioner := env.seedUser(t, models.RolePractitioner)

	rec := env.request(t, http.MethodPost, "/api/v1/appointments", "", bookingBody(practitioner.ID))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateAppointmentRequiresPatientRole(t *testing.T) {
	env := newTestEnv(t)
	practitioner := env.seedUser(t, models.RolePractitioner)

	rec := env.request(t, http.MethodPost, "/api/v1/appointments", env.token(t, practitioner), bookingBody(practitioner.ID))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateAppointmentMissingFields(t *testing.T) {
	env := newTestEnv(t)
	patient := env.seedUser(t, models.RolePatient)
	practitioner := env.seedUser(t, models.RolePractitioner)

	body := bookingBody(practitioner.ID)
	delete(body, "timeSlot")
	rec := env.request(t, http.MethodPost, "/api/v1/appointments", env.token(t, patient), body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAppointmentUnknownPractitioner(t *testing.T) {
	env := newTestEnv(t)
	patient := env.seedUser(t, models.RolePatient)

	rec := env.request(t, http.MethodPost, "/api/v1/appointments", env.token(t, patient),
		bookingBody("00000000-0000-0000-0000-000000000000"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateAppointmentSlotConflict(t *testing.T) {
	env := newTestEnv(t)
	patient := env.seedUser(t, models.RolePatient)
	other := env.seedUser(t, models.RolePatient)
	practitioner := env.seedUser(t, models.RolePractitioner)

	rec := env.request(t, http.MethodPost, "/api/v1/appointments", env.token(t, patient), bookingBody(practitioner.ID))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/v1/appointments", env.token(t, other), bookingBody(practitioner.ID))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetAppointmentRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	patient := env.seedUser(t, models.RolePatient)
	practitioner := env.seedUser(t, models.RolePractitioner)

	rec := env.request(t, http.MethodPost, "/api/v1/appointments", env.token(t, patient), bookingBody(practitioner.ID))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Appointment
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &created))

	rec = env.request(t, http.MethodGet, "/api/v1/appointments/"+created.ID, env.token(t, patient), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched models.Appointment
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &fetched))

	assert.Equal(t, created.PatientID, fetched.PatientID)
	assert.Equal(t, created.PractitionerID, fetched.PractitionerID)
	assert.True(t, created.Date.Equal(fetched.Date))
	assert.Equal(t, created.TimeSlot, fetched.TimeSlot)
	assert.Equal(t, created.Status, fetched.Status)
}

func TestGetAppointmentForbiddenForStranger(t *testing.T) {
	env := newTestEnv(t)
	patient := env.seedUser(t, models.RolePatient)
	stranger := env.seedUser(t, models.RolePatient)
	practitioner := env.seedUser(t, models.RolePractitioner)

	rec := env.request(t, http.MethodPost, "/api/v1/appointments", env.token(t, patient), bookingBody(practitioner.ID))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Appointment
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &created))

	rec = env.request(t, http.MethodGet, "/api/v1/appointments/"+created.ID, env.token(t, stranger), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetMyAppointmentsScoped(t *testing.T) {
	env := newTestEnv(t)
	patient := env.seedUser(t, models.RolePatient)
	other := env.seedUser(t, models.RolePatient)
	practitioner := env.seedUser(t, models.RolePractitioner)

	rec := env.request(t, http.MethodPost, "/api/v1/appointments", env.token(t, patient), bookingBody(practitioner.ID))
	require.Equal(t, http.StatusCreated, rec.Code)

	body := bookingBody(practitioner.ID)
	body["timeSlot"] = "11:00"
	rec = env.request(t, http.MethodPost, "/api/v1/appointments", env.token(t, other), body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/v1/appointments/my", env.token(t, patient), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []models.Appointment
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, patient.ID, mine[0].PatientID)

	rec = env.request(t, http.MethodGet, "/api/v1/appointments/my", env.token(t, practitioner), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var assigned []models.Appointment
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &assigned))
	assert.Len(t, assigned, 2)
}

func TestUpdateAppointmentStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)
	patient := env.seedUser(t, models.RolePatient)
	practitioner := env.seedUser(t, models.RolePractitioner)
	intruder := env.seedUser(t, models.RolePractitioner)

	rec := env.request(t, http.MethodPost, "/api/v1/appointments", env.token(t, patient), bookingBody(practitioner.ID))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Appointment
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &created))

	statusPath := "/api/v1/appointments/" + created.ID + "/status"

	// Invalid status value.
	rec = env.request(t, http.MethodPut, statusPath, env.token(t, practitioner),
		map[string]interface{}{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Foreign practitioner.
	rec = env.request(t, http.MethodPut, statusPath, env.token(t, intruder),
		map[string]interface{}{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Unknown appointment.
	rec = env.request(t, http.MethodPut, "/api/v1/appointments/00000000-0000-0000-0000-000000000000/status",
		env.token(t, practitioner), map[string]interface{}{"status": "confirmed"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Confirmation with session link.
	rec = env.request(t, http.MethodPut, statusPath, env.token(t, practitioner),
		map[string]interface{}{"status": "confirmed", "sessionLink": "https://meet.example.com/abc"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var confirmed models.Appointment
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &confirmed))
	assert.Equal(t, models.StatusConfirmed, confirmed.Status)
	assert.Equal(t, "https://meet.example.com/abc", confirmed.SessionLink)

	// Cancel, then repeat: terminal transitions conflict.
	rec = env.request(t, http.MethodPut, statusPath, env.token(t, patient),
		map[string]interface{}{"status": "cancelled"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.request(t, http.MethodPut, statusPath, env.token(t, patient),
		map[string]interface{}{"status": "cancelled"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRescheduleEndpointRequiresNewSlot(t *testing.T) {
	env := newTestEnv(t)
	patient := env.seedUser(t, models.RolePatient)
	practitioner := env.seedUser(t, models.RolePractitioner)

	rec := env.request(t, http.MethodPost, "/api/v1/appointments", env.token(t, patient), bookingBody(practitioner.ID))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Appointment
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &created))

	rec = env.request(t, http.MethodPut, "/api/v1/appointments/"+created.ID+"/status", env.token(t, practitioner),
		map[string]interface{}{"status": "rescheduled"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetPractitionersListing(t *testing.T) {
	env := newTestEnv(t)
	patient := env.seedUser(t, models.RolePatient)
	env.seedUser(t, models.RolePractitioner)
	env.seedUser(t, models.RolePractitioner)

	rec := env.request(t, http.MethodGet, "/api/v1/users/practitioners", env.token(t, patient), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var practitioners []models.User
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &practitioners))
	assert.Len(t, practitioners, 2)
}

func TestGetProfile(t *testing.T) {
	env := newTestEnv(t)
	patient := env.seedUser(t, models.RolePatient)

	rec := env.request(t, http.MethodGet, "/api/v1/auth/profile", env.token(t, patient), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile models.User
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &profile))
	assert.Equal(t, patient.ID, profile.ID)
}
