package httptransport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	accountmodels "slotbook/internal/account/models"
	accountservice "slotbook/internal/account/service"
	accountstore "slotbook/internal/account/store"
	memorybus "slotbook/internal/eventbus/memory"
	"slotbook/internal/platform/logger"
	"slotbook/internal/platform/metrics"
	profileconsumer "slotbook/internal/profile/consumer"
	profileservice "slotbook/internal/profile/service"
	profilestore "slotbook/internal/profile/store"
	scheduleconsumer "slotbook/internal/schedule/consumer"
	scheduleservice "slotbook/internal/schedule/service"
	schedulestore "slotbook/internal/schedule/store"
	"slotbook/internal/token"
)

// RouterSuite spins up the full router over in-memory stores and the inline
// bus, so requests exercise the same wiring main uses.
type RouterSuite struct {
	suite.Suite
	server *httptest.Server
}

func (s *RouterSuite) SetupTest() {
	log := logger.Discard()
	m := metrics.NewWith(prometheus.NewRegistry())

	accounts := accountstore.NewMemory()
	accountProfiles := accountstore.NewMemoryProfiles()
	profiles := profilestore.NewMemory()
	schedules := schedulestore.NewMemory()
	bus := memorybus.New(log)

	tokens := token.NewService("test-signing-key", "slotbook-test", 15*time.Minute)
	accountSvc := accountservice.NewService(accounts, accountProfiles, accountstore.NewMemoryRefreshTokens(), tokens, bus, log, m, time.Hour)
	accountProfileSvc := accountservice.NewProfileService(accountProfiles, accounts)
	profileSvc := profileservice.NewService(profiles)
	scheduleMgr := scheduleservice.NewManager(schedules, log)
	bookingArb := scheduleservice.NewArbiter(schedules, log, m)

	s.Require().NoError(profileconsumer.NewProvisioner(profiles, bus, log, m).Register(bus))
	s.Require().NoError(scheduleconsumer.NewProvisioner(schedules, log, m).Register(bus))

	handler := NewHandler(accountSvc, accountProfileSvc, profileSvc, scheduleMgr, bookingArb, log)
	s.server = httptest.NewServer(NewRouter(handler, tokens, log))
}

func (s *RouterSuite) TearDownTest() {
	s.server.Close()
}

func (s *RouterSuite) do(method, path, accessToken string, body any) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	s.Require().NoError(err)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *RouterSuite) decodeBody(resp *http.Response, dst any) {
	defer resp.Body.Close()
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(dst))
}

// registerAndSignIn creates an account and returns its access token.
func (s *RouterSuite) registerAndSignIn(email, username string, role accountmodels.Role) string {
	resp := s.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"username": username,
		"password": "long-enough-password",
		"role":     string(role),
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(http.MethodPost, "/auth/signin", "", map[string]string{
		"email":    email,
		"password": "long-enough-password",
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var pair accountmodels.TokenPair
	s.decodeBody(resp, &pair)
	return pair.AccessToken
}

func (s *RouterSuite) TestRegisterValidationMapsTo400() {
	resp := s.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email":    "not-an-email",
		"username": "x",
		"password": "long-enough-password",
		"role":     "Client",
	})
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *RouterSuite) TestDuplicateRegisterMapsTo409() {
	s.registerAndSignIn("dana@example.com", "dana", accountmodels.RoleClient)

	resp := s.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email":    "dana@example.com",
		"username": "other",
		"password": "long-enough-password",
		"role":     "Client",
	})
	defer resp.Body.Close()
	s.Equal(http.StatusConflict, resp.StatusCode)
}

func (s *RouterSuite) TestProtectedRoutesRequireToken() {
	resp := s.do(http.MethodGet, "/profiles", "", nil)
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(http.MethodGet, "/profiles", "garbage-token", nil)
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *RouterSuite) TestScheduleRoutesAreSpecialistOnly() {
	clientToken := s.registerAndSignIn("carl@example.com", "carl", accountmodels.RoleClient)

	resp := s.do(http.MethodPut, "/schedule/slots", clientToken, map[string]any{"slotTimes": []string{}})
	resp.Body.Close()
	s.Equal(http.StatusForbidden, resp.StatusCode)
}

func (s *RouterSuite) TestScheduleLifecycleAndBooking() {
	specToken := s.registerAndSignIn("dana@example.com", "dana", accountmodels.RoleSpecialist)
	clientToken := s.registerAndSignIn("carl@example.com", "carl", accountmodels.RoleClient)

	slotTime := time.Date(2026, time.September, 1, 9, 0, 0, 0, time.UTC)

	// Registration provisioned an empty schedule inline.
	resp := s.do(http.MethodGet, "/schedule", specToken, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var schedule struct {
		ID           int64       `json:"id"`
		SpecialistID int64       `json:"specialistId"`
		OfferedSlots []time.Time `json:"offeredSlots"`
	}
	s.decodeBody(resp, &schedule)
	s.Empty(schedule.OfferedSlots)

	resp = s.do(http.MethodPost, "/schedule/slots", specToken, map[string]any{
		"slotTimes": []time.Time{slotTime},
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.decodeBody(resp, &schedule)
	s.Require().Len(schedule.OfferedSlots, 1)

	book := map[string]any{"specialistId": schedule.SpecialistID, "slotTime": slotTime}

	resp = s.do(http.MethodPost, "/appointments", clientToken, book)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var slot struct {
		ID       int64     `json:"id"`
		SlotTime time.Time `json:"slotTime"`
		Status   string    `json:"status"`
	}
	s.decodeBody(resp, &slot)
	s.Equal("reserved", slot.Status)

	// Second booking attempt for the same slot loses.
	resp = s.do(http.MethodPost, "/appointments", specToken, book)
	resp.Body.Close()
	s.Equal(http.StatusConflict, resp.StatusCode)

	resp = s.do(http.MethodGet, "/appointments/me", clientToken, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var mine struct {
		ID int64 `json:"id"`
	}
	s.decodeBody(resp, &mine)
	s.Equal(slot.ID, mine.ID)

	// Removing the reserved slot via replace is refused.
	resp = s.do(http.MethodPut, "/schedule/slots", specToken, map[string]any{
		"slotTimes": []time.Time{},
	})
	resp.Body.Close()
	s.Equal(http.StatusConflict, resp.StatusCode)
}

func (s *RouterSuite) TestProfileEditing() {
	specToken := s.registerAndSignIn("dana@example.com", "dana", accountmodels.RoleSpecialist)

	type workProfile struct {
		ID         int64    `json:"id"`
		Profession *string  `json:"profession"`
		Skills     []string `json:"skills"`
	}

	resp := s.do(http.MethodPut, "/profile", specToken, map[string]any{
		"profession": "therapist",
		"skills":     []string{"cbt"},
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var profile workProfile
	s.decodeBody(resp, &profile)
	s.Require().NotNil(profile.Profession)
	s.Equal("therapist", *profile.Profession)

	// The edited profile is publicly readable.
	resp = s.do(http.MethodGet, fmt.Sprintf("/profiles/%d", profile.ID), specToken, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.decodeBody(resp, &profile)
	s.Equal([]string{"cbt"}, profile.Skills)

	// Cleared fields are omitted from the response, so decode into a fresh
	// value rather than over the previous one.
	resp = s.do(http.MethodDelete, "/profile", specToken, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var clearedProfile workProfile
	s.decodeBody(resp, &clearedProfile)
	s.Nil(clearedProfile.Profession)
}

func (s *RouterSuite) TestAccountProfileEditing() {
	clientToken := s.registerAndSignIn("carl@example.com", "carl", accountmodels.RoleClient)

	type contactProfile struct {
		Email       string  `json:"email"`
		FirstName   *string `json:"firstName"`
		PhoneNumber *string `json:"phoneNumber"`
		Address     *string `json:"address"`
	}

	// The empty contact profile exists right after registration.
	resp := s.do(http.MethodGet, "/account/profile", clientToken, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var profile contactProfile
	s.decodeBody(resp, &profile)
	s.Equal("carl@example.com", profile.Email)
	s.Nil(profile.FirstName)

	resp = s.do(http.MethodPut, "/account/profile", clientToken, map[string]string{
		"firstName":   "Carl",
		"phoneNumber": "+1-555-0100",
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.decodeBody(resp, &profile)
	s.Require().NotNil(profile.FirstName)
	s.Equal("Carl", *profile.FirstName)
	s.Require().NotNil(profile.PhoneNumber)
	s.Nil(profile.Address)

	resp = s.do(http.MethodDelete, "/account/profile", clientToken, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var cleared contactProfile
	s.decodeBody(resp, &cleared)
	s.Nil(cleared.FirstName)
	s.Nil(cleared.PhoneNumber)
	s.Equal("carl@example.com", cleared.Email)

	// Specialists get the same contact profile alongside their work profile.
	specToken := s.registerAndSignIn("dana@example.com", "dana", accountmodels.RoleSpecialist)
	resp = s.do(http.MethodGet, "/account/profile", specToken, nil)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *RouterSuite) TestUnknownScheduleMapsTo404() {
	tok := s.registerAndSignIn("carl@example.com", "carl", accountmodels.RoleClient)

	resp := s.do(http.MethodGet, "/schedules/999", tok, nil)
	resp.Body.Close()
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *RouterSuite) TestRefreshFlow() {
	s.registerAndSignIn("dana@example.com", "dana", accountmodels.RoleClient)

	resp := s.do(http.MethodPost, "/auth/signin", "", map[string]string{
		"email":    "dana@example.com",
		"password": "long-enough-password",
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var pair accountmodels.TokenPair
	s.decodeBody(resp, &pair)

	resp = s.do(http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": pair.RefreshToken})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var rotated accountmodels.TokenPair
	s.decodeBody(resp, &rotated)
	s.NotEqual(pair.RefreshToken, rotated.RefreshToken)

	// The consumed token cannot be replayed.
	resp = s.do(http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": pair.RefreshToken})
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}
