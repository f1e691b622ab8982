package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waveger/config"
	"waveger/core/auth"
	"waveger/core/charts"
	"waveger/model"
	"waveger/repository"
)

// memUserRepo is an in-memory UserRepository for handler tests.
type memUserRepo struct {
	users  map[int64]*model.User
	nextID int64
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[int64]*model.User), nextID: 1}
}

func (m *memUserRepo) CreateUser(ctx context.Context, user *model.User) (int64, error) {
	for _, u := range m.users {
		if u.Username == user.Username {
			return 0, &repository.ErrDuplicateUser{Field: "username"}
		}
		if u.Email == user.Email {
			return 0, &repository.ErrDuplicateUser{Field: "email"}
		}
	}
	id := m.nextID
	m.nextID++
	stored := *user
	stored.ID = id
	m.users[id] = &stored
	return id, nil
}

func (m *memUserRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (m *memUserRepo) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memUserRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memUserRepo) UpdateLastLogin(ctx context.Context, id int64) error {
	if u, ok := m.users[id]; ok {
		now := time.Now()
		u.LastLogin = &now
	}
	return nil
}

func (m *memUserRepo) UpdateProfilePic(ctx context.Context, id int64, objectName string) (string, error) {
	u, ok := m.users[id]
	if !ok {
		return "", fmt.Errorf("user %d not found", id)
	}
	old := u.ProfilePic
	u.ProfilePic = objectName
	return old, nil
}

// memFavRepo is an in-memory FavouriteRepository. Favourites are keyed by
// song name, artist and chart.
type memFavRepo struct {
	favourites map[string]int64 // "user|song|artist|chart" -> favourite id
	owners     map[int64]int64  // favourite id -> user id
	nextID     int64
}

func newMemFavRepo() *memFavRepo {
	return &memFavRepo{
		favourites: make(map[string]int64),
		owners:     make(map[int64]int64),
		nextID:     1,
	}
}

func favKey(userID int64, song, artist, chartID string) string {
	return fmt.Sprintf("%d|%s|%s|%s", userID, song, artist, chartID)
}

func (m *memFavRepo) Toggle(ctx context.Context, userID int64, input repository.ToggleInput) (*repository.ToggleResult, error) {
	key := favKey(userID, input.SongName, input.Artist, input.ChartID)
	if id, ok := m.favourites[key]; ok {
		delete(m.favourites, key)
		delete(m.owners, id)
		return &repository.ToggleResult{Action: "removed", FavouriteID: id}, nil
	}
	id := m.nextID
	m.nextID++
	m.favourites[key] = id
	m.owners[id] = userID
	return &repository.ToggleResult{Action: "added", FavouriteID: id, SongID: id}, nil
}

func (m *memFavRepo) Remove(ctx context.Context, userID, favouriteID int64) (bool, error) {
	owner, ok := m.owners[favouriteID]
	if !ok || owner != userID {
		return false, nil
	}
	for key, id := range m.favourites {
		if id == favouriteID {
			delete(m.favourites, key)
		}
	}
	delete(m.owners, favouriteID)
	return true, nil
}

func (m *memFavRepo) CheckStatus(ctx context.Context, userID int64, songName, artist, chartID string) (*repository.FavouriteStatus, error) {
	if id, ok := m.favourites[favKey(userID, songName, artist, chartID)]; ok {
		return &repository.FavouriteStatus{IsFavourited: true, FavouriteID: id, SongID: id}, nil
	}
	return &repository.FavouriteStatus{}, nil
}

func (m *memFavRepo) GetUserFavourites(ctx context.Context, userID int64, chartID string) ([]*model.FavouriteSong, error) {
	var out []*model.FavouriteSong
	for key := range m.favourites {
		parts := strings.SplitN(key, "|", 4)
		if parts[0] != fmt.Sprintf("%d", userID) {
			continue
		}
		if chartID != "" && parts[3] != chartID {
			continue
		}
		out = append(out, &model.FavouriteSong{SongName: parts[1], Artist: parts[2]})
	}
	return out, nil
}

// memChartRepo and failingChartAPI back the chart handler tests.
type memChartRepo struct {
	charts map[string]*model.Chart
	nextID int64
}

func newMemChartRepo() *memChartRepo {
	return &memChartRepo{charts: make(map[string]*model.Chart), nextID: 1}
}

func (m *memChartRepo) GetByTitleAndWeek(ctx context.Context, title, week string) (*model.Chart, error) {
	c, ok := m.charts[title+"|"+week]
	if !ok {
		return nil, nil
	}
	return c, nil
}

func (m *memChartRepo) Create(ctx context.Context, chart *model.Chart) (int64, error) {
	key := chart.Title + "|" + chart.Week
	if _, ok := m.charts[key]; ok {
		return 0, nil
	}
	id := m.nextID
	m.nextID++
	stored := *chart
	stored.ID = id
	m.charts[key] = &stored
	return id, nil
}

type fakeChartAPI struct {
	payload *model.ChartPayload
	err     error
}

func (f *fakeChartAPI) FetchChart(ctx context.Context, chartID, week string) (*model.ChartPayload, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func (f *fakeChartAPI) FetchTopCharts(ctx context.Context) ([]model.ChartSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []model.ChartSummary{{ID: "hot-100", Title: "Billboard Hot 100"}}, nil
}

func newTestHandler(t *testing.T, api charts.ChartAPI) (*APIHandler, *memUserRepo, *memFavRepo) {
	t.Helper()
	userRepo := newMemUserRepo()
	favRepo := newMemFavRepo()
	chartService := charts.NewService(newMemChartRepo(), api, nil)
	tokens := auth.NewTokenService("test-secret", time.Hour)
	cfg := &config.Config{AdminSecretKey: "admin-key"}
	h := NewAPIHandler(chartService, userRepo, favRepo, tokens, nil, NewLimiters(), cfg)
	return h, userRepo, favRepo
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRegisterHandler(t *testing.T) {
	h, _, _ := newTestHandler(t, &fakeChartAPI{})

	body := `{"username": "alice", "email": "alice@example.com", "password": "supersecret"}`
	rec := httptest.NewRecorder()
	h.RegisterHandler(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeBody(t, rec)
	assert.NotEmpty(t, resp["token"])
	user := resp["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
	_, hasHash := user["password_hash"]
	assert.False(t, hasHash)
}

func TestRegisterHandlerDuplicate(t *testing.T) {
	h, _, _ := newTestHandler(t, &fakeChartAPI{})

	body := `{"username": "alice", "email": "alice@example.com", "password": "supersecret"}`
	rec := httptest.NewRecorder()
	h.RegisterHandler(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.RegisterHandler(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body)))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Username already taken", decodeBody(t, rec)["error"])

	body = `{"username": "alice2", "email": "alice@example.com", "password": "supersecret"}`
	rec = httptest.NewRecorder()
	h.RegisterHandler(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body)))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Email already registered", decodeBody(t, rec)["error"])
}

func TestRegisterHandlerValidation(t *testing.T) {
	h, _, _ := newTestHandler(t, &fakeChartAPI{})

	rec := httptest.NewRecorder()
	h.RegisterHandler(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"username": "bob", "email": "bob@example.com", "password": "short"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.RegisterHandler(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"username": "", "email": "", "password": ""}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func registerUser(t *testing.T, h *APIHandler, username, email, password string) {
	t.Helper()
	body := fmt.Sprintf(`{"username": %q, "email": %q, "password": %q}`, username, email, password)
	rec := httptest.NewRecorder()
	h.RegisterHandler(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestLoginHandler(t *testing.T) {
	h, _, _ := newTestHandler(t, &fakeChartAPI{})
	registerUser(t, h, "alice", "alice@example.com", "supersecret")

	rec := httptest.NewRecorder()
	h.LoginHandler(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username": "alice", "password": "supersecret"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["token"])

	// Login by email.
	rec = httptest.NewRecorder()
	h.LoginHandler(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username": "alice@example.com", "password": "supersecret"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginHandlerInvalidCredentials(t *testing.T) {
	h, _, _ := newTestHandler(t, &fakeChartAPI{})
	registerUser(t, h, "alice", "alice@example.com", "supersecret")

	rec := httptest.NewRecorder()
	h.LoginHandler(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username": "alice", "password": "wrongpassword"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.LoginHandler(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username": "nobody", "password": "supersecret"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	h, _, _ := newTestHandler(t, &fakeChartAPI{})

	var gotUserID int64
	protected := h.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		id, err := GetUserIDFromContext(r.Context())
		require.NoError(t, err)
		gotUserID = id
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	protected(rec, httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	r.Header.Set("Authorization", "NotBearer abc")
	protected(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	r.Header.Set("Authorization", "Bearer not-a-token")
	protected(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := h.tokens.GenerateToken(42, "alice")
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	protected(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), gotUserID)
}

func authedRequest(t *testing.T, h *APIHandler, method, target string, body string) *http.Request {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	r := httptest.NewRequest(method, target, reader)
	ctx := context.WithValue(r.Context(), ctxUserID, int64(1))
	ctx = context.WithValue(ctx, ctxUsername, "alice")
	return r.WithContext(ctx)
}

func TestGetChartHandler(t *testing.T) {
	api := &fakeChartAPI{payload: &model.ChartPayload{
		Title: "Billboard Hot 100",
		Week:  "2025-06-03",
		Songs: []model.ChartEntry{{Position: 1, Name: "First", Artist: "Artist A"}},
	}}
	h, _, _ := newTestHandler(t, api)

	rec := httptest.NewRecorder()
	h.GetChartHandler(rec, httptest.NewRequest(http.MethodGet, "/api/chart?id=hot-100&week=2025-06-03", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody(t, rec)
	assert.Equal(t, "api", resp["source"])

	// Same request again is served from storage.
	rec = httptest.NewRecorder()
	h.GetChartHandler(rec, httptest.NewRequest(http.MethodGet, "/api/chart?id=hot-100&week=2025-06-03", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "database", decodeBody(t, rec)["source"])
}

func TestGetChartHandlerInvalidWeek(t *testing.T) {
	h, _, _ := newTestHandler(t, &fakeChartAPI{})

	rec := httptest.NewRecorder()
	h.GetChartHandler(rec, httptest.NewRequest(http.MethodGet, "/api/chart?week=not-a-date", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid date format", decodeBody(t, rec)["error"])
}

func TestGetChartHandlerUpstreamFailure(t *testing.T) {
	h, _, _ := newTestHandler(t, &fakeChartAPI{err: fmt.Errorf("upstream down")})

	rec := httptest.NewRecorder()
	h.GetChartHandler(rec, httptest.NewRequest(http.MethodGet, "/api/chart", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetTopChartsHandler(t *testing.T) {
	h, _, _ := newTestHandler(t, &fakeChartAPI{})

	rec := httptest.NewRecorder()
	h.GetTopChartsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/top-charts", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody(t, rec)
	assert.Equal(t, "api", resp["source"])
	data := resp["data"].(map[string]interface{})
	assert.Len(t, data["charts"], 1)
}

func TestToggleFavouriteHandler(t *testing.T) {
	h, _, _ := newTestHandler(t, &fakeChartAPI{})

	body := `{"song_name": "First", "artist": "Artist A", "chart_id": "hot-100", "chart_title": "Billboard Hot 100"}`
	rec := httptest.NewRecorder()
	h.ToggleFavouriteHandler(rec, authedRequest(t, h, http.MethodPost, "/api/favourites", body))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Song added to favourites", decodeBody(t, rec)["message"])

	// Toggling again removes it.
	rec = httptest.NewRecorder()
	h.ToggleFavouriteHandler(rec, authedRequest(t, h, http.MethodPost, "/api/favourites", body))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Song removed from favourites", decodeBody(t, rec)["message"])
}

func TestToggleFavouriteHandlerValidation(t *testing.T) {
	h, _, _ := newTestHandler(t, &fakeChartAPI{})

	rec := httptest.NewRecorder()
	h.ToggleFavouriteHandler(rec, authedRequest(t, h, http.MethodPost, "/api/favourites",
		`{"song_name": "First"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unauthenticated request.
	rec = httptest.NewRecorder()
	h.ToggleFavouriteHandler(rec, httptest.NewRequest(http.MethodPost, "/api/favourites",
		strings.NewReader(`{"song_name": "First", "artist": "A", "chart_id": "hot-100", "chart_title": "Hot 100"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetFavouritesHandler(t *testing.T) {
	h, _, favRepo := newTestHandler(t, &fakeChartAPI{})
	_, err := favRepo.Toggle(context.Background(), 1, repository.ToggleInput{
		SongName: "First", Artist: "Artist A", ChartID: "hot-100", ChartTitle: "Billboard Hot 100",
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.GetFavouritesHandler(rec, authedRequest(t, h, http.MethodGet, "/api/favourites", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["favourites"], 1)

	// Filtered to a chart with no favourites.
	rec = httptest.NewRecorder()
	h.GetFavouritesHandler(rec, authedRequest(t, h, http.MethodGet, "/api/favourites?chart_id=billboard-200", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody(t, rec)["favourites"])
}

func TestRemoveFavouriteHandler(t *testing.T) {
	h, _, favRepo := newTestHandler(t, &fakeChartAPI{})
	result, err := favRepo.Toggle(context.Background(), 1, repository.ToggleInput{
		SongName: "First", Artist: "Artist A", ChartID: "hot-100", ChartTitle: "Billboard Hot 100",
	})
	require.NoError(t, err)

	r := authedRequest(t, h, http.MethodDelete, "/api/favourites/1", "")
	r = mux.SetURLVars(r, map[string]string{"id": fmt.Sprintf("%d", result.FavouriteID)})
	rec := httptest.NewRecorder()
	h.RemoveFavouriteHandler(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Removing again reports not found.
	rec = httptest.NewRecorder()
	h.RemoveFavouriteHandler(rec, r)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckFavouriteHandler(t *testing.T) {
	h, _, favRepo := newTestHandler(t, &fakeChartAPI{})
	_, err := favRepo.Toggle(context.Background(), 1, repository.ToggleInput{
		SongName: "First", Artist: "Artist A", ChartID: "hot-100", ChartTitle: "Billboard Hot 100",
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.CheckFavouriteHandler(rec, authedRequest(t, h, http.MethodGet,
		"/api/favourites/check?song_name=First&artist=Artist+A&chart_id=hot-100", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["is_favourited"])

	rec = httptest.NewRecorder()
	h.CheckFavouriteHandler(rec, authedRequest(t, h, http.MethodGet,
		"/api/favourites/check?song_name=Other&artist=B&chart_id=hot-100", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["is_favourited"])

	rec = httptest.NewRecorder()
	h.CheckFavouriteHandler(rec, authedRequest(t, h, http.MethodGet, "/api/favourites/check", ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileHandler(t *testing.T) {
	h, userRepo, _ := newTestHandler(t, &fakeChartAPI{})
	_, err := userRepo.CreateUser(context.Background(), &model.User{
		Username: "alice", Email: "alice@example.com", PasswordHash: "x",
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ProfileHandler(rec, authedRequest(t, h, http.MethodGet, "/api/auth/profile", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", decodeBody(t, rec)["username"])
}

func TestResetRateLimiterHandler(t *testing.T) {
	h, _, _ := newTestHandler(t, &fakeChartAPI{})

	// Wrong admin key.
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/admin/reset-rate-limiter", nil)
	r.Header.Set("X-Admin-Key", "wrong")
	h.ResetRateLimiterHandler(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Correct key lifts an exhausted limiter.
	assert.True(t, h.limiters.Probe.Allow("1.2.3.4"))
	for h.limiters.Probe.Allow("1.2.3.4") {
	}

	rec = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/api/admin/reset-rate-limiter", nil)
	r.Header.Set("X-Admin-Key", "admin-key")
	h.ResetRateLimiterHandler(rec, r)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, h.limiters.Probe.Allow("1.2.3.4"))
}

func TestResetRateLimiterHandlerNoKeyConfigured(t *testing.T) {
	h, _, _ := newTestHandler(t, &fakeChartAPI{})
	h.cfg = &config.Config{}

	rec := httptest.NewRecorder()
	h.ResetRateLimiterHandler(rec, httptest.NewRequest(http.MethodPost, "/api/admin/reset-rate-limiter", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
