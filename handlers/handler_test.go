package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/adi27online/meruglobalconnect/database"
	"github.com/adi27online/meruglobalconnect/logger"
	"github.com/adi27online/meruglobalconnect/models"
	"github.com/adi27online/meruglobalconnect/services"
	"github.com/adi27online/meruglobalconnect/storage"
	"github.com/adi27online/meruglobalconnect/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.SetOutput(io.Discard)
}

type testServer struct {
	store  *database.MemoryStore
	tokens *utils.TokenManager
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := database.NewMemoryStore()
	tokens := utils.NewTokenManager("handler-secret", time.Hour)
	files, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	deps := services.Deps{Store: store}
	h := &Handler{
		Accounts:      services.NewAccountService(deps, tokens, nil, "https://meru.example"),
		Relationships: services.NewRelationshipService(deps),
		Messaging:     services.NewMessagingService(deps),
		Bulletins:     services.NewBulletinService(deps),
		Payments:      services.NewPaymentService(deps, nil, 1000, "usd"),
		Media:         services.NewMediaService(deps, files),
		Store:         store,
		Tokens:        tokens,
		Files:         files,
	}
	return &testServer{store: store, tokens: tokens, router: h.Router(nil, []string{"*"})}
}

// seed creates a verified, paid user with password "secret123" and returns
// a bearer token for it.
func (s *testServer) seed(t *testing.T, id string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := (&models.User{
		ID:         id,
		Email:      id + "@example.com",
		Password:   string(hash),
		Profile:    models.Profile{Name: id, City: "Nairobi"},
		IsVerified: true,
		IsPaid:     true,
	}).Normalize()
	require.NoError(t, s.store.CreateUser(context.Background(), user))
	token, err := s.tokens.GenerateToken(id, user.Email, id)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst))
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "meruglobalconnect_http_requests_total")
}

func TestRegisterThenLoginRequiresVerification(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Wanjiru", "email": "Wanjiru@Example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reg struct {
		RequiresPayment bool   `json:"requiresPayment"`
		UserID          string `json:"userId"`
	}
	decode(t, w, &reg)
	assert.True(t, reg.RequiresPayment)
	assert.NotEmpty(t, reg.UserID)

	w = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "wanjiru@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	var body map[string]any
	decode(t, w, &body)
	assert.Equal(t, true, body["emailNotVerified"])

	w = s.do(http.MethodGet, "/api/auth/verify-email", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginReturnsToken(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "amani")

	w := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "amani@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decode(t, w, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "amani", resp.User.ID)

	w = s.do(http.MethodGet, "/api/users/me", resp.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "amani@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/users/me", "/api/friends", "/api/conversations", "/api/job-seekers/me"} {
		w := s.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	w := s.do(http.MethodPost, "/api/news", "", gin.H{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFriendshipAndChatFlow(t *testing.T) {
	s := newTestServer(t)
	alice := s.seed(t, "alice")
	bob := s.seed(t, "bob")

	w := s.do(http.MethodPost, "/api/conversations", alice, gin.H{"friendId": "bob"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/friends/requests", alice, gin.H{"recipientId": "bob"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(http.MethodPost, "/api/users/send-friend-request", alice, gin.H{"recipientId": "bob"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodGet, "/api/friends/requests/count", bob, nil)
	assert.JSONEq(t, `{"count":1}`, w.Body.String())

	w = s.do(http.MethodPost, "/api/friends/requests/accept", bob, gin.H{"senderId": "alice"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var friends []models.UserSummary
	decode(t, s.do(http.MethodGet, "/api/friends", alice, nil), &friends)
	require.Len(t, friends, 1)
	assert.Equal(t, "bob", friends[0].ID)

	w = s.do(http.MethodPost, "/api/conversations", alice, gin.H{"friendId": "bob"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var conv struct {
		ConversationID string `json:"conversationId"`
	}
	decode(t, w, &conv)

	w = s.do(http.MethodPost, "/api/conversations", bob, gin.H{"friendId": "alice"})
	assert.Equal(t, http.StatusOK, w.Code)

	path := "/api/conversations/" + conv.ConversationID + "/messages"
	w = s.do(http.MethodPost, path, bob, gin.H{"content": "  habari  "})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(http.MethodPost, path, bob, gin.H{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var msgs []models.Message
	decode(t, s.do(http.MethodGet, path, alice, nil), &msgs)
	require.Len(t, msgs, 1)
	assert.Equal(t, "habari", msgs[0].Content)

	carol := s.seed(t, "carol")
	w = s.do(http.MethodGet, path, carol, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestWithdrawFriendRequest(t *testing.T) {
	s := newTestServer(t)
	alice := s.seed(t, "alice")
	s.seed(t, "bob")

	w := s.do(http.MethodDelete, "/api/friends/requests/bob", alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	s.do(http.MethodPost, "/api/friends/requests", alice, gin.H{"recipientId": "bob"})
	w = s.do(http.MethodDelete, "/api/friends/requests/bob", alice, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewsBoard(t *testing.T) {
	s := newTestServer(t)
	token := s.seed(t, "editor")

	w := s.do(http.MethodPost, "/api/news", token, gin.H{"title": "Harambee"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var bad struct {
		Fields []string `json:"fields"`
	}
	decode(t, w, &bad)
	assert.ElementsMatch(t, []string{"content", "date"}, bad.Fields)

	w = s.do(http.MethodPost, "/api/news", token, gin.H{
		"title": " Harambee ", "content": "Fundraiser on Saturday", "date": "2025-04-12",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var news []models.NewsItem
	decode(t, s.do(http.MethodGet, "/api/news", "", nil), &news)
	require.Len(t, news, 1)
	assert.Equal(t, "Harambee", news[0].Title)
	assert.Equal(t, "editor", news[0].AuthorID)

	w = s.do(http.MethodGet, "/api/youth-connect", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestJobSeekerProfileUpsert(t *testing.T) {
	s := newTestServer(t)
	token := s.seed(t, "kamau")

	w := s.do(http.MethodGet, "/api/job-seekers/me", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	profile := gin.H{
		"fullName":     "Kamau Njoroge",
		"location":     "Meru",
		"contactEmail": "kamau@example.com",
		"education":    []gin.H{{"degree": "BSc", "institution": "Meru University"}},
		"experience":   []gin.H{{"jobTitle": "Analyst", "companyName": "Acme"}},
		"skills":       []string{"Go"},
	}
	w = s.do(http.MethodPut, "/api/job-seekers/me", token, profile)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(http.MethodPut, "/api/job-seekers/me", token, profile)
	assert.Equal(t, http.StatusOK, w.Code)

	var seekers []models.JobSeekerProfile
	decode(t, s.do(http.MethodGet, "/api/job-seekers", "", nil), &seekers)
	require.Len(t, seekers, 1)
	assert.Equal(t, "kamau", seekers[0].ID)
}

func TestPaymentsNotConfigured(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/payments/intent", "", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Njeri", "email": "njeri@example.com", "password": "secret123",
	})
	var reg struct {
		UserID string `json:"userId"`
	}
	decode(t, w, &reg)

	w = s.do(http.MethodPost, "/api/payments/intent", "", gin.H{"userId": reg.UserID})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"payments are not configured"}`, w.Body.String())

	s.seed(t, "paid")
	w = s.do(http.MethodPost, "/api/payments/intent", "", gin.H{"userId": "paid"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"user has already paid","clientSecret":"already_paid"}`, w.Body.String())
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, path, token, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestUploadServeAndThumbnail(t *testing.T) {
	s := newTestServer(t)
	token := s.seed(t, "photo")

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, multipartRequest(t, "/api/uploads", token, "file", "pic.png", pngBytes(t, 400, 200)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var info services.FileInfo
	decode(t, w, &info)
	assert.Equal(t, "image/jpeg", info.MimeType)

	w = s.do(http.MethodGet, info.URL, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, info.URL+"/thumbnail?w=100", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	thumb, _, err := image.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 100, thumb.Bounds().Dx())

	w = s.do(http.MethodGet, "/files/missing.jpg", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadAvatarRejectsNonImage(t *testing.T) {
	s := newTestServer(t)
	token := s.seed(t, "avatar")

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, multipartRequest(t, "/api/users/me/avatar", token, "profilePicture", "a.txt", []byte("plain text")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, multipartRequest(t, "/api/users/me/avatar", token, "profilePicture", "a.png", pngBytes(t, 600, 600)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var me models.User
	decode(t, s.do(http.MethodGet, "/api/users/me", token, nil), &me)
	assert.NotEmpty(t, me.ProfilePicture)
}
