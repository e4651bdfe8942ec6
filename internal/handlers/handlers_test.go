package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SL1dee36/Connect/internal/media"
	"github.com/SL1dee36/Connect/internal/models"
	"github.com/SL1dee36/Connect/internal/router"
	"github.com/SL1dee36/Connect/validators"
	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testServer struct {
	e     *echo.Echo
	db    *gorm.DB
	store *media.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "connect.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	store, err := media.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new media store: %v", err)
	}

	e := echo.New()
	e.Validator = validators.NewValidator()
	router.SetupMiddleware(e)
	router.SetupRoutes(e, db, store)
	return &testServer{e: e, db: db, store: store}
}

func (ts *testServer) doJSON(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) doForm(t *testing.T, method, path string, form url.Values, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) doMultipart(t *testing.T, path string, fields map[string]string, fileField, filename string, fileData []byte, token string) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(fileData); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

// register creates a user through the registration endpoint and returns the
// issued token.
func (ts *testServer) register(t *testing.T, username, email string) string {
	t.Helper()

	rec := ts.doJSON(t, http.MethodPost, "/auth/register", map[string]string{
		"username": username,
		"password": "secret-pass",
		"email":    email,
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d: %s", username, rec.Code, rec.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("register %s: empty token", username)
	}
	return resp.Token
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response %s: %v", rec.Body.String(), err)
	}
	return m
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 10, G: 160, B: 90, A: 255}}, image.Point{}, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestEndToEndFriendshipAndMessaging(t *testing.T) {
	ts := newTestServer(t)
	aliceTok := ts.register(t, "alice", "a@x.com")
	bobTok := ts.register(t, "bob", "b@x.com")

	// alice sends bob a friend request
	if rec := ts.doJSON(t, http.MethodGet, "/send_friend_request/bob", nil, aliceTok); rec.Code != http.StatusOK {
		t.Fatalf("send friend request: %d: %s", rec.Code, rec.Body.String())
	}

	// bob sees exactly one pending request
	rec := ts.doJSON(t, http.MethodGet, "/friend_requests", nil, bobTok)
	if rec.Code != http.StatusOK {
		t.Fatalf("friend requests: %d: %s", rec.Code, rec.Body.String())
	}
	var pending []models.FriendRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &pending); err != nil {
		t.Fatalf("decode pending requests: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending request, got %d", len(pending))
	}

	// bob accepts
	if rec := ts.doJSON(t, http.MethodGet, "/accept_friend_request/alice", nil, bobTok); rec.Code != http.StatusOK {
		t.Fatalf("accept friend request: %d: %s", rec.Code, rec.Body.String())
	}

	// friendship is symmetric
	for _, tc := range []struct{ profile, token string }{
		{"bob", aliceTok},
		{"alice", bobTok},
	} {
		rec := ts.doJSON(t, http.MethodGet, "/profile/"+tc.profile, nil, tc.token)
		if rec.Code != http.StatusOK {
			t.Fatalf("profile %s: %d: %s", tc.profile, rec.Code, rec.Body.String())
		}
		if m := decodeMap(t, rec); m["is_friend"] != true {
			t.Fatalf("expected is_friend=true on %s's profile, got %v", tc.profile, m["is_friend"])
		}
	}

	// alice messages bob
	rec = ts.doForm(t, http.MethodPost, "/send_message", url.Values{
		"recipient_username": {"bob"},
		"message":            {"hi"},
	}, aliceTok)
	if rec.Code != http.StatusOK {
		t.Fatalf("send message: %d: %s", rec.Code, rec.Body.String())
	}

	// bob's chat list shows one chat with one unread
	rec = ts.doJSON(t, http.MethodGet, "/", nil, bobTok)
	if rec.Code != http.StatusOK {
		t.Fatalf("home: %d: %s", rec.Code, rec.Body.String())
	}
	home := decodeMap(t, rec)
	chats, ok := home["chats"].([]any)
	if !ok || len(chats) != 1 {
		t.Fatalf("expected 1 chat, got %v", home["chats"])
	}
	chat := chats[0].(map[string]any)
	if chat["unread_count"].(float64) != 1 {
		t.Fatalf("expected unread_count=1, got %v", chat["unread_count"])
	}
	last := chat["last_message"].(map[string]any)
	if last["text"] != "hi" {
		t.Fatalf("expected last message 'hi', got %v", last["text"])
	}

	// bob opens the thread, which marks the message read
	rec = ts.doJSON(t, http.MethodGet, "/im/alice", nil, bobTok)
	if rec.Code != http.StatusOK {
		t.Fatalf("open thread: %d: %s", rec.Code, rec.Body.String())
	}
	thread := decodeMap(t, rec)
	messages := thread["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("expected 1 message in thread, got %d", len(messages))
	}
	if messages[0].(map[string]any)["read"] != true {
		t.Fatalf("expected message marked read, got %v", messages[0])
	}

	// unread count drops to zero
	rec = ts.doJSON(t, http.MethodGet, "/", nil, bobTok)
	home = decodeMap(t, rec)
	chat = home["chats"].([]any)[0].(map[string]any)
	if chat["unread_count"].(float64) != 0 {
		t.Fatalf("expected unread_count=0 after reading, got %v", chat["unread_count"])
	}
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice", "a@x.com")

	// duplicate username
	rec := ts.doJSON(t, http.MethodPost, "/auth/register", map[string]string{
		"username": "alice", "password": "secret-pass", "email": "other@x.com",
	}, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate username: expected 409, got %d", rec.Code)
	}

	// duplicate email
	rec = ts.doJSON(t, http.MethodPost, "/auth/register", map[string]string{
		"username": "alice2", "password": "secret-pass", "email": "a@x.com",
	}, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate email: expected 409, got %d", rec.Code)
	}

	// malformed phone
	rec = ts.doJSON(t, http.MethodPost, "/auth/register", map[string]string{
		"username": "bob", "password": "secret-pass", "email": "b@x.com", "phone": "12345",
	}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad phone: expected 400, got %d", rec.Code)
	}

	// well-formed phone
	rec = ts.doJSON(t, http.MethodPost, "/auth/register", map[string]string{
		"username": "bob", "password": "secret-pass", "email": "b@x.com", "phone": "+374 123-45-67",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("valid phone: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestLoginTracksFailedAttempts(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice", "a@x.com")

	rec := ts.doJSON(t, http.MethodPost, "/auth/login", map[string]string{
		"username": "alice", "password": "wrong",
	}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: expected 401, got %d", rec.Code)
	}

	var user models.User
	if err := ts.db.Where("username = ?", "alice").First(&user).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.FailedLogins != 1 {
		t.Fatalf("expected 1 failed login, got %d", user.FailedLogins)
	}

	rec = ts.doJSON(t, http.MethodPost, "/auth/login", map[string]string{
		"username": "alice", "password": "secret-pass",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if err := ts.db.Where("username = ?", "alice").First(&user).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if user.FailedLogins != 0 {
		t.Fatalf("expected counter reset after success, got %d", user.FailedLogins)
	}
}

func TestMessagingPolicyEnforcement(t *testing.T) {
	ts := newTestServer(t)
	carolTok := ts.register(t, "carol", "c@x.com")
	daveTok := ts.register(t, "dave", "d@x.com")

	send := func(token, to, text string) *httptest.ResponseRecorder {
		return ts.doForm(t, http.MethodPost, "/send_message", url.Values{
			"recipient_username": {to},
			"message":            {text},
		}, token)
	}

	// strangers with default settings cannot message each other
	if rec := send(daveTok, "carol", "hey"); rec.Code != http.StatusForbidden {
		t.Fatalf("stranger message: expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := ts.doJSON(t, http.MethodGet, "/im/carol", nil, daveTok); rec.Code != http.StatusForbidden {
		t.Fatalf("stranger thread: expected 403, got %d", rec.Code)
	}

	// carol opens her inbox to everyone
	rec := ts.doForm(t, http.MethodPost, "/profile/carol/save_settings", url.Values{
		"messageSettings": {"all"},
	}, carolTok)
	if rec.Code != http.StatusOK {
		t.Fatalf("save settings: %d: %s", rec.Code, rec.Body.String())
	}
	if rec := send(daveTok, "carol", "hey"); rec.Code != http.StatusOK {
		t.Fatalf("open-inbox message: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// closing the inbox again keeps the existing thread writable
	rec = ts.doForm(t, http.MethodPost, "/profile/carol/save_settings", url.Values{
		"messageSettings": {"friends"},
	}, carolTok)
	if rec.Code != http.StatusOK {
		t.Fatalf("save settings: %d: %s", rec.Code, rec.Body.String())
	}
	if rec := send(daveTok, "carol", "still here"); rec.Code != http.StatusOK {
		t.Fatalf("grandfathered message: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSendMessageValidation(t *testing.T) {
	ts := newTestServer(t)
	aliceTok := ts.register(t, "alice", "a@x.com")

	rec := ts.doForm(t, http.MethodPost, "/send_message", url.Values{
		"recipient_username": {"nobody"},
		"message":            {"hi"},
	}, aliceTok)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown recipient: expected 404, got %d", rec.Code)
	}

	ts.register(t, "bob", "b@x.com")
	rec = ts.doForm(t, http.MethodPost, "/send_message", url.Values{
		"recipient_username": {"bob"},
		"message":            {"   "},
	}, aliceTok)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank message: expected 400, got %d", rec.Code)
	}
}

func TestGetNewMessages(t *testing.T) {
	ts := newTestServer(t)
	aliceTok := ts.register(t, "alice", "a@x.com")
	bobTok := ts.register(t, "bob", "b@x.com")

	// establish a thread via an open inbox
	rec := ts.doForm(t, http.MethodPost, "/profile/bob/save_settings", url.Values{
		"messageSettings": {"all"},
	}, bobTok)
	if rec.Code != http.StatusOK {
		t.Fatalf("save settings: %d: %s", rec.Code, rec.Body.String())
	}
	rec = ts.doForm(t, http.MethodPost, "/send_message", url.Values{
		"recipient_username": {"bob"},
		"message":            {"ping"},
	}, aliceTok)
	if rec.Code != http.StatusOK {
		t.Fatalf("send message: %d: %s", rec.Code, rec.Body.String())
	}

	// identity parameter must match the authenticated viewer
	rec = ts.doJSON(t, http.MethodGet, "/get_new_messages?recipient_username=alice&current_user_id=9999", nil, bobTok)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("identity mismatch: expected 403, got %d", rec.Code)
	}

	var bob models.User
	if err := ts.db.Where("username = ?", "bob").First(&bob).Error; err != nil {
		t.Fatalf("load bob: %v", err)
	}

	path := fmt.Sprintf("/get_new_messages?recipient_username=alice&current_user_id=%d", bob.ID)
	rec = ts.doJSON(t, http.MethodGet, path, nil, bobTok)
	if rec.Code != http.StatusOK {
		t.Fatalf("poll: %d: %s", rec.Code, rec.Body.String())
	}
	m := decodeMap(t, rec)
	if msgs := m["messages"].([]any); len(msgs) != 1 {
		t.Fatalf("expected 1 new message, got %d", len(msgs))
	}

	// polling again yields an empty delta
	rec = ts.doJSON(t, http.MethodGet, path, nil, bobTok)
	m = decodeMap(t, rec)
	if msgs := m["messages"].([]any); len(msgs) != 0 {
		t.Fatalf("expected empty delta, got %d messages", len(msgs))
	}
}

func TestCreatePostValidation(t *testing.T) {
	ts := newTestServer(t)
	aliceTok := ts.register(t, "alice", "a@x.com")
	bobTok := ts.register(t, "bob", "b@x.com")

	// no content at all
	rec := ts.doForm(t, http.MethodPost, "/profile/alice/create_post", url.Values{}, aliceTok)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty post: expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	// text alone is enough
	rec = ts.doForm(t, http.MethodPost, "/profile/alice/create_post", url.Values{
		"text": {"hello world"},
	}, aliceTok)
	if rec.Code != http.StatusCreated {
		t.Fatalf("text post: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	// posting on someone else's profile is forbidden
	rec = ts.doForm(t, http.MethodPost, "/profile/alice/create_post", url.Values{
		"text": {"intruder"},
	}, bobTok)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign profile post: expected 403, got %d", rec.Code)
	}
}

func TestCreatePostWithImage(t *testing.T) {
	ts := newTestServer(t)
	aliceTok := ts.register(t, "alice", "a@x.com")

	rec := ts.doMultipart(t, "/profile/alice/create_post",
		map[string]string{"text": "look at this"},
		"image", "pic.png", testPNG(t, 64, 64), aliceTok)
	if rec.Code != http.StatusCreated {
		t.Fatalf("image post: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	m := decodeMap(t, rec)
	post := m["post"].(map[string]any)
	filename, _ := post["image"].(string)
	if filename == "" || !strings.HasPrefix(filename, "alice_") || !strings.HasSuffix(filename, ".jpg") {
		t.Fatalf("unexpected stored image name %q", filename)
	}
	if _, err := os.Stat(filepath.Join(ts.store.Dir(media.ImageDir), filename)); err != nil {
		t.Fatalf("stored image missing: %v", err)
	}

	// unsupported extension is rejected
	rec = ts.doMultipart(t, "/profile/alice/create_post",
		nil, "image", "doc.pdf", []byte("%PDF"), aliceTok)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad extension: expected 400, got %d", rec.Code)
	}
}

func TestDeletePostPermissions(t *testing.T) {
	ts := newTestServer(t)
	aliceTok := ts.register(t, "alice", "a@x.com")
	bobTok := ts.register(t, "bob", "b@x.com")

	rec := ts.doForm(t, http.MethodPost, "/profile/alice/create_post", url.Values{
		"text": {"mine"},
	}, aliceTok)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create post: %d: %s", rec.Code, rec.Body.String())
	}
	post := decodeMap(t, rec)["post"].(map[string]any)
	postID := int(post["id"].(float64))

	// only the author may delete
	rec = ts.doJSON(t, http.MethodDelete, fmt.Sprintf("/profile/alice/delete_post/%d", postID), nil, bobTok)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign delete: expected 403, got %d", rec.Code)
	}

	rec = ts.doJSON(t, http.MethodDelete, fmt.Sprintf("/profile/alice/delete_post/%d", postID), nil, aliceTok)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.doJSON(t, http.MethodDelete, fmt.Sprintf("/profile/alice/delete_post/%d", postID), nil, aliceTok)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("delete missing: expected 404, got %d", rec.Code)
	}
}

func TestFeedAnonymousSample(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice", "a@x.com")

	var alice models.User
	if err := ts.db.Where("username = ?", "alice").First(&alice).Error; err != nil {
		t.Fatalf("load alice: %v", err)
	}
	for i := 0; i < 25; i++ {
		if err := ts.db.Create(&models.Post{UserID: alice.ID, Text: fmt.Sprintf("post %d", i)}).Error; err != nil {
			t.Fatalf("seed post: %v", err)
		}
	}

	rec := ts.doJSON(t, http.MethodGet, "/feed", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("anonymous feed: %d: %s", rec.Code, rec.Body.String())
	}
	posts := decodeMap(t, rec)["posts"].([]any)
	if len(posts) > 20 {
		t.Fatalf("anonymous feed must cap at 20 posts, got %d", len(posts))
	}

	rec = ts.doJSON(t, http.MethodGet, "/feed?limit=5", nil, "")
	posts = decodeMap(t, rec)["posts"].([]any)
	if len(posts) != 5 {
		t.Fatalf("expected limit=5 to cap the feed, got %d", len(posts))
	}
}

func TestFeedLoggedInSources(t *testing.T) {
	ts := newTestServer(t)
	viewerTok := ts.register(t, "viewer", "v@x.com")
	ts.register(t, "friend", "f@x.com")
	ts.register(t, "mutual", "m@x.com")
	ts.register(t, "fof", "ff@x.com")

	users := make(map[string]models.User)
	for _, name := range []string{"viewer", "friend", "mutual", "fof"} {
		var u models.User
		if err := ts.db.Where("username = ?", name).First(&u).Error; err != nil {
			t.Fatalf("load %s: %v", name, err)
		}
		users[name] = u
	}

	// viewer - friend, viewer - mutual, mutual - fof
	for _, pair := range [][2]uint{
		{users["viewer"].ID, users["friend"].ID},
		{users["viewer"].ID, users["mutual"].ID},
		{users["mutual"].ID, users["fof"].ID},
	} {
		if err := ts.db.Create(&models.Friendship{UserID1: pair[0], UserID2: pair[1]}).Error; err != nil {
			t.Fatalf("seed friendship: %v", err)
		}
	}

	for name, u := range users {
		if err := ts.db.Create(&models.Post{UserID: u.ID, Text: "by " + name}).Error; err != nil {
			t.Fatalf("seed post: %v", err)
		}
	}

	rec := ts.doJSON(t, http.MethodGet, "/feed", nil, viewerTok)
	if rec.Code != http.StatusOK {
		t.Fatalf("feed: %d: %s", rec.Code, rec.Body.String())
	}
	posts := decodeMap(t, rec)["posts"].([]any)

	seen := make(map[float64]bool)
	foundFriend, foundFof := false, false
	for _, p := range posts {
		post := p.(map[string]any)
		id := post["id"].(float64)
		if seen[id] {
			t.Fatalf("duplicate post %v in feed", id)
		}
		seen[id] = true

		authorID := uint(post["user_id"].(float64))
		if authorID == users["viewer"].ID {
			t.Fatalf("feed must not contain the viewer's own posts")
		}
		if authorID == users["friend"].ID {
			foundFriend = true
		}
		if authorID == users["fof"].ID {
			foundFof = true
		}
	}
	if !foundFriend {
		t.Fatalf("expected the friend's post in the feed")
	}
	if !foundFof {
		t.Fatalf("expected the friend-of-friend's post in the feed")
	}
}

func TestSearchFriends(t *testing.T) {
	ts := newTestServer(t)
	aliceTok := ts.register(t, "alice", "a@x.com")
	ts.register(t, "alicia", "al@x.com")
	ts.register(t, "bob", "b@x.com")

	// anonymous search returns nothing
	rec := ts.doJSON(t, http.MethodPost, "/search_friends", map[string]string{"query": "ali"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("anonymous search: %d", rec.Code)
	}
	var results []models.UserSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty results for anonymous search, got %d", len(results))
	}

	rec = ts.doJSON(t, http.MethodPost, "/search_friends", map[string]string{"query": "ali"}, aliceTok)
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected alice and alicia, got %d results", len(results))
	}
	for _, r := range results {
		if !strings.HasPrefix(r.ProfileURL, "/profile/") {
			t.Fatalf("unexpected profile url %q", r.ProfileURL)
		}
	}
}

func TestAvatarUpload(t *testing.T) {
	ts := newTestServer(t)
	aliceTok := ts.register(t, "alice", "a@x.com")
	bobTok := ts.register(t, "bob", "b@x.com")

	// bob cannot change alice's avatar
	rec := ts.doMultipart(t, "/profile/alice/avatar", nil, "avatar", "me.png", testPNG(t, 800, 600), bobTok)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign avatar upload: expected 403, got %d", rec.Code)
	}

	rec = ts.doMultipart(t, "/profile/alice/avatar", nil, "avatar", "me.png", testPNG(t, 800, 600), aliceTok)
	if rec.Code != http.StatusOK {
		t.Fatalf("avatar upload: %d: %s", rec.Code, rec.Body.String())
	}

	if _, err := os.Stat(filepath.Join(ts.store.Dir(media.AvatarDir), "alice_avatar.jpg")); err != nil {
		t.Fatalf("stored avatar missing: %v", err)
	}

	var alice models.User
	if err := ts.db.Where("username = ?", "alice").First(&alice).Error; err != nil {
		t.Fatalf("load alice: %v", err)
	}
	if alice.Avatar != "alice_avatar.jpg" {
		t.Fatalf("expected deterministic avatar name, got %q", alice.Avatar)
	}
}

func TestSaveSettings(t *testing.T) {
	ts := newTestServer(t)
	aliceTok := ts.register(t, "alice", "a@x.com")

	// email change requires the current password
	rec := ts.doForm(t, http.MethodPost, "/profile/alice/save_settings", url.Values{
		"newEmail": {"new@x.com"},
		"password": {"wrong"},
	}, aliceTok)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("email change with wrong password: expected 400, got %d", rec.Code)
	}

	rec = ts.doForm(t, http.MethodPost, "/profile/alice/save_settings", url.Values{
		"fullname": {"Alice Liddell"},
		"newEmail": {"new@x.com"},
		"password": {"secret-pass"},
	}, aliceTok)
	if rec.Code != http.StatusOK {
		t.Fatalf("save settings: %d: %s", rec.Code, rec.Body.String())
	}

	var alice models.User
	if err := ts.db.Where("username = ?", "alice").First(&alice).Error; err != nil {
		t.Fatalf("load alice: %v", err)
	}
	if alice.Fullname != "Alice Liddell" || alice.Email != "new@x.com" {
		t.Fatalf("settings not applied: %+v", alice)
	}

	// password change with mismatched confirmation
	rec = ts.doForm(t, http.MethodPost, "/profile/alice/save_settings", url.Values{
		"currentPassword": {"secret-pass"},
		"newPassword1":    {"brand-new-1"},
		"newPassword2":    {"brand-new-2"},
	}, aliceTok)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("mismatched new passwords: expected 400, got %d", rec.Code)
	}

	// unknown message settings value
	rec = ts.doForm(t, http.MethodPost, "/profile/alice/save_settings", url.Values{
		"messageSettings": {"everyone"},
	}, aliceTok)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad message settings: expected 400, got %d", rec.Code)
	}
}

func TestStaleTokenForDeletedUser(t *testing.T) {
	ts := newTestServer(t)
	aliceTok := ts.register(t, "alice", "a@x.com")

	var alice models.User
	if err := ts.db.Where("username = ?", "alice").First(&alice).Error; err != nil {
		t.Fatalf("load alice: %v", err)
	}
	if err := ts.db.Delete(&alice).Error; err != nil {
		t.Fatalf("delete alice: %v", err)
	}

	// the token still verifies, but the identity it names is gone
	if rec := ts.doJSON(t, http.MethodGet, "/friend_requests", nil, aliceTok); rec.Code != http.StatusUnauthorized {
		t.Fatalf("private route with stale token: expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
	rec := ts.doForm(t, http.MethodPost, "/send_message", url.Values{
		"recipient_username": {"alice"},
		"message":            {"hi"},
	}, aliceTok)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("send with stale token: expected 401, got %d", rec.Code)
	}

	// optional-auth routes degrade to the anonymous view
	rec = ts.doJSON(t, http.MethodGet, "/", nil, aliceTok)
	if rec.Code != http.StatusOK {
		t.Fatalf("home with stale token: expected 200, got %d", rec.Code)
	}
	if home := decodeMap(t, rec); home["current_user"] != nil {
		t.Fatalf("expected anonymous home view, got current_user=%v", home["current_user"])
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice", "a@x.com")

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/im/alice"},
		{http.MethodPost, "/send_message"},
		{http.MethodGet, "/get_new_messages"},
		{http.MethodGet, "/send_friend_request/alice"},
		{http.MethodPost, "/profile/alice/create_post"},
		{http.MethodGet, "/logout"},
	} {
		rec := ts.doJSON(t, tc.method, tc.path, nil, "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401 without token, got %d", tc.method, tc.path, rec.Code)
		}
	}

	// home and profile admit anonymous visitors
	if rec := ts.doJSON(t, http.MethodGet, "/", nil, ""); rec.Code != http.StatusOK {
		t.Errorf("anonymous home: expected 200, got %d", rec.Code)
	}
	if rec := ts.doJSON(t, http.MethodGet, "/profile/alice", nil, ""); rec.Code != http.StatusOK {
		t.Errorf("anonymous profile: expected 200, got %d", rec.Code)
	}
}
