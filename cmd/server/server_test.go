package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"example.com/minitweet/cmd/worker"
	appkafka "example.com/minitweet/internal/broker"
	"example.com/minitweet/internal/models"
	"example.com/minitweet/internal/service"
	"example.com/minitweet/internal/store"
	"example.com/minitweet/internal/token"
	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//
// --- Setup test server ---
//

var cheapHash = &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func setupTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	tokens := token.New("test-secret", time.Hour)
	svc := service.New(store.NewMemory(), tokens, service.Options{
		Events:     appkafka.NewPublisher(&appkafka.MockKafka{}),
		HashParams: cheapHash,
	})
	s := New(svc, tokens)

	ts := httptest.NewServer(s.routes())
	t.Cleanup(ts.Close)
	return s, ts
}

//
// --- Helpers ---
//

// sendJSONRequest sends body as JSON with an optional bearer token and checks the status.
func sendJSONRequest(t *testing.T, method, url string, body any, token string, expectedStatus int) []byte {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equalf(t, expectedStatus, resp.StatusCode, "%s %s: %s", method, url, string(b))
	return b
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}

// registerHelper registers name and returns its session.
func registerHelper(t *testing.T, ts *httptest.Server, name string) models.Session {
	t.Helper()
	body := map[string]string{"username": name, "email": name + "@example.com", "password": "password123"}
	return decode[models.Session](t, sendJSONRequest(t, http.MethodPost, ts.URL+"/api/auth/register", body, "", http.StatusCreated))
}

func postTweetHelper(t *testing.T, ts *httptest.Server, token, content string) models.Tweet {
	t.Helper()
	body := map[string]string{"content": content}
	return decode[models.Tweet](t, sendJSONRequest(t, http.MethodPost, ts.URL+"/api/tweets", body, token, http.StatusCreated))
}

func getFeedHelper(t *testing.T, ts *httptest.Server, token string) []models.Tweet {
	t.Helper()
	return decode[[]models.Tweet](t, sendJSONRequest(t, http.MethodGet, ts.URL+"/api/tweets/feed", nil, token, http.StatusOK))
}

//
// --- Tests ---
//

func TestRegisterAndLogin(t *testing.T) {
	_, ts := setupTestServer(t)

	reg := registerHelper(t, ts, "alice")
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "alice", reg.User.Username)

	raw := sendJSONRequest(t, http.MethodPost, ts.URL+"/api/auth/register",
		map[string]string{"username": "alice", "email": "x@example.com", "password": "password123"}, "", http.StatusConflict)
	assert.Contains(t, string(raw), `"error"`)

	login := decode[models.Session](t, sendJSONRequest(t, http.MethodPost, ts.URL+"/api/auth/login",
		map[string]string{"usernameOrEmail": "alice@example.com", "password": "password123"}, "", http.StatusOK))
	assert.Equal(t, reg.User.ID, login.User.ID)

	sendJSONRequest(t, http.MethodPost, ts.URL+"/api/auth/login",
		map[string]string{"usernameOrEmail": "alice", "password": "nope-nope"}, "", http.StatusUnauthorized)
}

func TestRegister_InvalidJSON(t *testing.T) {
	_, ts := setupTestServer(t)

	resp, err := http.Post(ts.URL+"/api/auth/register", "application/json", strings.NewReader(`{"username":123}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	_, ts := setupTestServer(t)

	sendJSONRequest(t, http.MethodGet, ts.URL+"/api/tweets/feed", nil, "", http.StatusUnauthorized)
	sendJSONRequest(t, http.MethodPost, ts.URL+"/api/tweets", map[string]string{"content": "x"}, "garbage", http.StatusUnauthorized)
	sendJSONRequest(t, http.MethodGet, ts.URL+"/api/activity", nil, "", http.StatusUnauthorized)

	other := token.New("other-secret", time.Hour)
	forged, _, err := other.Issue("someone")
	require.NoError(t, err)
	sendJSONRequest(t, http.MethodPut, ts.URL+"/api/users/x/follow", nil, forged, http.StatusUnauthorized)
}

// full flow: register -> follow -> post -> feed -> like -> unlike
func TestAliceBobFlow(t *testing.T) {
	_, ts := setupTestServer(t)

	alice := registerHelper(t, ts, "alice")
	t1 := postTweetHelper(t, ts, alice.Token, "hello")
	assert.Equal(t, "alice", t1.Author)
	assert.Equal(t, 0, t1.LikeCount)

	bob := registerHelper(t, ts, "bob")
	sendJSONRequest(t, http.MethodPut, ts.URL+"/api/users/"+alice.User.ID+"/follow", nil, bob.Token, http.StatusOK)
	sendJSONRequest(t, http.MethodPut, ts.URL+"/api/users/"+alice.User.ID+"/follow", nil, bob.Token, http.StatusConflict)

	feed := getFeedHelper(t, ts, bob.Token)
	require.Len(t, feed, 1)
	assert.Equal(t, t1.ID, feed[0].ID)

	likeURL := ts.URL + "/api/tweets/" + t1.ID + "/like"
	first := decode[models.LikeResult](t, sendJSONRequest(t, http.MethodPut, likeURL, nil, bob.Token, http.StatusOK))
	assert.Equal(t, models.LikeResult{Liked: true, LikeCount: 1}, first)
	second := decode[models.LikeResult](t, sendJSONRequest(t, http.MethodPut, likeURL, nil, bob.Token, http.StatusOK))
	assert.Equal(t, models.LikeResult{Liked: false, LikeCount: 0}, second)

	profile := decode[models.UserProfile](t, sendJSONRequest(t, http.MethodGet, ts.URL+"/api/users/"+alice.User.ID, nil, "", http.StatusOK))
	assert.Equal(t, 1, profile.FollowersCount)
	assert.Equal(t, "bob", profile.Followers[0].Username)

	sendJSONRequest(t, http.MethodPut, ts.URL+"/api/users/"+alice.User.ID+"/unfollow", nil, bob.Token, http.StatusOK)
	assert.Empty(t, getFeedHelper(t, ts, bob.Token))
}

func TestFollowSelf_BadRequest(t *testing.T) {
	_, ts := setupTestServer(t)
	alice := registerHelper(t, ts, "alice")

	sendJSONRequest(t, http.MethodPut, ts.URL+"/api/users/"+alice.User.ID+"/follow", nil, alice.Token, http.StatusBadRequest)
	sendJSONRequest(t, http.MethodPut, ts.URL+"/api/users/missing/follow", nil, alice.Token, http.StatusNotFound)
}

func TestCreateTweet_LengthBoundary(t *testing.T) {
	_, ts := setupTestServer(t)
	alice := registerHelper(t, ts, "alice")

	postTweetHelper(t, ts, alice.Token, strings.Repeat("a", 280))
	sendJSONRequest(t, http.MethodPost, ts.URL+"/api/tweets",
		map[string]string{"content": strings.Repeat("a", 281)}, alice.Token, http.StatusBadRequest)
}

func TestDeleteTweet_OwnerOnly(t *testing.T) {
	_, ts := setupTestServer(t)
	alice := registerHelper(t, ts, "alice")
	bob := registerHelper(t, ts, "bob")
	tw := postTweetHelper(t, ts, alice.Token, "mine")

	url := ts.URL + "/api/tweets/" + tw.ID
	sendJSONRequest(t, http.MethodDelete, url, nil, bob.Token, http.StatusForbidden)
	sendJSONRequest(t, http.MethodGet, url, nil, "", http.StatusOK)

	raw := sendJSONRequest(t, http.MethodDelete, url, nil, alice.Token, http.StatusOK)
	assert.Contains(t, string(raw), `"message"`)
	sendJSONRequest(t, http.MethodGet, url, nil, "", http.StatusNotFound)
}

func TestComments_AddAndDelete(t *testing.T) {
	_, ts := setupTestServer(t)
	alice := registerHelper(t, ts, "alice")
	bob := registerHelper(t, ts, "bob")
	tw := postTweetHelper(t, ts, alice.Token, "discuss")

	url := ts.URL + "/api/tweets/" + tw.ID + "/comments"
	res := decode[struct {
		Comment models.Comment `json:"comment"`
	}](t, sendJSONRequest(t, http.MethodPost, url, map[string]string{"text": "first!"}, bob.Token, http.StatusCreated))
	assert.Equal(t, "bob", res.Comment.Username)
	assert.Equal(t, "first!", res.Comment.Text)

	got := decode[models.Tweet](t, sendJSONRequest(t, http.MethodGet, ts.URL+"/api/tweets/"+tw.ID, nil, "", http.StatusOK))
	require.Len(t, got.Comments, 1)

	sendJSONRequest(t, http.MethodDelete, url+"/"+res.Comment.ID, nil, alice.Token, http.StatusForbidden)
	sendJSONRequest(t, http.MethodDelete, url+"/"+res.Comment.ID, nil, bob.Token, http.StatusOK)
	sendJSONRequest(t, http.MethodDelete, url+"/"+res.Comment.ID, nil, bob.Token, http.StatusNotFound)
}

func TestConcurrentLikes(t *testing.T) {
	_, ts := setupTestServer(t)
	owner := registerHelper(t, ts, "owner")
	tw := postTweetHelper(t, ts, owner.Token, "like me")

	const n = 10
	sessions := make([]models.Session, n)
	for i := range sessions {
		sessions[i] = registerHelper(t, ts, fmt.Sprintf("liker_%d", i))
	}

	var wg sync.WaitGroup
	for _, sess := range sessions {
		wg.Add(1)
		go func(tok string) {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/tweets/"+tw.ID+"/like", nil)
			req.Header.Set("Authorization", "Bearer "+tok)
			resp, err := http.DefaultClient.Do(req)
			if assert.NoError(t, err) {
				resp.Body.Close()
				assert.Equal(t, http.StatusOK, resp.StatusCode)
			}
		}(sess.Token)
	}
	wg.Wait()

	got := decode[models.Tweet](t, sendJSONRequest(t, http.MethodGet, ts.URL+"/api/tweets/"+tw.ID, nil, "", http.StatusOK))
	assert.Equal(t, n, got.LikeCount)
	assert.Len(t, got.Likes, n)
}

func TestUserTweetsAndSearch(t *testing.T) {
	_, ts := setupTestServer(t)
	alice := registerHelper(t, ts, "alice")
	registerHelper(t, ts, "malice")
	postTweetHelper(t, ts, alice.Token, "one")

	tweets := decode[[]models.Tweet](t, sendJSONRequest(t, http.MethodGet, ts.URL+"/api/tweets/user/"+alice.User.ID, nil, "", http.StatusOK))
	assert.Len(t, tweets, 1)
	sendJSONRequest(t, http.MethodGet, ts.URL+"/api/tweets/user/nobody", nil, "", http.StatusNotFound)

	found := decode[[]models.UserSummary](t, sendJSONRequest(t, http.MethodGet, ts.URL+"/api/users/search?username=LIC", nil, "", http.StatusOK))
	assert.Len(t, found, 2)
	sendJSONRequest(t, http.MethodGet, ts.URL+"/api/users/search?username=", nil, "", http.StatusBadRequest)
}

func TestHealthAndMetrics(t *testing.T) {
	_, ts := setupTestServer(t)

	raw := sendJSONRequest(t, http.MethodGet, ts.URL+"/healthz", nil, "", http.StatusOK)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "minitweet_http_requests_total")
}

func TestActivity_EmptyForNewUser(t *testing.T) {
	_, ts := setupTestServer(t)
	alice := registerHelper(t, ts, "alice")

	raw := sendJSONRequest(t, http.MethodGet, ts.URL+"/api/activity", nil, alice.Token, http.StatusOK)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestLike_StalledEventBusDoesNotDelayResponse(t *testing.T) {
	tokens := token.New("test-secret", time.Hour)
	svc := service.New(store.NewMemory(), tokens, service.Options{
		Events:         appkafka.NewPublisher(&appkafka.MockKafkaStall{}),
		HashParams:     cheapHash,
		PublishTimeout: 30 * time.Millisecond,
	})
	ts := httptest.NewServer(New(svc, tokens).routes())
	defer ts.Close()

	alice := registerHelper(t, ts, "alice")
	bob := registerHelper(t, ts, "bob")
	tw := postTweetHelper(t, ts, alice.Token, "hello")

	start := time.Now()
	res := decode[models.LikeResult](t, sendJSONRequest(t, http.MethodPut, ts.URL+"/api/tweets/"+tw.ID+"/like", nil, bob.Token, http.StatusOK))
	assert.True(t, res.Liked)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestGetUser_EmailVisibleToOwnerOnly(t *testing.T) {
	_, ts := setupTestServer(t)
	alice := registerHelper(t, ts, "alice")
	bob := registerHelper(t, ts, "bob")
	url := ts.URL + "/api/users/" + alice.User.ID

	anon := sendJSONRequest(t, http.MethodGet, url, nil, "", http.StatusOK)
	assert.NotContains(t, string(anon), "alice@example.com")
	assert.NotContains(t, string(anon), `"email"`)

	other := decode[models.UserProfile](t, sendJSONRequest(t, http.MethodGet, url, nil, bob.Token, http.StatusOK))
	assert.Empty(t, other.Email)

	own := decode[models.UserProfile](t, sendJSONRequest(t, http.MethodGet, url, nil, alice.Token, http.StatusOK))
	assert.Equal(t, "alice@example.com", own.Email)

	// An invalid token falls back to the anonymous view.
	sendJSONRequest(t, http.MethodGet, url, nil, "garbage", http.StatusOK)
}

func TestActivity_RecordedInProcessOnMemoryStore(t *testing.T) {
	tokens := token.New("test-secret", time.Hour)
	st := store.NewMemory()
	svc := service.New(st, tokens, service.Options{Events: worker.NewLocal(st), HashParams: cheapHash})
	ts := httptest.NewServer(New(svc, tokens).routes())
	defer ts.Close()

	alice := registerHelper(t, ts, "alice")
	bob := registerHelper(t, ts, "bob")
	sendJSONRequest(t, http.MethodPut, ts.URL+"/api/users/"+alice.User.ID+"/follow", nil, bob.Token, http.StatusOK)

	acts := decode[[]models.Activity](t, sendJSONRequest(t, http.MethodGet, ts.URL+"/api/activity", nil, alice.Token, http.StatusOK))
	require.Len(t, acts, 1)
	assert.Equal(t, models.EventFollow, acts[0].Kind)
	assert.Equal(t, bob.User.ID, acts[0].ActorID)
}
