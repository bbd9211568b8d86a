package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Luismorlan/chirpmux/app_config"
	"github.com/Luismorlan/chirpmux/loader"
	"github.com/Luismorlan/chirpmux/model"
	"github.com/Luismorlan/chirpmux/server/middlewares"
	"github.com/Luismorlan/chirpmux/social"
	"github.com/Luismorlan/chirpmux/store"
	"github.com/Luismorlan/chirpmux/timeline"
	"github.com/Luismorlan/chirpmux/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	s, _ := utils.NewTestRedisStore(t)
	svc, err := social.NewService(s, store.NewKeySchema(""), app_config.DefaultTimelineAppConfig())
	require.NoError(t, err)
	return NewRouter(svc)
}

func do(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestTimelineFlow(t *testing.T) {
	router := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/followers/random", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodPost, "/follows/import?header=true", "follower_id,followee_id\n1,2\n1,2\n3,2\n")
	require.Equal(t, http.StatusOK, w.Code)
	var imported struct {
		Inserted int64 `json:"inserted"`
	}
	decode(t, w, &imported)
	assert.Equal(t, int64(2), imported.Inserted)

	w = do(t, router, http.MethodPost, "/follows", `{"follower_id": 5, "followee_id": 2}`)
	require.Equal(t, http.StatusOK, w.Code)
	var followed struct {
		Created bool `json:"created"`
	}
	decode(t, w, &followed)
	assert.True(t, followed.Created)

	w = do(t, router, http.MethodPost, "/tweets", `{"user_id": 2, "text": "hello"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var posted struct {
		TweetId uint64 `json:"tweet_id"`
	}
	decode(t, w, &posted)
	assert.NotZero(t, posted.TweetId)

	w = do(t, router, http.MethodGet, "/users/5/timeline?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	var posts []model.Post
	decode(t, w, &posts)
	require.Len(t, posts, 1)
	assert.Equal(t, posted.TweetId, posts[0].Id)
	assert.Equal(t, "hello", posts[0].Text)

	w = do(t, router, http.MethodGet, "/users/77/timeline", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = do(t, router, http.MethodGet, "/followers/random", "")
	require.Equal(t, http.StatusOK, w.Code)
	var random struct {
		FollowerId uint64 `json:"follower_id"`
	}
	decode(t, w, &random)
	assert.Contains(t, []uint64{1, 3, 5}, random.FollowerId)
}

func TestFollowQueries(t *testing.T) {
	router := newTestRouter(t)
	w := do(t, router, http.MethodPost, "/follows/import", "1,10\n1,11\n1,12\n2,10\n")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodGet, "/follows?follower_id=1&followee_id=11", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"following": true}`, w.Body.String())
	w = do(t, router, http.MethodGet, "/follows?follower_id=11&followee_id=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"following": false}`, w.Body.String())

	var following struct {
		UserId    uint64   `json:"user_id"`
		Following []uint64 `json:"following"`
	}
	w = do(t, router, http.MethodGet, "/users/1/following", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &following)
	assert.Equal(t, uint64(1), following.UserId)
	assert.ElementsMatch(t, []uint64{10, 11, 12}, following.Following)

	w = do(t, router, http.MethodGet, "/users/1/following?limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &following)
	assert.Len(t, following.Following, 2)

	w = do(t, router, http.MethodGet, "/users/5/following", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id": 5, "following": []}`, w.Body.String())

	w = do(t, router, http.MethodGet, "/users/10/followers/count", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id": 10, "followers": 2}`, w.Body.String())
}

func TestHomeTimelineLimitIsClamped(t *testing.T) {
	s, _ := utils.NewTestRedisStore(t)
	config := app_config.DefaultTimelineAppConfig()
	config.TIMELINE_MAX_SIZE = 0
	config.HOME_TIMELINE_MAX_LIMIT = 3
	svc, err := social.NewService(s, store.NewKeySchema(""), config)
	require.NoError(t, err)
	router := NewRouter(svc)

	for i := 0; i < 5; i++ {
		w := do(t, router, http.MethodPost, "/tweets", `{"user_id": 1, "text": "x"}`)
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := do(t, router, http.MethodGet, "/users/1/timeline?limit=100000000", "")
	require.Equal(t, http.StatusOK, w.Code)
	var posts []model.Post
	decode(t, w, &posts)
	assert.Len(t, posts, 3)
}

func TestBadRequests(t *testing.T) {
	router := newTestRouter(t)

	for _, tc := range []struct {
		method, path, body string
	}{
		{http.MethodPost, "/tweets", `{"text": "no author"}`},
		{http.MethodPost, "/tweets", `not json`},
		{http.MethodPost, "/follows", `{"follower_id": 1}`},
		{http.MethodGet, "/users/abc/timeline", ""},
		{http.MethodGet, "/users/-1/timeline", ""},
		{http.MethodGet, "/users/1/timeline?limit=ten", ""},
		{http.MethodPost, "/follows/import", "1,2\n1,b\n"},
		{http.MethodGet, "/follows?follower_id=1", ""},
		{http.MethodGet, "/follows?follower_id=1&followee_id=x", ""},
		{http.MethodGet, "/users/x/following", ""},
		{http.MethodGet, "/users/1/following?limit=-2", ""},
		{http.MethodGet, "/users/x/followers/count", ""},
	} {
		w := do(t, router, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "%s %s", tc.method, tc.path)
		var body struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		decode(t, w, &body)
		assert.Equal(t, ErrorBadRequest, body.Code)
		assert.NotEmpty(t, body.Msg)
	}
}

func TestImportReportsPartialLoad(t *testing.T) {
	router := newTestRouter(t)
	w := do(t, router, http.MethodPost, "/follows/import", "1,2\n3,4\n5\n")
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Code     int   `json:"code"`
		Inserted int64 `json:"inserted"`
	}
	decode(t, w, &body)
	assert.Equal(t, ErrorBadRequest, body.Code)
	// Both edges fit in the pending chunk which is never flushed.
	assert.Equal(t, int64(0), body.Inserted)
}

type failingAPI struct {
	social.API
	err error
}

func (f failingAPI) PostTweet(ctx context.Context, userId uint64, text string) (uint64, error) {
	return 9, f.err
}

func (f failingAPI) RandomFollower(ctx context.Context) (uint64, bool, error) {
	return 0, false, f.err
}

func (f failingAPI) HomeTimeline(ctx context.Context, userId uint64, limit int) ([]*model.Post, error) {
	return nil, f.err
}

func (f failingAPI) FollowerCount(ctx context.Context, userId uint64) (int64, error) {
	return 0, f.err
}

func (f failingAPI) LoadFollows(ctx context.Context, src loader.EdgeSource) (int64, error) {
	return 0, f.err
}

func TestStoreErrors(t *testing.T) {
	unavailable := NewRouter(failingAPI{err: store.Unavailable("ping", assert.AnError)})
	w := do(t, unavailable, http.MethodGet, "/users/1/timeline", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	w = do(t, unavailable, http.MethodGet, "/followers/random", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	w = do(t, unavailable, http.MethodGet, "/users/1/followers/count", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	broken := NewRouter(failingAPI{err: assert.AnError})
	w = do(t, broken, http.MethodGet, "/users/1/timeline", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body struct {
		Code int `json:"code"`
	}
	decode(t, w, &body)
	assert.Equal(t, ErrorInternal, body.Code)

	partial := NewRouter(failingAPI{err: &timeline.FanoutError{PostId: 9, Err: store.Unavailable("exec", assert.AnError)}})
	w = do(t, partial, http.MethodPost, "/tweets", `{"user_id": 1, "text": "x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var fanout struct {
		TweetId uint64 `json:"tweet_id"`
	}
	decode(t, w, &fanout)
	assert.Equal(t, uint64(9), fanout.TweetId)
}

func TestPingAndRequestId(t *testing.T) {
	router := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message": "pong"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middlewares.RequestIdHeader))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(middlewares.RequestIdHeader, "abc")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(middlewares.RequestIdHeader))
}
