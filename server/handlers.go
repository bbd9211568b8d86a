package server

import (
	"net/http"
	"strconv"

	"github.com/Luismorlan/chirpmux/loader"
	"github.com/Luismorlan/chirpmux/social"
	"github.com/Luismorlan/chirpmux/timeline"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

type PostTweetForm struct {
	UserId *uint64 `json:"user_id" binding:"required"`
	Text   string  `json:"text"`
}

type FollowForm struct {
	FollowerId *uint64 `json:"follower_id" binding:"required"`
	FolloweeId *uint64 `json:"followee_id" binding:"required"`
}

type Handlers struct {
	api social.API
}

func NewHandlers(api social.API) *Handlers {
	return &Handlers{api: api}
}

func (h *Handlers) PostTweet(c *gin.Context) {
	var form PostTweetForm
	if err := c.ShouldBindJSON(&form); err != nil {
		abortWithStatus(c, http.StatusBadRequest, ErrorBadRequest, err, nil)
		return
	}

	id, err := h.api.PostTweet(c.Request.Context(), *form.UserId, form.Text)
	if err != nil {
		// The post exists but did not reach every follower.
		var fanoutErr *timeline.FanoutError
		if errors.As(err, &fanoutErr) {
			abortWithError(c, err, gin.H{"tweet_id": id})
			return
		}
		abortWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tweet_id": id})
}

type FollowQuery struct {
	FollowerId *uint64 `form:"follower_id" binding:"required"`
	FolloweeId *uint64 `form:"followee_id" binding:"required"`
}

// userAndLimit reads the :id path parameter and the optional limit query, 0
// when absent. It aborts the request and returns ok false on bad input.
func userAndLimit(c *gin.Context) (userId uint64, limit int, ok bool) {
	userId, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		abortWithStatus(c, http.StatusBadRequest, ErrorBadRequest, errors.Wrap(err, "invalid user id"), nil)
		return 0, 0, false
	}
	if v := c.Query("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			abortWithStatus(c, http.StatusBadRequest, ErrorBadRequest, errors.Errorf("invalid limit %q", v), nil)
			return 0, 0, false
		}
	}
	return userId, limit, true
}

// HomeTimeline serves ?limit=n posts. The service clamps n to its maximum.
func (h *Handlers) HomeTimeline(c *gin.Context) {
	userId, limit, ok := userAndLimit(c)
	if !ok {
		return
	}

	posts, err := h.api.HomeTimeline(c.Request.Context(), userId, limit)
	if err != nil {
		abortWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (h *Handlers) Follow(c *gin.Context) {
	var form FollowForm
	if err := c.ShouldBindJSON(&form); err != nil {
		abortWithStatus(c, http.StatusBadRequest, ErrorBadRequest, err, nil)
		return
	}

	created, err := h.api.Follow(c.Request.Context(), *form.FollowerId, *form.FolloweeId)
	if err != nil {
		abortWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": created})
}

func (h *Handlers) IsFollowing(c *gin.Context) {
	var query FollowQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		abortWithStatus(c, http.StatusBadRequest, ErrorBadRequest, err, nil)
		return
	}

	following, err := h.api.IsFollowing(c.Request.Context(), *query.FollowerId, *query.FolloweeId)
	if err != nil {
		abortWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": following})
}

func (h *Handlers) Following(c *gin.Context) {
	userId, limit, ok := userAndLimit(c)
	if !ok {
		return
	}

	ids, err := h.api.Following(c.Request.Context(), userId, limit)
	if err != nil {
		abortWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userId, "following": ids})
}

func (h *Handlers) FollowerCount(c *gin.Context) {
	userId, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		abortWithStatus(c, http.StatusBadRequest, ErrorBadRequest, errors.Wrap(err, "invalid user id"), nil)
		return
	}

	count, err := h.api.FollowerCount(c.Request.Context(), userId)
	if err != nil {
		abortWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userId, "followers": count})
}

// ImportFollows loads a "follower_id,followee_id" CSV request body. Pass
// header=true when the first line is a header.
func (h *Handlers) ImportFollows(c *gin.Context) {
	hasHeader, _ := strconv.ParseBool(c.DefaultQuery("header", "false"))

	inserted, err := h.api.LoadFollows(c.Request.Context(), loader.NewCSVEdgeSource(c.Request.Body, hasHeader))
	if err != nil {
		abortWithError(c, err, gin.H{"inserted": inserted})
		return
	}
	c.JSON(http.StatusOK, gin.H{"inserted": inserted})
}

func (h *Handlers) RandomFollower(c *gin.Context) {
	id, ok, err := h.api.RandomFollower(c.Request.Context())
	if err != nil {
		abortWithError(c, err, nil)
		return
	}
	if !ok {
		abortWithStatus(c, http.StatusNotFound, ErrorNotFound, errors.New("no follower exists"), nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"follower_id": id})
}

func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}
