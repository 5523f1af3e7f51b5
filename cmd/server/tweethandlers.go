package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

type contentRequest struct {
	Content string `json:"content"`
}

type commentRequest struct {
	Text string `json:"text"`
}

// getFeedHandler returns the caller's feed: own tweets plus those of everyone followed.
func (s *Server) getFeedHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	feed, err := s.svc.ComposeFeed(r.Context(), userID)
	if err != nil {
		writeError(w, "http/feed", err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

// createTweetHandler handles POST /api/tweets.
// Expects JSON body: {"content": "..."}
func (s *Server) createTweetHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var body contentRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, "http/tweets", err)
		return
	}

	t, err := s.svc.CreateTweet(r.Context(), userID, body.Content)
	if err != nil {
		writeError(w, "http/tweets", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) getTweetHandler(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.GetTweet(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, "http/tweets", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) deleteTweetHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	tweetID := mux.Vars(r)["id"]

	if err := s.svc.DeleteTweet(r.Context(), tweetID, userID); err != nil {
		writeError(w, "http/tweets", err)
		return
	}

	logg.Info("http/tweets", "Tweet "+tweetID+" deleted by user_id="+userID)
	writeMessage(w, http.StatusOK, "tweet deleted")
}

// toggleLikeHandler handles PUT /api/tweets/{id}/like. Returns {"liked": bool, "likeCount": n}.
func (s *Server) toggleLikeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	res, err := s.svc.ToggleLike(r.Context(), mux.Vars(r)["id"], userID)
	if err != nil {
		writeError(w, "http/likes", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// addCommentHandler handles POST /api/tweets/{id}/comments.
// Expects JSON body: {"text": "..."}. Returns 201 with {"comment": {...}}.
func (s *Server) addCommentHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var body commentRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, "http/comments", err)
		return
	}

	c, err := s.svc.AddComment(r.Context(), mux.Vars(r)["id"], userID, body.Text)
	if err != nil {
		writeError(w, "http/comments", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"comment": c})
}

func (s *Server) deleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)

	if err := s.svc.RemoveComment(r.Context(), vars["id"], vars["commentId"], userID); err != nil {
		writeError(w, "http/comments", err)
		return
	}
	writeMessage(w, http.StatusOK, "comment deleted")
}

func (s *Server) userTweetsHandler(w http.ResponseWriter, r *http.Request) {
	tweets, err := s.svc.ListByUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, "http/tweets", err)
		return
	}
	writeJSON(w, http.StatusOK, tweets)
}
