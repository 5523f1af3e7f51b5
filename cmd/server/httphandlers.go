package server

import (
	"net/http"

	"example.com/minitweet/internal/apperr"
	"example.com/minitweet/internal/middleware"
	"example.com/minitweet/internal/service"
	"github.com/gorilla/mux"
)

// --- Auth handlers ---

// registerHandler handles POST /api/auth/register.
// Expects JSON body: {"username": "...", "email": "...", "password": "..."}
// Returns 201 with {"token": ..., "user": {...}}.
func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var body service.RegisterInput
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, "http/auth", err)
		return
	}

	sess, err := s.svc.Register(r.Context(), body)
	if err != nil {
		writeError(w, "http/auth", err)
		return
	}

	logg.Info("http/auth", "User registered with user_id="+sess.User.ID)
	writeJSON(w, http.StatusCreated, sess)
}

// loginHandler handles POST /api/auth/login.
// Expects JSON body: {"usernameOrEmail": "...", "password": "..."}
func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var body service.LoginInput
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, "http/auth", err)
		return
	}

	sess, err := s.svc.Login(r.Context(), body)
	if err != nil {
		writeError(w, "http/auth", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// --- User handlers ---

// searchUsersHandler handles GET /api/users/search?username=q.
func (s *Server) searchUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.SearchUsers(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		writeError(w, "http/users", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// getUserHandler serves GET /api/users/{id}. A valid token is optional; the owner
// additionally sees their email.
func (s *Server) getUserHandler(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := middleware.UserIDFromContext(r.Context())
	profile, err := s.svc.Profile(r.Context(), mux.Vars(r)["id"], viewerID)
	if err != nil {
		writeError(w, "http/users", err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// followHandler handles PUT /api/users/{id}/follow for the authenticated user.
func (s *Server) followHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	targetID := mux.Vars(r)["id"]

	if err := s.svc.Follow(r.Context(), userID, targetID); err != nil {
		writeError(w, "http/follow", err)
		return
	}

	logg.Info("http/follow", "User "+userID+" followed "+targetID)
	writeMessage(w, http.StatusOK, "followed")
}

func (s *Server) unfollowHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	targetID := mux.Vars(r)["id"]

	if err := s.svc.Unfollow(r.Context(), userID, targetID); err != nil {
		writeError(w, "http/follow", err)
		return
	}

	logg.Info("http/follow", "User "+userID+" unfollowed "+targetID)
	writeMessage(w, http.StatusOK, "unfollowed")
}

// activityHandler returns the caller's activity log, newest first.
func (s *Server) activityHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	acts, err := s.svc.Activity(r.Context(), userID)
	if err != nil {
		writeError(w, "http/activity", err)
		return
	}
	writeJSON(w, http.StatusOK, acts)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// callerID reads the verified user id placed in the context by JWTAuth.
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		logg.Info("http", "Unauthorized request to "+r.URL.Path)
		writeError(w, "http", apperr.ErrUnauthorized)
		return "", false
	}
	return userID, true
}
