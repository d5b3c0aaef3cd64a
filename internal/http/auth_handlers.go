package httpx

import (
	"net/http"

	"github.com/Luis-avalos1/TaskFlow/internal/domain"
	"github.com/Luis-avalos1/TaskFlow/internal/service/auth"
)

type sessionPayload struct {
	User   *domain.User   `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}

type refreshPayload struct {
	RefreshToken string `json:"refreshToken"`
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload auth.RegisterInput
	if !r.decode(w, req, &payload) {
		return
	}
	user, tokens, err := r.auth.Register(req.Context(), payload)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusCreated, sessionPayload{User: user, Tokens: tokens}, "User registered successfully")
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload auth.LoginInput
	if !r.decode(w, req, &payload) {
		return
	}
	user, tokens, err := r.auth.Login(req.Context(), payload)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, sessionPayload{User: user, Tokens: tokens}, "Login successful")
}

func (r *Router) handleRefresh(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload refreshPayload
	if !r.decode(w, req, &payload) {
		return
	}
	tokens, err := r.auth.Refresh(req.Context(), payload.RefreshToken)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"tokens": tokens}, "Token refreshed successfully")
}

func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	userID, ok := r.requester(w, req)
	if !ok {
		return
	}
	var payload refreshPayload
	if req.ContentLength != 0 && !r.decode(w, req, &payload) {
		return
	}
	if err := r.auth.Logout(req.Context(), userID, payload.RefreshToken); err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, nil, "Logout successful")
}

func (r *Router) handleProfile(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	userID, ok := r.requester(w, req)
	if !ok {
		return
	}
	user, err := r.auth.Profile(req.Context(), userID)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, user, "Profile retrieved successfully")
}
