package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"

	"github.com/cloudchat/internal/logger"
	"github.com/cloudchat/internal/model"
	"github.com/cloudchat/internal/repository"
	"github.com/cloudchat/internal/session"
)

const maxAuthBody = 1 << 16

type AuthHandler struct {
	users    repository.UserStore
	secret   string
	tokenTTL time.Duration
}

func NewAuthHandler(users repository.UserStore, secret string, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{users: users, secret: secret, tokenTTL: tokenTTL}
}

func decodeAuth(w http.ResponseWriter, r *http.Request) (model.AuthRequest, bool) {
	var req model.AuthRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAuthBody)).Decode(&req); err != nil {
		return req, false
	}
	req.Username = strings.TrimSpace(req.Username)
	return req, req.Username != "" && req.Password != ""
}

// Register: POST /register. Ответ текстовый: 200 при успехе, 400 при ошибке.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAuth(w, r)
	if !ok {
		writeText(w, http.StatusBadRequest, "Registration failed: username and password are required")
		return
	}
	hash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		logger.Errorf("auth: hash password: %v", err)
		writeText(w, http.StatusInternalServerError, "Registration failed: internal error")
		return
	}
	u := &model.User{Username: req.Username, PasswordHash: hash, CreatedAt: time.Now().UTC()}
	if err := h.users.Create(r.Context(), u); err != nil {
		if errors.Is(err, repository.ErrExists) {
			writeText(w, http.StatusBadRequest, "Registration failed: user already exists")
			return
		}
		logger.Errorf("auth: register %q: %v", req.Username, err)
		writeText(w, http.StatusInternalServerError, "Registration failed: internal error")
		return
	}
	logger.Infof("auth: registered %q", req.Username)
	writeText(w, http.StatusOK, "Registration successful. UserSub: "+uuid.NewString())
}

// Login: POST /login. 200 + TokenResponse; 401 текстом при неверных данных.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAuth(w, r)
	if !ok {
		writeText(w, http.StatusUnauthorized, "Login failed: username and password are required")
		return
	}
	u, err := h.users.GetByUsername(r.Context(), req.Username)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		logger.Errorf("auth: login %q: %v", req.Username, err)
		writeText(w, http.StatusInternalServerError, "Login failed: internal error")
		return
	}
	match := false
	if u != nil {
		match, err = argon2id.ComparePasswordAndHash(req.Password, u.PasswordHash)
		if err != nil {
			logger.Errorf("auth: compare hash for %q: %v", req.Username, err)
		}
	}
	if !match {
		writeText(w, http.StatusUnauthorized, "Login failed: incorrect username or password")
		return
	}
	token, err := session.Issue(u.Username, h.secret, h.tokenTTL)
	if err != nil {
		logger.Errorf("auth: issue token: %v", err)
		writeText(w, http.StatusInternalServerError, "Login failed: internal error")
		return
	}
	logger.Infof("auth: %q logged in (token %s)", u.Username, session.Mask(token))
	writeJSON(w, http.StatusOK, model.TokenResponse{
		IDToken:      token,
		AccessToken:  token,
		RefreshToken: uuid.NewString(),
		TokenType:    "Bearer",
	})
}
