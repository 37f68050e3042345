package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 24 * time.Hour

// AuthHandler issues tokens for the single admin account configured through
// ADMIN_PASSWORD_HASH.
type AuthHandler struct {
	secret       []byte
	passwordHash []byte
	now          func() time.Time
}

func NewAuthHandler(secret, passwordHash string) *AuthHandler {
	return &AuthHandler{secret: []byte(secret), passwordHash: []byte(passwordHash), now: time.Now}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if len(h.passwordHash) == 0 || len(h.secret) == 0 {
		writeErrorStatus(w, http.StatusNotFound, "authentication is not enabled")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid body")
		return
	}
	if bcrypt.CompareHashAndPassword(h.passwordHash, []byte(req.Password)) != nil {
		writeErrorStatus(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	subject := req.Username
	if subject == "" {
		subject = "admin"
	}
	token, err := h.generateJWT(subject)
	if err != nil {
		writeErrorStatus(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// generateJWT creates a signed token with a user_id claim.
func (h *AuthHandler) generateJWT(userID string) (string, error) {
	now := h.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
}
