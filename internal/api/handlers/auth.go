package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/rohits-web03/sharegate/internal/api/middleware"
	"github.com/rohits-web03/sharegate/internal/models"
	"github.com/rohits-web03/sharegate/internal/repositories"
	"github.com/rohits-web03/sharegate/internal/utils"
)

const (
	sessionTTL       = 24 * time.Hour
	oauthStateCookie = "oauth_state"
	oauthStateTTL    = 10 * time.Minute
	flowLogin        = "login"
	flowRegister     = "register"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterUser godoc
// @Summary Create an owner account
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body registerRequest true "Account"
// @Success 201 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Router /api/v1/auth/sign-up [post]
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var input registerRequest
	if err := decodeJSON(r, &input, false); err != nil {
		utils.Fail(w, http.StatusBadRequest, "Invalid input")
		return
	}

	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Username == "" || input.Password == "" {
		utils.Fail(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		utils.Fail(w, http.StatusBadRequest, "Invalid email address")
		return
	}

	ctx := r.Context()
	if _, err := h.users.FindByUsername(ctx, input.Username); err == nil {
		utils.Fail(w, http.StatusBadRequest, "Username is already taken")
		return
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		h.writeError(w, r, err)
		return
	}

	if _, err := h.users.FindByEmail(ctx, input.Email); err == nil {
		utils.Fail(w, http.StatusBadRequest, "User already exists with this email")
		return
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		h.writeError(w, r, err)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.Fail(w, http.StatusBadRequest, "Password is too long")
		return
	}

	if err := h.users.Create(ctx, &models.User{
		Username: input.Username,
		Email:    input.Email,
		Password: string(hashedPassword),
	}); err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "User registered successfully",
	})
}

// LoginUser godoc
// @Summary Sign in
// @Description Sets the session cookie on success.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body loginRequest true "Credentials"
// @Success 200 {object} utils.Payload
// @Failure 401 {object} utils.Payload
// @Router /api/v1/auth/login [post]
func (h *Handler) LoginUser(w http.ResponseWriter, r *http.Request) {
	var input loginRequest
	if err := decodeJSON(r, &input, false); err != nil || input.Username == "" || input.Password == "" {
		utils.Fail(w, http.StatusBadRequest, "Invalid input")
		return
	}

	user, err := h.users.FindByUsername(r.Context(), input.Username)
	if errors.Is(err, repositories.ErrUserNotFound) {
		utils.Fail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// Google accounts have no password and cannot sign in here.
	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)) != nil {
		utils.Fail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := h.setSession(w, user); err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Login successful",
	})
}

// Logout godoc
// @Summary Sign out
// @Tags Auth
// @Produce json
// @Success 200 {object} utils.Payload
// @Router /api/v1/auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.cookie(middleware.SessionCookie, "", -1))

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Logged out successfully",
	})
}

// HandleGoogleLogin godoc
// @Summary Start Google sign-in
// @Tags Auth
// @Param redirect query string false "login or register" default(login)
// @Success 307
// @Router /api/v1/auth/google/login [get]
func (h *Handler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.google == nil || !h.google.Enabled() {
		utils.Fail(w, http.StatusNotFound, "Google sign-in is not configured")
		return
	}

	flow := r.URL.Query().Get("redirect")
	if flow != flowRegister {
		flow = flowLogin
	}

	state, err := GenerateState(map[string]string{"flow": flow})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	http.SetCookie(w, h.cookie(oauthStateCookie, state, int(oauthStateTTL.Seconds())))
	http.Redirect(w, r, h.google.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback godoc
// @Summary Finish Google sign-in
// @Tags Auth
// @Param state query string true "OAuth state"
// @Param code query string true "Authorization code"
// @Success 307
// @Router /api/v1/auth/google/callback [get]
func (h *Handler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.google == nil || !h.google.Enabled() {
		utils.Fail(w, http.StatusNotFound, "Google sign-in is not configured")
		return
	}

	state := r.FormValue("state")
	stored, err := r.Cookie(oauthStateCookie)
	if err != nil || subtle.ConstantTimeCompare([]byte(stored.Value), []byte(state)) != 1 {
		utils.Fail(w, http.StatusBadRequest, "Invalid OAuth state")
		return
	}
	http.SetCookie(w, h.cookie(oauthStateCookie, "", -1))

	stateData, err := DecodeState(state)
	if err != nil {
		utils.Fail(w, http.StatusBadRequest, "Invalid OAuth state")
		return
	}
	flow := stateData["flow"]

	googleUser, err := h.google.FetchUser(r.Context(), r.FormValue("code"))
	if err != nil {
		h.logger.Warn("google sign-in failed", "error", err)
		h.redirectFrontend(w, r, "/login", "error", "google_failed")
		return
	}

	email := strings.ToLower(googleUser.Email)
	user, err := h.users.FindByEmail(r.Context(), email)
	switch {
	case err == nil && flow == flowRegister:
		h.redirectFrontend(w, r, "/login", "error", "user_already_exists")
		return
	case errors.Is(err, repositories.ErrUserNotFound) && flow == flowRegister:
		user = &models.User{Username: googleUser.Name, Email: email}
		if user.Username == "" {
			user.Username = email
		}
		if err := h.users.Create(r.Context(), user); err != nil {
			h.writeError(w, r, err)
			return
		}
	case errors.Is(err, repositories.ErrUserNotFound):
		h.redirectFrontend(w, r, "/register", "error", "user_not_found")
		return
	case err != nil:
		h.writeError(w, r, err)
		return
	}

	if err := h.setSession(w, user); err != nil {
		h.writeError(w, r, err)
		return
	}

	status := "success_login"
	if flow == flowRegister {
		status = "success_register"
	}
	h.redirectFrontend(w, r, "/transfers", "status", status)
}

func (h *Handler) setSession(w http.ResponseWriter, user *models.User) error {
	now := h.now()
	claims := &middleware.SessionClaims{
		UserID:   user.ID.String(),
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		return err
	}

	http.SetCookie(w, h.cookie(middleware.SessionCookie, tokenString, int(sessionTTL.Seconds())))
	return nil
}

// cookie builds an HttpOnly cookie. Production runs the frontend on another
// site, so cookies there are SameSite=None and Secure.
func (h *Handler) cookie(name, value string, maxAge int) *http.Cookie {
	isProd := h.cfg.IsProduction()
	sameSite := http.SameSiteLaxMode
	if isProd {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   isProd,
		HttpOnly: true,
		SameSite: sameSite,
	}
}

func (h *Handler) redirectFrontend(w http.ResponseWriter, r *http.Request, path, key, value string) {
	target := strings.TrimRight(h.cfg.FrontendURL, "/") + path + "?" + url.Values{key: {value}}.Encode()
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}
