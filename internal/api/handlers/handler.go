package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rohits-web03/sharegate/internal/api/middleware"
	"github.com/rohits-web03/sharegate/internal/api/services"
	"github.com/rohits-web03/sharegate/internal/config"
	"github.com/rohits-web03/sharegate/internal/models"
	"github.com/rohits-web03/sharegate/internal/share"
	"github.com/rohits-web03/sharegate/internal/utils"
)

// UserRepository is the account storage used by the auth handlers.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
}

// Handler serves the HTTP API.
type Handler struct {
	svc    *share.Service
	users  UserRepository
	google *services.GoogleOAuth
	cfg    config.Config
	logger *slog.Logger
	now    func() time.Time
}

func New(svc *share.Service, users UserRepository, google *services.GoogleOAuth, cfg config.Config, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		users:  users,
		google: google,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

var reasonMessages = map[share.Reason]string{
	share.ReasonLinkExpired:          "This link has expired",
	share.ReasonLinkInactive:         "This link is no longer active",
	share.ReasonDownloadLimitReached: "Download limit reached",
	share.ReasonPasscodeRequired:     "A passcode is required",
	share.ReasonInvalidPasscode:      "Invalid passcode",
	share.ReasonEmailRequired:        "An email address is required",
}

// writeError maps service errors to responses. Unexpected errors are logged
// and never echoed to the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if reason, ok := share.DeniedReason(err); ok {
		status := http.StatusUnauthorized
		if reason.Terminal() {
			status = http.StatusGone
		}
		utils.JSONResponse(w, status, utils.Payload{
			Success: false,
			Message: reasonMessages[reason],
			Reason:  string(reason),
		})
		return
	}

	switch {
	case errors.Is(err, share.ErrNotFound):
		utils.Fail(w, http.StatusNotFound, "Transfer not found")
	case errors.Is(err, share.ErrForbidden):
		utils.Fail(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, share.ErrInvalidInput):
		utils.Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, share.ErrInvalidGrant):
		utils.Fail(w, http.StatusUnauthorized, "Access grant is invalid or expired")
	default:
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		utils.Fail(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *Handler) requestMeta(r *http.Request) share.RequestMeta {
	return share.RequestMeta{
		IP:        utils.ClientIP(r),
		UserAgent: r.UserAgent(),
		Country:   utils.Country(r, h.cfg.CountryHeader),
	}
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched
// when allowEmpty is set.
func decodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	return err
}

func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.UserID(r.Context())
	if !ok {
		utils.Fail(w, http.StatusUnauthorized, "Unauthorized")
	}
	return id, ok
}
