package handlers

import (
	"net/http"
	"strings"

	"github.com/rohits-web03/sharegate/internal/share"
	"github.com/rohits-web03/sharegate/internal/utils"
)

type verifyRequest struct {
	Passcode string `json:"passcode"`
	Email    string `json:"email"`
}

type downloadRequest struct {
	Grant string `json:"grant"`
}

// GetSharePreview godoc
// @Summary Preview a shared transfer
// @Description Returns what a viewer may see before passing the passcode and email gates.
// @Tags View
// @Produce json
// @Param id path string true "Transfer id"
// @Success 200 {object} utils.Payload{data=share.Preview}
// @Failure 404 {object} utils.Payload "Transfer not found"
// @Failure 410 {object} utils.Payload "Expired, inactive or exhausted link"
// @Router /api/v1/view/{id} [get]
func (h *Handler) GetSharePreview(w http.ResponseWriter, r *http.Request) {
	preview, err := h.svc.Preview(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Transfer found",
		Data:    preview,
	})
}

// VerifyShareAccess godoc
// @Summary Open a shared transfer
// @Description Checks status, expiry, download cap, passcode and email in that order. On success the response carries the content descriptor and a download grant.
// @Tags View
// @Accept json
// @Produce json
// @Param id path string true "Transfer id"
// @Param body body verifyRequest false "Viewer credentials"
// @Success 200 {object} utils.Payload{data=share.Access}
// @Failure 401 {object} utils.Payload "PASSCODE_REQUIRED, INVALID_PASSCODE or EMAIL_REQUIRED"
// @Failure 404 {object} utils.Payload "Transfer not found"
// @Failure 410 {object} utils.Payload "LINK_EXPIRED, LINK_INACTIVE or DOWNLOAD_LIMIT_REACHED"
// @Router /api/v1/view/{id} [post]
func (h *Handler) VerifyShareAccess(w http.ResponseWriter, r *http.Request) {
	var input verifyRequest
	if err := decodeJSON(r, &input, true); err != nil {
		utils.Fail(w, http.StatusBadRequest, "Invalid input")
		return
	}

	access, err := h.svc.Verify(r.Context(), r.PathValue("id"), share.Credentials{
		Passcode: input.Passcode,
		Email:    input.Email,
	}, h.requestMeta(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Access granted",
		Data:    access,
	})
}

// DownloadShare godoc
// @Summary Download a shared transfer
// @Description Counts one download against the cap and returns a short-lived URL for the content.
// @Tags View
// @Accept json
// @Produce json
// @Param id path string true "Transfer id"
// @Param body body downloadRequest true "Grant returned by the verify call"
// @Success 200 {object} utils.Payload{data=share.Download}
// @Failure 401 {object} utils.Payload "Missing or invalid grant"
// @Failure 410 {object} utils.Payload "DOWNLOAD_LIMIT_REACHED or LINK_INACTIVE"
// @Router /api/v1/view/{id}/download [post]
func (h *Handler) DownloadShare(w http.ResponseWriter, r *http.Request) {
	var input downloadRequest
	if err := decodeJSON(r, &input, false); err != nil || strings.TrimSpace(input.Grant) == "" {
		utils.Fail(w, http.StatusBadRequest, "Missing access grant")
		return
	}

	dl, err := h.svc.Download(r.Context(), r.PathValue("id"), input.Grant, h.requestMeta(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Download ready",
		Data:    dl,
	})
}
