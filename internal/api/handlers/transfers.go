package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rohits-web03/sharegate/internal/models"
	"github.com/rohits-web03/sharegate/internal/share"
	"github.com/rohits-web03/sharegate/internal/utils"
)

const multipartMemory = 32 << 20

type updateTransferRequest struct {
	Title             *string                `json:"title"`
	Description       *string                `json:"description"`
	ExpiresAt         *time.Time             `json:"expiresAt"`
	ClearExpiresAt    bool                   `json:"clearExpiresAt"`
	MaxDownloads      *int                   `json:"maxDownloads"`
	ClearMaxDownloads bool                   `json:"clearMaxDownloads"`
	Passcode          *string                `json:"passcode"` // "" removes the passcode
	ViewOnce          *bool                  `json:"viewOnce"`
	RequireEmail      *bool                  `json:"requireEmail"`
	Status            *models.TransferStatus `json:"status"`
}

// ListTransfers godoc
// @Summary List my transfers
// @Description Newest first, with access log and recipient counts.
// @Tags Transfers
// @Produce json
// @Success 200 {object} utils.Payload{data=[]share.TransferSummary}
// @Failure 401 {object} utils.Payload
// @Router /api/v1/transfers [get]
func (h *Handler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	transfers, err := h.svc.ListTransfers(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Transfers retrieved successfully",
		Data:    transfers,
	})
}

// CreateTransfer godoc
// @Summary Create a transfer
// @Description Upload a file or register a link and receive its share URL.
// @Tags Transfers
// @Accept multipart/form-data
// @Produce json
// @Param type formData string false "FILE or LINK" default(FILE)
// @Param file formData file false "File content for FILE transfers"
// @Param linkTarget formData string false "Target URL for LINK transfers"
// @Param title formData string false "Title"
// @Param description formData string false "Description"
// @Param passcode formData string false "Passcode"
// @Param expiresAt formData string false "RFC3339 expiry"
// @Param maxDownloads formData int false "Download cap"
// @Param requireEmail formData bool false "Require viewers to give an email"
// @Param viewOnce formData bool false "Expire after the first view"
// @Success 201 {object} utils.Payload{data=share.Created}
// @Failure 400 {object} utils.Payload
// @Failure 401 {object} utils.Payload
// @Router /api/v1/transfers [post]
func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.Fail(w, http.StatusRequestEntityTooLarge, "Upload exceeds the size limit")
			return
		}
		utils.Fail(w, http.StatusBadRequest, "Invalid transfer form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	input, err := parseCreateForm(r)
	if err != nil {
		utils.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	if input.Type == models.TransferTypeFile || input.Type == "" {
		file, header, err := r.FormFile("file")
		if err == nil {
			defer file.Close()
			if header.Size > h.cfg.MaxUploadBytes {
				utils.Fail(w, http.StatusRequestEntityTooLarge, "Upload exceeds the size limit")
				return
			}
			input.Upload = &share.Upload{
				FileName:    header.Filename,
				Size:        header.Size,
				ContentType: header.Header.Get("Content-Type"),
				Body:        file,
			}
		}
	}

	created, err := h.svc.CreateTransfer(r.Context(), userID, input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "Transfer created",
		Data:    created,
	})
}

func parseCreateForm(r *http.Request) (share.CreateInput, error) {
	in := share.CreateInput{
		Type:        models.TransferType(strings.ToUpper(strings.TrimSpace(r.FormValue("type")))),
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		LinkTarget:  r.FormValue("linkTarget"),
		Passcode:    r.FormValue("passcode"),
	}

	if v := strings.TrimSpace(r.FormValue("expiresAt")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return in, fmt.Errorf("expiresAt must be an RFC3339 timestamp")
		}
		in.ExpiresAt = &t
	}
	if v := strings.TrimSpace(r.FormValue("maxDownloads")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return in, fmt.Errorf("maxDownloads must be a number")
		}
		in.MaxDownloads = &n
	}

	var err error
	if in.RequireEmail, err = formBool(r, "requireEmail"); err != nil {
		return in, err
	}
	if in.ViewOnce, err = formBool(r, "viewOnce"); err != nil {
		return in, err
	}
	return in, nil
}

func formBool(r *http.Request, key string) (bool, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false", key)
	}
	return b, nil
}

// GetTransfer godoc
// @Summary Get one of my transfers
// @Description Includes the share URL, recipient count and the 50 most recent access logs.
// @Tags Transfers
// @Produce json
// @Param id path string true "Transfer id"
// @Success 200 {object} utils.Payload{data=share.Detail}
// @Failure 403 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/transfers/{id} [get]
func (h *Handler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	detail, err := h.svc.GetTransfer(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Transfer retrieved successfully",
		Data:    detail,
	})
}

// UpdateTransfer godoc
// @Summary Edit a transfer
// @Description Omitted fields are unchanged. An empty passcode removes it. status only accepts REVOKED.
// @Tags Transfers
// @Accept json
// @Produce json
// @Param id path string true "Transfer id"
// @Param body body updateTransferRequest true "Changes"
// @Success 200 {object} utils.Payload{data=models.Transfer}
// @Failure 400 {object} utils.Payload
// @Failure 403 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/transfers/{id} [patch]
func (h *Handler) UpdateTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input updateTransferRequest
	if err := decodeJSON(r, &input, false); err != nil {
		utils.Fail(w, http.StatusBadRequest, "Invalid input")
		return
	}

	t, err := h.svc.UpdateTransfer(r.Context(), userID, r.PathValue("id"), share.UpdateInput{
		Title:             input.Title,
		Description:       input.Description,
		ExpiresAt:         input.ExpiresAt,
		ClearExpiresAt:    input.ClearExpiresAt,
		MaxDownloads:      input.MaxDownloads,
		ClearMaxDownloads: input.ClearMaxDownloads,
		Passcode:          input.Passcode,
		ViewOnce:          input.ViewOnce,
		RequireEmail:      input.RequireEmail,
		Status:            input.Status,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Transfer updated",
		Data:    t,
	})
}

// RevokeTransfer godoc
// @Summary Revoke a transfer
// @Description Permanently disables the share link. Revoking twice is not an error.
// @Tags Transfers
// @Produce json
// @Param id path string true "Transfer id"
// @Success 200 {object} utils.Payload{data=models.Transfer}
// @Failure 403 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/transfers/{id}/revoke [post]
func (h *Handler) RevokeTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	t, err := h.svc.RevokeTransfer(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Transfer revoked",
		Data:    t,
	})
}

// DeleteTransfer godoc
// @Summary Delete a transfer
// @Description Removes the transfer with its recipients and logs, then its stored content.
// @Tags Transfers
// @Produce json
// @Param id path string true "Transfer id"
// @Success 200 {object} utils.Payload{data=share.DeleteResult}
// @Failure 403 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/transfers/{id} [delete]
func (h *Handler) DeleteTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	res, err := h.svc.DeleteTransfer(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Transfer deleted",
		Data:    res,
	})
}

// GetTransferAnalytics godoc
// @Summary Transfer analytics
// @Description Totals, unique viewers, views by country, the last seven days and the 20 most recent events.
// @Tags Transfers
// @Produce json
// @Param id path string true "Transfer id"
// @Success 200 {object} utils.Payload{data=share.Report}
// @Failure 403 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/transfers/{id}/analytics [get]
func (h *Handler) GetTransferAnalytics(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	report, err := h.svc.Analytics(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Analytics computed",
		Data:    report,
	})
}
