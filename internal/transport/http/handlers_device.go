package httptransport

import (
	"net/http"

	dErrors "agentgate/pkg/domain-errors"
	"agentgate/pkg/platform/httputil"
	"agentgate/pkg/requestcontext"

	"agentgate/internal/auth/models"
)

type deviceCodeRequest struct {
	ClientID string `json:"client_id"`
	Scope    string `json:"scope"`
}

// handleDeviceCode starts the device flow and returns the code pair.
func (h *Handler) handleDeviceCode(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[deviceCodeRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	created, err := h.devices.CreateDeviceAuth(r.Context(), req.ClientID, req.Scope)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, created)
}

type deviceTokenRequest struct {
	DeviceCode string `json:"device_code"`
}

type deviceTokenResponse struct {
	AccessToken string            `json:"access_token"`
	TokenType   string            `json:"token_type"`
	User        models.DeviceUser `json:"user"`
}

type deviceFlowErrorResponse struct {
	Error models.DeviceFlowError `json:"error"`
}

// handleDeviceToken is the polling endpoint. Flow errors come back as 400
// with an RFC 8628 error code; authorization_pending is the normal state and
// the device just polls again after its interval.
func (h *Handler) handleDeviceToken(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[deviceTokenRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.DeviceCode == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "device_code is required"))
		return
	}

	result, err := h.devices.CheckDeviceAuth(r.Context(), req.DeviceCode)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !result.Success {
		httputil.WriteJSON(w, http.StatusBadRequest, deviceFlowErrorResponse{Error: result.Error})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, deviceTokenResponse{
		AccessToken: result.AccessToken,
		TokenType:   "Bearer",
		User:        result.User,
	})
}

type deviceAuthorizeRequest struct {
	UserCode string `json:"user_code"`
}

// handleDeviceAuthorize records the signed-in caller's approval of a user
// code. Failures share one generic shape so the form leaks nothing.
func (h *Handler) handleDeviceAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ac := requestcontext.Auth(ctx)

	req, err := httputil.Decode[deviceAuthorizeRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.UserCode == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "user_code is required"))
		return
	}

	result, err := h.devices.AuthorizeDevice(ctx, req.UserCode, ac.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadRequest
	}
	httputil.WriteJSON(w, status, result)
}
