package httptransport

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"

	dErrors "agentgate/pkg/domain-errors"
	"agentgate/pkg/email"
	"agentgate/pkg/platform/httputil"
	"agentgate/pkg/requestcontext"
	"agentgate/pkg/sentinel"

	"agentgate/internal/auth/models"
	"agentgate/internal/authz"
	"agentgate/internal/identity"
	"agentgate/internal/platform/middleware"
)

type loginRequest struct {
	Email                 string `json:"email"`
	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name"`
	Organization          string `json:"organization"`
	ClearExistingSessions bool   `json:"clear_existing_sessions"`
}

type loginResponse struct {
	UserID         string                `json:"user_id"`
	OrganizationID string                `json:"organization_id"`
	Role           string                `json:"role"`
	Tokens         *models.SessionTokens `json:"tokens"`
}

// handleLogin completes an identity exchange: the user is found or created
// by email, then a session is minted and mirrored into cookies.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.Decode[loginRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !govalidator.IsEmail(req.Email) || !govalidator.StringLength(req.Email, "3", "255") {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid email"))
		return
	}

	user, org, err := h.findOrCreateIdentity(r, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	tokens, err := h.sessions.CreateSession(ctx, user, org, models.RequestMeta{
		IPAddress: requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
	}, models.CreateSessionOptions{ClearExistingSessions: req.ClearExistingSessions})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.setSessionCookies(w, tokens)
	httputil.WriteJSON(w, http.StatusOK, loginResponse{
		UserID:         user.ID,
		OrganizationID: org.ID,
		Role:           string(authz.ParseRole(user.Role)),
		Tokens:         tokens,
	})
}

func (h *Handler) findOrCreateIdentity(r *http.Request, req loginRequest) (identity.User, identity.Organization, error) {
	ctx := r.Context()

	user, err := h.users.FindByEmail(ctx, req.Email)
	if err == nil {
		org, err := h.orgs.FindByID(ctx, user.OrganizationID)
		if err != nil {
			return identity.User{}, identity.Organization{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not load organization")
		}
		return user, org, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return identity.User{}, identity.Organization{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not look up user")
	}

	// First login: provision an organization with the user as its owner.
	orgName := strings.TrimSpace(req.Organization)
	if orgName == "" {
		orgName = req.Email
	}
	org := identity.Organization{
		ID:        uuid.NewString(),
		Name:      orgName,
		CreatedAt: time.Now(),
	}
	if err := h.orgs.Save(ctx, org); err != nil {
		return identity.User{}, identity.Organization{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not create organization")
	}

	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if firstName == "" && lastName == "" {
		firstName, lastName = email.DeriveNameFromEmail(req.Email)
	}
	user = identity.User{
		ID:             uuid.NewString(),
		OrganizationID: org.ID,
		Email:          req.Email,
		FirstName:      firstName,
		LastName:       lastName,
		Role:           string(authz.RoleOwner),
		CreatedAt:      time.Now(),
	}
	if err := h.users.Save(ctx, user); err != nil {
		return identity.User{}, identity.Organization{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not create user")
	}
	return user, org, nil
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// handleRefresh rotates the session. The refresh token comes from the cookie
// or, for cookie-less clients, the body. A spent or unknown token clears the
// cookies and demands re-login.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// An explicit body token wins over the cookie so cookie-less clients and
	// tooling can rotate a specific session.
	refreshToken := ""
	if req, err := httputil.Decode[refreshRequest](r); err == nil {
		refreshToken = req.RefreshToken
	}
	if refreshToken == "" {
		if cookie, err := r.Cookie(middleware.RefreshCookieName); err == nil {
			refreshToken = cookie.Value
		}
	}
	if refreshToken == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "refresh token is required"))
		return
	}

	tokens, err := h.sessions.RefreshSession(ctx, refreshToken)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if tokens == nil {
		h.clearSessionCookies(w)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "session expired, please log in again"))
		return
	}

	h.setSessionCookies(w, tokens)
	httputil.WriteJSON(w, http.StatusOK, tokens)
}

// handleLogout destroys the cookie-borne session and clears both cookies.
// Logging out without a live session still succeeds.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if cookie, err := r.Cookie(middleware.AuthCookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.DestroySession(ctx, cookie.Value); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	h.clearSessionCookies(w)
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleListSessions returns the caller's live sessions, marking the one
// backing this request.
func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ac := requestcontext.Auth(ctx)

	result, err := h.sessions.ListSessions(ctx, ac.UserID, requestcontext.AccessToken(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// Cookie policy: httpOnly always, lax same-site, secure outside development,
// scoped to the whole site. Expiry mirrors each token's own lifetime.
func (h *Handler) setSessionCookies(w http.ResponseWriter, tokens *models.SessionTokens) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    tokens.AccessToken,
		Path:     "/",
		Expires:  tokens.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.RefreshCookieName,
		Value:    tokens.RefreshToken,
		Path:     "/",
		Expires:  time.Now().Add(h.refreshTTL),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.AuthCookieName, middleware.RefreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.secureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
