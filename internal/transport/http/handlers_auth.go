package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"petmily/internal/auth/models"
	"petmily/internal/platform/middleware"
	"petmily/internal/provider"
	"petmily/pkg/derrors"
)

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type socialSignupRequest struct {
	SignupID    string `json:"signup_id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

type phoneRequest struct {
	SignupID    string `json:"signup_id"`
	PhoneNumber string `json:"phone_number"`
}

type withdrawRequest struct {
	Password string `json:"password"`
	Reason   string `json:"reason"`
}

type loginResponse struct {
	Outcome  models.Outcome `json:"outcome"`
	SignupID string         `json:"signup_id,omitempty"`
}

func decode[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, derrors.New(derrors.CodeBadRequest, "invalid request body"))
		return req, false
	}
	return req, true
}

// writeLoginResult encodes the flow outcome. Tokens become session cookies;
// a staging id becomes the signup_token cookie the follow-up requests carry.
func (h *Handler) writeLoginResult(w http.ResponseWriter, res *models.LoginResult) {
	if res.Tokens != nil {
		h.setSessionCookies(w, res.Tokens)
	}
	if res.SignupID != "" {
		h.setSignupCookie(w, res.SignupID)
	}
	writeJSON(w, http.StatusOK, loginResponse{Outcome: res.Outcome, SignupID: res.SignupID})
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[signupRequest](w, r)
	if !ok {
		return
	}

	res, err := h.svc.Signup(r.Context(), models.SignupRequest{
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeLoginResult(w, res)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[loginRequest](w, r)
	if !ok {
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeLoginResult(w, res)
}

func (h *Handler) handleSocialCallback(w http.ResponseWriter, r *http.Request) {
	p, err := provider.Parse(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, err)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, derrors.New(derrors.CodeBadRequest, "missing authorization code"))
		return
	}

	res, err := h.svc.SocialLogin(r.Context(), p, code)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeLoginResult(w, res)
}

func (h *Handler) handleSocialSignup(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[socialSignupRequest](w, r)
	if !ok {
		return
	}
	signupID := signupIDFrom(r, req.SignupID)
	if signupID == "" {
		writeError(w, derrors.New(derrors.CodeBadRequest, "missing signup_id"))
		return
	}

	res, err := h.svc.CompleteSocialSignup(r.Context(), signupID, models.SocialSignupRequest{
		Email:       req.Email,
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	clearSignupCookie(w)
	h.writeLoginResult(w, res)
}

func (h *Handler) handleSendPhoneVerification(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[phoneRequest](w, r)
	if !ok {
		return
	}
	if req.PhoneNumber == "" {
		writeError(w, derrors.New(derrors.CodeBadRequest, "missing phone_number"))
		return
	}

	issue, err := h.svc.SendPhoneVerification(r.Context(), signupIDFrom(r, req.SignupID), req.PhoneNumber)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"code":            issue.Code,
		"mailbox_address": issue.MailboxAddress,
	})
}

func (h *Handler) handleVerifyPhoneCode(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[phoneRequest](w, r)
	if !ok {
		return
	}
	if req.PhoneNumber == "" {
		writeError(w, derrors.New(derrors.CodeBadRequest, "missing phone_number"))
		return
	}

	res, err := h.svc.VerifyPhoneCode(r.Context(), req.PhoneNumber)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeLoginResult(w, res)
}

func (h *Handler) handleLink(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[phoneRequest](w, r)
	if !ok {
		return
	}
	if req.PhoneNumber == "" {
		writeError(w, derrors.New(derrors.CodeBadRequest, "missing phone_number"))
		return
	}

	res, err := h.svc.LinkSocialAccount(r.Context(), req.PhoneNumber)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeLoginResult(w, res)
}

func (h *Handler) handleReissue(w http.ResponseWriter, r *http.Request) {
	refresh := refreshTokenFromRequest(r)

	access, err := h.svc.Reissue(r.Context(), refresh)
	if err != nil {
		writeError(w, err)
		return
	}
	h.setAccessCookie(w, access)
	writeJSON(w, http.StatusOK, map[string]string{"access_token": access})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	p := middleware.Principal(r.Context())
	if p == nil {
		writeError(w, derrors.New(derrors.CodeUnauthorized, "authentication required"))
		return
	}

	if err := h.svc.Logout(r.Context(), p.Subject); err != nil {
		writeError(w, err)
		return
	}
	clearSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	p := middleware.Principal(r.Context())
	if p == nil {
		writeError(w, derrors.New(derrors.CodeUnauthorized, "authentication required"))
		return
	}

	// An empty body is fine for social-only members with no password.
	var req withdrawRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	err := h.svc.Withdraw(r.Context(), p.Subject, models.WithdrawRequest{
		Password: req.Password,
		Reason:   req.Reason,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	clearSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}
