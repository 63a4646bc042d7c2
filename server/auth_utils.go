package server

import (
	"net/http"
	"net/url"
)

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectToLoginWithError sends the user back to the login form with an error
// message, keeping the email and callback so the form can be refilled.
func redirectToLoginWithError(w http.ResponseWriter, r *http.Request, errorMsg, email, callbackURL string) {
	q := url.Values{}
	q.Set(paramError, errorMsg)
	if email != "" {
		q.Set(paramEmail, email)
	}
	if callbackURL != "" {
		q.Set(paramCallbackURL, callbackURL)
	}
	redirectSuccess(w, r, RouteLogin+"?"+q.Encode())
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
