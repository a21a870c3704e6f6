package hubsso

import (
	"html/template"
	"net/http"

	"github.com/happsea/hub-sso-bridge/pkg/httputil"
	"github.com/happsea/hub-sso-bridge/pkg/observability"
)

// The callback page is pure transport: it fetches a CSRF token from
// the session framework and auto-submits the signed fields to the
// credentials-authorize endpoint. Validation happens there, not here.
var callbackTemplate = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Signing you in</title>
</head>
<body>
  <noscript>JavaScript is required to complete sign-in.</noscript>
  <p>Signing you in&hellip;</p>
  <form id="sso-form" method="POST" action="{{.ActionURL}}">
    <input type="hidden" name="email" value="{{.Email}}">
    <input type="hidden" name="name" value="{{.Name}}">
    <input type="hidden" name="timestamp" value="{{.Timestamp}}">
    <input type="hidden" name="signature" value="{{.Signature}}">
    <input type="hidden" name="callbackUrl" value="{{.PostLoginURL}}">
    <input type="hidden" name="csrfToken" id="csrf-token" value="">
  </form>
  <script>
    fetch({{.CSRFURL}}, { credentials: "same-origin" })
      .then(function (res) {
        if (!res.ok) { throw new Error("csrf fetch failed"); }
        return res.json();
      })
      .then(function (body) {
        document.getElementById("csrf-token").value = body.csrfToken;
        document.getElementById("sso-form").submit();
      })
      .catch(function () {
        window.location.replace({{.ErrorURL}});
      });
  </script>
</body>
</html>
`))

type callbackData struct {
	ActionURL    string
	CSRFURL      string
	ErrorURL     string
	PostLoginURL string
	Email        string
	Name         string
	Timestamp    string
	Signature    string
}

// HandleCallback renders the auto-submitting bridge page
func (s *Service) HandleCallback(w http.ResponseWriter, r *http.Request) {
	email := httputil.ParseQueryString(r, "email", "")
	name := httputil.ParseQueryString(r, "name", "")
	timestamp := httputil.ParseQueryString(r, "timestamp", "")
	signature := httputil.ParseQueryString(r, "signature", "")

	if email == "" || timestamp == "" || signature == "" {
		httputil.WriteBadRequest(w, "email, timestamp and signature are required")
		return
	}

	if name == "" {
		name = emailLocalPart(email)
	}

	data := callbackData{
		ActionURL:    s.cfg.BaseURL + s.cfg.CredentialsAuthPath,
		CSRFURL:      s.cfg.BaseURL + s.cfg.CSRFPath,
		ErrorURL:     s.cfg.BaseURL + s.cfg.LoginErrorPath,
		PostLoginURL: s.cfg.BaseURL + s.cfg.PostLoginPath,
		Email:        email,
		Name:         name,
		Timestamp:    timestamp,
		Signature:    signature,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	if err := callbackTemplate.Execute(w, data); err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to render callback page")
	}
}
