package server

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/Daskott/phonebook/server/auth"
	"github.com/Daskott/phonebook/server/auth/key"
	"github.com/Daskott/phonebook/server/models"
)

const TOKEN_COOKIE_NAME = "phonebook_token"

func (s *Server) login(rc *RequestContext) (Result, error) {
	next := nextParam(rc.Request)

	form := loginSchema.Process(rc.Request, rc.Session, nil)
	if form.Accepted() {
		user, err := models.Authenticate(rc.DB, form.Values["email"], form.Values["password"])
		switch {
		case errors.Is(err, models.ErrInvalidCredentials):
			form.RejectForm("Invalid email or password")
		case err != nil:
			return nil, err
		default:
			if err := s.issueToken(rc, user); err != nil {
				return nil, err
			}
			return Redirect{Path: next}, nil
		}
	}

	data := form.View("Log in", "/auth/login?next="+url.QueryEscape(next), "")
	data["Alternate"] = map[string]string{"Path": "/auth/register", "Label": "Create an account"}
	return Render{Data: data}, nil
}

func (s *Server) register(rc *RequestContext) (Result, error) {
	form := registerSchema.Process(rc.Request, rc.Session, nil)
	if form.Accepted() {
		exists, err := models.UserExists(rc.DB, form.Values["email"])
		if err != nil {
			return nil, err
		}

		if exists {
			form.Reject("email", "Email is already registered")
		} else {
			user := models.User{
				FirstName: form.Values["first_name"],
				LastName:  form.Values["last_name"],
				Email:     form.Values["email"],
				Password:  form.Values["password"],
			}

			if err := models.CreateUser(rc.DB, &user); err != nil {
				return nil, err
			}

			if err := s.issueToken(rc, &user); err != nil {
				return nil, err
			}

			rc.Session.SetFlash("Welcome " + user.FirstName)
			return Redirect{Path: contactsPath}, nil
		}
	}

	data := form.View("Create an account", rc.Request.URL.Path, "")
	data["Alternate"] = map[string]string{"Path": "/auth/login", "Label": "Log in instead"}
	return Render{Data: data}, nil
}

func (s *Server) logout(rc *RequestContext) (Result, error) {
	rc.SetCookie(&http.Cookie{
		Name:     TOKEN_COOKIE_NAME,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	rc.EndSession()

	return Redirect{Path: "/auth/login"}, nil
}

func (s *Server) jwks(rc *RequestContext) (Result, error) {
	keyPairJWK, err := s.keyPair.JWK()
	if err != nil {
		return nil, err
	}

	return JSON{Status: http.StatusOK, Payload: key.ExportJWKAsJWKS(keyPairJWK)}, nil
}

func (s *Server) health(rc *RequestContext) (Result, error) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(rc.Request.Context())
	}

	if err != nil {
		return JSON{
			Status:  http.StatusServiceUnavailable,
			Payload: ResponsePayload{Errors: []string{err.Error()}},
		}, nil
	}

	return JSON{Status: http.StatusOK, Payload: ResponsePayload{Success: true}}, nil
}

// issueToken signs a token for user & hands it to the browser as an http only cookie.
func (s *Server) issueToken(rc *RequestContext, user *models.User) error {
	claims := auth.NewClaims(user.Email, user.FirstName, user.LastName, s.options.TokenTTL)

	token, err := auth.EncodeJWT(claims, s.keyPair)
	if err != nil {
		return err
	}

	rc.SetCookie(&http.Cookie{
		Name:     TOKEN_COOKIE_NAME,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.options.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.options.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}
