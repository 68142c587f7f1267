package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Daskott/phonebook/server/auth/key"
	"github.com/Daskott/phonebook/server/session"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// Collaborator is the set of dependencies a route needs resolved before
// its handler runs.
type Collaborator uint8

const (
	// UsesDB runs the handler inside one transaction on RequestContext.DB
	UsesDB Collaborator = 1 << iota
	// UsesSession loads the session into RequestContext.Session & saves it afterwards
	UsesSession
	// UsesUser requires an authenticated identity, else redirects to the login page
	UsesUser
)

func (c Collaborator) Has(other Collaborator) bool {
	return c&other == other
}

type HandlerFunc func(rc *RequestContext) (Result, error)

type Route struct {
	Name     string
	Methods  []string
	Path     string
	Uses     Collaborator
	Template string
	Handler  HandlerFunc
}

// Result is what a handler asks the dispatcher to send back: Render, Redirect or JSON.
type Result interface {
	isResult()
}

// Render executes the route's template with Data.
type Render struct {
	Status int
	Data   map[string]interface{}
}

// Redirect answers with 303 See Other to Path.
type Redirect struct {
	Path string
}

type JSON struct {
	Status  int
	Payload interface{}
}

func (Render) isResult()   {}
func (Redirect) isResult() {}
func (JSON) isResult()     {}

// RequestContext carries the collaborators resolved for a single request.
type RequestContext struct {
	Request  *http.Request
	DB       *gorm.DB
	Session  *session.Session
	Identity string
	Template string

	ids        map[string]uint
	cookies    []*http.Cookie
	endSession bool
}

// ID returns the integer path segment called name.
func (rc *RequestContext) ID(name string) uint {
	return rc.ids[name]
}

func (rc *RequestContext) SetCookie(cookie *http.Cookie) {
	rc.cookies = append(rc.cookies, cookie)
}

// EndSession deletes the session from its store once the handler returns.
func (rc *RequestContext) EndSession() {
	rc.endSession = true
}

type Options struct {
	TokenTTL      time.Duration
	SecureCookies bool
}

type Server struct {
	db       *gorm.DB
	sessions *session.Manager
	keyPair  *key.KeyPair
	views    *views
	options  Options
	router   *mux.Router
}

func New(db *gorm.DB, sessions *session.Manager, keyPair *key.KeyPair, options Options) (*Server, error) {
	views, err := newViews()
	if err != nil {
		return nil, err
	}

	if options.TokenTTL <= 0 {
		options.TokenTTL = 24 * time.Hour
	}

	s := &Server{
		db:       db,
		sessions: sessions,
		keyPair:  keyPair,
		views:    views,
		options:  options,
	}

	router := mux.NewRouter()
	router.Use(recoveryMiddleware, loggingMiddleware)
	router.NotFoundHandler = loggingMiddleware(http.HandlerFunc(s.notFound))

	for _, route := range s.routes() {
		router.HandleFunc(route.Path, s.dispatch(route)).Methods(route.Methods...).Name(route.Name)
	}
	s.router = router

	return s, nil
}

func (s *Server) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(rw, r)
}

func (s *Server) routes() []Route {
	const (
		contactID = "{contact_id:[0-9]+}"
		phoneID   = "{phone_id:[0-9]+}"
		userCRUD  = UsesDB | UsesSession | UsesUser
	)

	var (
		get        = []string{http.MethodGet}
		getAndPost = []string{http.MethodGet, http.MethodPost}
	)

	return []Route{
		{Name: "index", Methods: get, Path: "/", Uses: userCRUD, Template: "index.html", Handler: listContacts},
		{Name: "index_alias", Methods: get, Path: "/index", Uses: userCRUD, Template: "index.html", Handler: listContacts},
		{Name: "add", Methods: getAndPost, Path: "/add", Uses: userCRUD, Template: "form.html", Handler: addContact},
		{Name: "edit", Methods: getAndPost, Path: "/edit/" + contactID, Uses: userCRUD, Template: "form.html", Handler: editContact},
		{Name: "delete", Methods: get, Path: "/delete/" + contactID, Uses: userCRUD, Handler: deleteContact},

		{Name: "edit_phones", Methods: get, Path: "/edit_phones/" + contactID, Uses: userCRUD, Template: "edit_phones.html", Handler: listPhones},
		{Name: "add_phone", Methods: getAndPost, Path: "/add_phone/" + contactID, Uses: userCRUD, Template: "form.html", Handler: addPhone},
		{Name: "delete_phone", Methods: get, Path: "/delete_phone/" + contactID + "/" + phoneID, Uses: userCRUD, Handler: deletePhone},
		{Name: "edit_phone", Methods: getAndPost, Path: "/edit_phone/" + contactID + "/" + phoneID, Uses: userCRUD, Template: "form.html", Handler: editPhone},

		{Name: "login", Methods: getAndPost, Path: "/auth/login", Uses: UsesDB | UsesSession, Template: "form.html", Handler: s.login},
		{Name: "register", Methods: getAndPost, Path: "/auth/register", Uses: UsesDB | UsesSession, Template: "form.html", Handler: s.register},
		{Name: "logout", Methods: get, Path: "/auth/logout", Uses: UsesSession, Handler: s.logout},

		{Name: "jwks", Methods: get, Path: "/.well-known/jwks.json", Handler: s.jwks},
		{Name: "health", Methods: get, Path: "/health", Handler: s.health},
	}
}

func (s *Server) dispatch(route Route) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		ids, err := parseIDs(mux.Vars(r))
		if err != nil {
			s.notFound(rw, r)
			return
		}

		rc := &RequestContext{Request: r, Template: route.Template, ids: ids}

		if route.Uses.Has(UsesUser) {
			decodedJWT := s.decodeAndVerifyToken(r)
			if decodedJWT.ErrorMsg != "" {
				logg.Debugf("%v %v: %v", r.Method, r.URL.Path, decodedJWT.ErrorMsg)
				http.Redirect(rw, r, loginPath(r.URL.RequestURI()), http.StatusSeeOther)
				return
			}
			rc.Identity = decodedJWT.Claims.Subject
		}

		if route.Uses.Has(UsesSession) {
			rc.Session, err = s.sessions.Load(r)
			if err != nil {
				s.serverError(rw, r, err)
				return
			}
		}

		result, err := s.invoke(route, rc)
		if err != nil {
			s.serverError(rw, r, err)
			return
		}

		s.respond(rw, r, rc, result)
	}
}

// invoke runs the handler, inside a transaction when the route uses the db.
// The transaction commits only when the handler returns no error.
func (s *Server) invoke(route Route, rc *RequestContext) (Result, error) {
	if !route.Uses.Has(UsesDB) {
		return route.Handler(rc)
	}

	var result Result
	err := s.db.WithContext(rc.Request.Context()).Transaction(func(tx *gorm.DB) error {
		rc.DB = tx

		var handlerErr error
		result, handlerErr = route.Handler(rc)
		return handlerErr
	})

	return result, err
}

func (s *Server) respond(rw http.ResponseWriter, r *http.Request, rc *RequestContext, result Result) {
	var flash string
	if _, ok := result.(Render); ok && rc.Session != nil {
		flash = rc.Session.PopFlash()
	}

	if rc.Session != nil {
		save := s.sessions.Save
		if rc.endSession {
			save = s.sessions.Destroy
		}

		if err := save(r.Context(), rw, rc.Session); err != nil {
			s.serverError(rw, r, err)
			return
		}
	}

	for _, cookie := range rc.cookies {
		http.SetCookie(rw, cookie)
	}

	switch res := result.(type) {
	case Redirect:
		http.Redirect(rw, r, res.Path, http.StatusSeeOther)
	case Render:
		data := res.Data
		if data == nil {
			data = map[string]interface{}{}
		}
		data["Identity"] = rc.Identity
		data["Flash"] = flash

		status := res.Status
		if status == 0 {
			status = http.StatusOK
		}

		if err := s.views.render(rw, rc.Template, status, data); err != nil {
			s.serverError(rw, r, err)
		}
	case JSON:
		status := res.Status
		if status == 0 {
			status = http.StatusOK
		}
		writeJSON(rw, res.Payload, status)
	default:
		s.serverError(rw, r, fmt.Errorf("%v %v: handler returned no result", r.Method, r.URL.Path))
	}
}

func (s *Server) notFound(rw http.ResponseWriter, r *http.Request) {
	s.renderError(rw, http.StatusNotFound, "The page you are looking for does not exist.")
}

func (s *Server) serverError(rw http.ResponseWriter, r *http.Request, err error) {
	logg.Errorf("%v %v: %v", r.Method, r.URL.Path, err)
	s.renderError(rw, http.StatusInternalServerError, "Sorry an application error has occurred. Please try again later.")
}

func (s *Server) renderError(rw http.ResponseWriter, status int, message string) {
	data := map[string]interface{}{
		"Title":   http.StatusText(status),
		"Status":  status,
		"Message": message,
	}

	if err := s.views.render(rw, "error.html", status, data); err != nil {
		logg.Error(err)
		http.Error(rw, message, status)
	}
}

// parseIDs converts every path variable to an unsigned integer id.
func parseIDs(vars map[string]string) (map[string]uint, error) {
	ids := make(map[string]uint, len(vars))
	for name, value := range vars {
		id, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid %v %q: %v", name, value, err)
		}
		ids[name] = uint(id)
	}

	return ids, nil
}

func loginPath(next string) string {
	return "/auth/login?next=" + url.QueryEscape(next)
}
