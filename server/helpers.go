package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Daskott/phonebook/server/auth"
	"github.com/Daskott/phonebook/server/models"
	"github.com/Daskott/phonebook/server/work"
	"github.com/Daskott/phonebook/utils"
	"github.com/go-playground/validator"
)

type ResponsePayload struct {
	Errors  []string    `json:"errors"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

type DecodedJWT struct {
	Claims   *auth.PhonebookTokenClaims
	ErrorMsg string
}

var validate = NewValidator()

// NewValidator returns a validator with the custom rules used by forms & config.
func NewValidator() *validator.Validate {
	v := validator.New()
	if err := RegisterValidators(v); err != nil {
		logg.Fatal(err)
	}

	return v
}

func RegisterValidators(validate *validator.Validate) error {
	return validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		// if whitespace in password return false
		err := validate.Var(fl.Field().String(), "contains= ")
		if err == nil {
			return false
		}
		return len(fl.Field().String()) > 0
	})
}

// ---------------------------------------------------------------------------------//
// Handler Helper functions
// --------------------------------------------------------------------------------//

func writeJSON(rw http.ResponseWriter, payLoad interface{}, statusCode int) {
	if statusCode >= http.StatusInternalServerError {
		logg.Error(payLoad)
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(payLoad)
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}

	return page
}

// nextParam returns the local path the user should land on after logging in.
func nextParam(r *http.Request) string {
	next := r.URL.Query().Get("next")
	if !utils.IsLocalPath(next) {
		return "/"
	}

	return next
}

// ---------------------------------------------------------------------------------//
// Identity Helper functions
// --------------------------------------------------------------------------------//

// decodeAndVerifyToken reads the token from the Authorization header, falling
// back to the token cookie set at login.
func (s *Server) decodeAndVerifyToken(r *http.Request) DecodedJWT {
	token := ""
	authHeaderList := strings.Split(r.Header.Get("Authorization"), "Bearer ")
	if len(authHeaderList) == 2 {
		token = authHeaderList[1]
	} else if cookie, err := r.Cookie(TOKEN_COOKIE_NAME); err == nil {
		token = cookie.Value
	}

	if token == "" {
		return DecodedJWT{ErrorMsg: "no token provided"}
	}

	tokenClaims, err := auth.DecodeJWT(token, s.keyPair)
	if err != nil {
		return DecodedJWT{ErrorMsg: "invalid token provided"}
	}

	// validate that the user account still exists
	exists, err := models.UserExists(s.db.WithContext(r.Context()), tokenClaims.Subject)
	if err != nil || !exists {
		return DecodedJWT{ErrorMsg: "invalid token provided"}
	}

	return DecodedJWT{Claims: tokenClaims}
}

// ---------------------------------------------------------------------------------//
// Server Helper functions
// --------------------------------------------------------------------------------//

func serve(server *http.Server) {
	logg.Infof("Phonebook server is listening on port%v", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal(err)
	}
}

func cleanup(workerPool *work.WorkerPoolAdapter, server *http.Server, backup *sqliteBackup) {
	// Stop all periodic jobs before the final backup
	workerPool.Stop()

	if backup != nil {
		if err := backup.run(nil); err != nil {
			logg.Errorf("final sqlite backup failed: %v", err)
		}
	}

	// Shutdown server gracefully
	ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutDown); err != nil {
		logg.Fatalf("Phonebook server shutdown failed:%+s", err)
	}

	logg.Infof("Phonebook server stopped properly")
}

// configDirectory retrieves the directory to store phonebook data
// Or logs an error message and then calls os.Exit if it's unable to.
func configDirectory(devMode bool) string {
	// Use 'phonebook' folder in home directory for prod
	configFolderName := "phonebook"
	rootDir, err := os.UserHomeDir()
	fatalOnError(err)

	// Use 'dev' folder in current directory for dev mode
	if devMode {
		configFolderName = "dev"
		rootDir, err = os.Getwd()
		fatalOnError(err)
	}

	configDir := filepath.Join(rootDir, configFolderName)

	err = utils.CreateDirIfNotExist(configDir)
	fatalOnError(err)

	return configDir
}

func fatalOnError(err error) {
	if err != nil {
		logg.Fatal(fmt.Errorf("phonebook: %v", err))
	}
}
