package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Daskott/safecircle/server/auth"
	"github.com/Daskott/safecircle/server/models"
	"github.com/Daskott/safecircle/server/work"
	"github.com/Daskott/safecircle/utils"
	"github.com/go-playground/validator"
)

var phoneNumberRegex = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// ---------------------------------------------------------------------------------//
// Handler Helper functions
// --------------------------------------------------------------------------------//

func writeResponse(rw http.ResponseWriter, payLoad ResponsePayload, statusCode int) {
	if statusCode >= http.StatusInternalServerError {
		logg.Error(payLoad.Errors)

		// Never leak internal errors to the client
		payLoad.Errors = []string{http.StatusText(statusCode)}
	} else if statusCode >= http.StatusBadRequest {
		logg.Info(payLoad.Errors)
	}

	if payLoad.Errors == nil {
		payLoad.Errors = []string{}
	}

	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(payLoad)
}

func writeBadRequest(rw http.ResponseWriter, errMsgs ...string) {
	writeResponse(rw, ResponsePayload{Errors: errMsgs}, http.StatusBadRequest)
}

func writeInternalError(rw http.ResponseWriter, err error) {
	writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
}

// decodeBody decodes the json body of 'r' into 'data' & validates it,
// writing a 400 response if it's invalid
func decodeBody(rw http.ResponseWriter, r *http.Request, data interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(data)
	if err != nil {
		writeBadRequest(rw, "invalid request body")
		return false
	}

	err = validate.Struct(data)
	if err != nil {
		writeBadRequest(rw, strings.Split(err.Error(), "\n")...)
		return false
	}

	return true
}

func removeUnknownFields(args map[string]interface{}, validFields map[string]string) {
	for key := range args {
		if _, ok := validFields[key]; !ok {
			delete(args, key)
		}
	}
}

func registerValidators(validate *validator.Validate) error {
	err := validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		// if whitespace in password return false
		err := validate.Var(fl.Field().String(), "contains= ")
		if err == nil {
			return false
		}
		return len(fl.Field().String()) > 0
	})
	if err != nil {
		return err
	}

	return validate.RegisterValidation("phone_number", func(fl validator.FieldLevel) bool {
		return isValidPhoneNumber(fl.Field().String())
	})
}

func isValidPhoneNumber(phoneNumber string) bool {
	return phoneNumberRegex.MatchString(phoneNumber)
}

func currentUser(r *http.Request) *models.User {
	return r.Context().Value(RequestContextKey("user")).(*models.User)
}

func newToken(userID uint) (string, error) {
	return auth.EncodeJWT(auth.NewTokenClaims(userID, tokenValidity), authKeyPair)
}

// alertMessage returns the text sent to the contacts of a user in an emergency
func alertMessage(situation string, user *models.User, procedure, locationLink string) string {
	lines := []string{"EMERGENCY ALERT", fmt.Sprintf("Situation: %v", situation)}

	if user != nil {
		lines = append(lines, fmt.Sprintf("Message from: %v (%v)", user.Name, user.Phone))
	}

	if strings.TrimSpace(procedure) != "" {
		lines = append(lines, fmt.Sprintf("Procedure: %v", procedure))
	}

	lines = append(lines, fmt.Sprintf("Location: %v", locationLink))

	return strings.Join(lines, "\n")
}

// ---------------------------------------------------------------------------------//
// Middleware Helper functions
// --------------------------------------------------------------------------------//

func decodeAndVerifyAuthHeader(authHeaderValue string) DecodedJWT {
	authHeaderList := strings.Split(authHeaderValue, "Bearer ")
	if len(authHeaderList) < 2 || strings.TrimSpace(authHeaderList[1]) == "" {
		return DecodedJWT{ErrorMsg: "no token provided"}
	}

	tokenClaims, err := auth.DecodeJWT(authHeaderList[1], authKeyPair)
	if err != nil {
		return DecodedJWT{ErrorMsg: "invalid token provided"}
	}

	return DecodedJWT{Claims: tokenClaims}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ---------------------------------------------------------------------------------//
// Server Helper functions
// --------------------------------------------------------------------------------//

func serve(server *http.Server) {
	logg.Infof("SafeCircle server is listening on port%v", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal(err)
	}
}

func cleanup(workerPool *work.WorkerPoolAdapter, server *http.Server, backup *sqliteBackup) {
	// Shutdown server gracefully, so in-flight alerts get to complete
	ctxShutDown, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutDown); err != nil {
		logg.Errorf("SafeCircle server shutdown failed:%+s", err)
	}

	workerPool.Stop()

	if backup != nil {
		if err := backup.run(nil); err != nil {
			logg.Error(err)
		}
	}

	if err := models.CloseDB(); err != nil {
		logg.Error(err)
	}

	logg.Infof("SafeCircle server stopped properly")
}

// configDirectory retrieves the directory to store safecircle data
// Or logs an error message and then calls os.Exit if it's unable to.
func configDirectory(devMode bool) string {
	// Use 'safecircle' folder in home directory for prod
	configFolderName := "safecircle"
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
		logg.Fatal(err)
	}
}
