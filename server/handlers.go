package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Daskott/safecircle/server/auth"
	"github.com/Daskott/safecircle/server/auth/key"
	"github.com/Daskott/safecircle/server/broadcast"
	"github.com/Daskott/safecircle/server/models"
	"github.com/Daskott/safecircle/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

const invalidCredentialsMsg = "invalid credentials"

// Profile fields registration requires, which can't be blanked afterwards
var requiredProfileFields = map[string]bool{"nationalId": true, "address": true, "dob": true}

func register(rw http.ResponseWriter, r *http.Request) {
	data := registerRequest{}
	if !decodeBody(rw, r, &data) {
		return
	}

	user := models.User{
		Name:       data.Name,
		Address:    data.Address,
		NationalID: data.NationalID,
		Phone:      data.Phone,
		Email:      data.Email,
		Dob:        data.Dob,
		Gender:     data.Gender,
		Password:   data.Password,
	}

	err := models.CreateUser(&user)
	if errors.Is(err, models.ErrUserExists) {
		writeBadRequest(rw, err.Error())
		return
	}

	if err != nil {
		writeInternalError(rw, err)
		return
	}

	token, err := newToken(user.ID)
	if err != nil {
		writeInternalError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: tokenResponse{Token: token}}, http.StatusCreated)
}

func login(rw http.ResponseWriter, r *http.Request) {
	data := loginRequest{}
	err := json.NewDecoder(r.Body).Decode(&data)
	if err != nil {
		writeBadRequest(rw, "invalid request body")
		return
	}

	// Unknown emails still go through a hash comparison, so both cases take about as long
	var userID uint
	passwordHash := ""
	credentials, err := models.FindUserCredentials(data.Email)
	if err == nil {
		userID = credentials.ID
		passwordHash = credentials.Password
	} else if !isRecordNotFound(err) {
		writeInternalError(rw, err)
		return
	}

	if !auth.CheckPasswordHash(data.Password, passwordHash) {
		writeBadRequest(rw, invalidCredentialsMsg)
		return
	}

	token, err := newToken(userID)
	if err != nil {
		writeInternalError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: tokenResponse{Token: token}}, http.StatusOK)
}

func getProfile(rw http.ResponseWriter, r *http.Request) {
	writeResponse(rw, ResponsePayload{Success: true, Data: currentUser(r)}, http.StatusOK)
}

func updateProfile(rw http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	data := make(map[string]interface{})

	err := json.NewDecoder(r.Body).Decode(&data)
	if err != nil {
		writeBadRequest(rw, "invalid request body")
		return
	}

	removeUnknownFields(data, models.UpdatableFields)
	if len(data) <= 0 {
		writeBadRequest(rw, "valid fields required")
		return
	}

	errs := []string{}
	columns := make(map[string]interface{})
	for field, value := range data {
		strValue, ok := value.(string)
		if !ok {
			errs = append(errs, fmt.Sprintf("%v must be a string", field))
			continue
		}

		if requiredProfileFields[field] && strings.TrimSpace(strValue) == "" {
			errs = append(errs, fmt.Sprintf("%v cannot be empty", field))
			continue
		}
		columns[models.UpdatableFields[field]] = strValue
	}

	if len(errs) > 0 {
		writeBadRequest(rw, errs...)
		return
	}

	err = user.Update(columns)
	if errors.Is(err, models.ErrUserExists) {
		writeBadRequest(rw, err.Error())
		return
	}

	if err != nil {
		writeInternalError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: user}, http.StatusOK)
}

func deleteProfile(rw http.ResponseWriter, r *http.Request) {
	err := models.DeleteUser(currentUser(r).ID)
	if isRecordNotFound(err) {
		writeResponse(rw, ResponsePayload{Errors: []string{"user not found"}}, http.StatusNotFound)
		return
	}

	if err != nil {
		writeInternalError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func addHistoryEntry(rw http.ResponseWriter, r *http.Request) {
	data := historyEntryRequest{}
	if !decodeBody(rw, r, &data) {
		return
	}

	history, err := currentUser(r).AppendHistoryEntry(&models.HistoryEntry{
		Type:        data.Type,
		PhoneNumber: data.PhoneNumber,
		Procedure:   data.Procedure,
	})
	if isRecordNotFound(err) {
		writeResponse(rw, ResponsePayload{Errors: []string{"user not found"}}, http.StatusNotFound)
		return
	}

	if err != nil {
		writeInternalError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: history}, http.StatusCreated)
}

func getHistory(rw http.ResponseWriter, r *http.Request) {
	history, err := currentUser(r).HistoryEntries()
	if err != nil {
		writeInternalError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: history}, http.StatusOK)
}

func deleteHistoryEntry(rw http.ResponseWriter, r *http.Request) {
	history, err := currentUser(r).DeleteHistoryEntry(mux.Vars(r)["id"])
	if err != nil {
		writeInternalError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: history}, http.StatusOK)
}

func getReportOptions(rw http.ResponseWriter, r *http.Request) {
	options, err := currentUser(r).ReportOptionList()
	if err != nil {
		writeInternalError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: options}, http.StatusOK)
}

func updateReportOption(rw http.ResponseWriter, r *http.Request) {
	data := reportOptionRequest{}
	if !decodeBody(rw, r, &data) {
		return
	}

	options, err := currentUser(r).UpsertReportOption(data.Name, data.Contacts, data.Procedure)
	if err != nil {
		writeInternalError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: options}, http.StatusOK)
}

func sendWhatsAppMessages(rw http.ResponseWriter, r *http.Request) {
	data := sendMessagesRequest{}
	if !decodeBody(rw, r, &data) {
		return
	}

	user := currentUser(r)
	message := alertMessage(data.Name, user, data.Procedure, data.LocationLink)

	report, ok := broadcastAlert(rw, r, message, data.Contacts)
	if !ok {
		return
	}

	writeResponse(rw, ResponsePayload{
		Success: true,
		Data:    broadcastResponse{Message: "messages processed", Recipients: report.Attempted()},
	}, http.StatusOK)
}

// sendReportOptionMessages alerts the contacts stored for the user's report option & records
// the alert in the user's history
func sendReportOptionMessages(rw http.ResponseWriter, r *http.Request) {
	data := sendOptionMessagesRequest{}
	if !decodeBody(rw, r, &data) {
		return
	}

	user := currentUser(r)
	option, err := user.FindReportOption(mux.Vars(r)["name"])
	if err != nil && !isRecordNotFound(err) {
		writeInternalError(rw, err)
		return
	}

	if option == nil || len(option.Contacts) == 0 {
		writeResponse(rw, ResponsePayload{Errors: []string{"no contacts found for this report option"}}, http.StatusNotFound)
		return
	}

	procedure := data.Procedure
	if procedure == "" {
		procedure = option.Procedure
	}

	message := alertMessage(option.Name, user, procedure, data.LocationLink)
	report, ok := broadcastAlert(rw, r, message, option.Contacts)
	if !ok {
		return
	}

	_, err = user.AppendHistoryEntry(&models.HistoryEntry{
		Type:        option.Name,
		PhoneNumber: utils.FirstOrEmpty(option.Contacts),
		Procedure:   procedure,
	})
	if err != nil {
		logg.Errorf("Unable to record alert history for user %v: %v", user.ID, err)
	}

	writeResponse(rw, ResponsePayload{
		Success: true,
		Data:    broadcastResponse{Message: "messages processed", Recipients: report.Attempted()},
	}, http.StatusOK)
}

// broadcastAlert sends 'message' to 'recipients', writing an error response if it can't.
// Alerts are not cancelled when the client goes away.
func broadcastAlert(rw http.ResponseWriter, r *http.Request, message string, recipients []string) (*broadcast.Report, bool) {
	report, err := broadcaster.Broadcast(context.WithoutCancel(r.Context()), message, recipients)
	if errors.Is(err, broadcast.ErrEmptyMessage) || errors.Is(err, broadcast.ErrInvalidRecipient) {
		writeBadRequest(rw, err.Error())
		return nil, false
	}

	if err != nil {
		writeInternalError(rw, err)
		return nil, false
	}

	return report, true
}

func jwks(rw http.ResponseWriter, r *http.Request) {
	keyPairJWK, err := authKeyPair.JWK()
	if err != nil {
		writeInternalError(rw, err)
		return
	}

	rw.Header().Set("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(key.ExportJWKAsJWKS(keyPairJWK))
}

func health(rw http.ResponseWriter, r *http.Request) {
	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func isRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
