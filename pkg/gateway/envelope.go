package gateway

import (
	"encoding/json"
	"net/http"
)

// Vendor error codes the client is built against. The emulator must
// not invent unrecognized codes: the client interprets these directly.
const (
	codeUnauthorizedClient = "errors.com.epicgames.common.oauth.unauthorized_client"
	codeInvalidOAuthReq    = "errors.com.epicgames.common.oauth.invalid_request"
	codeAuthFailed         = "errors.com.epicgames.common.authorization.authorization_failed"
	codeInvalidToken       = "errors.com.epicgames.account.oauth.invalid_token"
	codeAccountNotFound    = "errors.com.epicgames.account.account_not_found"
	codeOperationNotFound  = "errors.com.epicgames.fortnite.operation_not_found"
	codeProfileNotFound    = "errors.com.epicgames.fortnite.profile_not_found"
	codeTicketNotFound     = "errors.com.epicgames.fortnite.ticket_not_found"
	codeCommonNotFound     = "errors.com.epicgames.common.not_found"
	codeServerError        = "errors.com.epicgames.common.server_error"
)

// Numeric companions to the string codes above.
const (
	numUnauthorizedClient = 1015
	numInvalidOAuthReq    = 1016
	numAuthFailed         = 1032
	numInvalidToken       = 18036
	numAccountNotFound    = 18007
	numOperationNotFound  = 16035
	numProfileNotFound    = 12813
	numTicketNotFound     = 16038
	numCommonNotFound     = 1004
	numServerError        = 1000
)

// errorBody is the vendor's machine-readable error envelope.
type errorBody struct {
	ErrorCode          string   `json:"errorCode"`
	ErrorMessage       string   `json:"errorMessage"`
	MessageVars        []string `json:"messageVars"`
	NumericErrorCode   int      `json:"numericErrorCode"`
	OriginatingService string   `json:"originatingService"`
	Intent             string   `json:"intent"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeVendorError writes the vendor error envelope. service names the
// originating backend family ("account" or "fortnite").
func writeVendorError(w http.ResponseWriter, status int, code string, numeric int, service, message string, vars ...string) {
	if vars == nil {
		vars = []string{}
	}
	writeJSON(w, status, errorBody{
		ErrorCode:          code,
		ErrorMessage:       message,
		MessageVars:        vars,
		NumericErrorCode:   numeric,
		OriginatingService: service,
		Intent:             "prod",
	})
}
