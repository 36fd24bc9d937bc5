//nolint:lll
package api

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400, 403, 404 or 409, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXXX or 5XXXX.
// If there's a gap in the list, don't fill it in: that code was used in the past and shouldn't be reused.
// There's no correlation between Code and HTTP Status.
var (
	ErrResourceNotFound  = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody     = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrInvalidSignature  = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid signature")}
	ErrMalformedAddress  = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed address")}
	ErrContractNotFound  = Error{Code: 40007, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("contract not found")}
	ErrTxNotFound        = Error{Code: 40008, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("transaction not found")}
	ErrInvalidNonce      = Error{Code: 40009, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("invalid nonce")}
	ErrExecutionReverted = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("execution reverted")}
	ErrMalformedParam    = Error{Code: 40011, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed parameter")}
	ErrInvalidArguments  = Error{Code: 40012, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid number of arguments")}
	ErrMalformedTxHash   = Error{Code: 40013, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed transaction hash")}
	ErrWebsocketUpgrade  = Error{Code: 40014, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("websocket upgrade failed")}
	ErrValidationFailed  = Error{Code: 40015, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("request validation failed")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrStorageFailure             = Error{Code: 50003, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("storage failure")}
	ErrDecryptionFailed           = Error{Code: 50004, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("decryption failed")}
)
