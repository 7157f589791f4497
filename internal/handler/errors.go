package handler

import (
	"errors"
	"net/http"

	mfs "github.com/CageChen/filehub/internal/fs"
	"github.com/CageChen/filehub/internal/git"
)

// Error kinds reported to the UI.
const (
	kindRequest  = "request"
	kindIO       = "io"
	kindCommand  = "command"
	kindLaunch   = "launch"
	kindInternal = "internal"
)

// requestError is a malformed or unroutable call.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string {
	return e.msg
}

func badRequest(msg string) error {
	return &requestError{status: http.StatusBadRequest, msg: msg}
}

// errorBody is the JSON shape of every failed call.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Code  string `json:"code,omitempty"`
}

// classify maps an error to its HTTP status and response body.
func classify(err error) (int, errorBody) {
	var (
		reqErr    *requestError
		ioErr     *mfs.IOError
		cmdErr    *git.CommandError
		launchErr *git.ProcessLaunchError
	)

	switch {
	case errors.As(err, &reqErr):
		return reqErr.status, errorBody{Error: reqErr.msg, Kind: kindRequest}
	case errors.As(err, &ioErr):
		body := errorBody{Error: ioErr.Error(), Kind: kindIO, Code: ioErr.Kind.String()}
		switch ioErr.Kind {
		case mfs.KindNotFound:
			return http.StatusNotFound, body
		case mfs.KindPermissionDenied:
			return http.StatusForbidden, body
		case mfs.KindAlreadyExists:
			return http.StatusConflict, body
		default:
			return http.StatusInternalServerError, body
		}
	case errors.As(err, &cmdErr):
		return http.StatusUnprocessableEntity, errorBody{Error: cmdErr.Error(), Kind: kindCommand}
	case errors.As(err, &launchErr):
		return http.StatusInternalServerError, errorBody{Error: launchErr.Error(), Kind: kindLaunch}
	default:
		return http.StatusInternalServerError, errorBody{Error: err.Error(), Kind: kindInternal}
	}
}
