package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/sparqlayers/internal/algebra"
	"github.com/roach88/sparqlayers/internal/codec"
	"github.com/roach88/sparqlayers/internal/engine"
	"github.com/roach88/sparqlayers/internal/store"
)

// apiError is an error with the HTTP status it should be reported with.
type apiError struct {
	Status  int
	Message string
	Err     error
}

func (e *apiError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *apiError) Unwrap() error { return e.Err }

func badRequest(message string, err error) *apiError {
	return &apiError{Status: http.StatusBadRequest, Message: message, Err: err}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

func handleError(c *gin.Context, err error) {
	status, body := mapError(err)
	c.JSON(status, body)
}

func mapError(err error) (int, errorBody) {
	body := errorBody{Error: err.Error()}

	var api *apiError
	if errors.As(err, &api) {
		return api.Status, body
	}

	var pe *codec.ParseError
	if errors.As(err, &pe) {
		body.Code = "PARSE_ERROR"
		body.Line = pe.Line
		body.Column = pe.Column
		return http.StatusBadRequest, body
	}

	var re *engine.RuntimeError
	if errors.As(err, &re) {
		body.Code = string(re.Code)
		switch re.Code {
		case engine.ErrCodeUnknownNode:
			return http.StatusNotFound, body
		case engine.ErrCodeTransport, engine.ErrCodeDecode:
			return http.StatusBadGateway, body
		case engine.ErrCodeSuperseded:
			return http.StatusConflict, body
		}
		return http.StatusInternalServerError, body
	}

	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, algebra.ErrUnknownNode):
		return http.StatusNotFound, body
	case errors.Is(err, algebra.ErrDimensionTaken):
		return http.StatusConflict, body
	case errors.Is(err, algebra.ErrNotBGP),
		errors.Is(err, algebra.ErrUnknownPredicate),
		errors.Is(err, algebra.ErrInvalidDimension):
		return http.StatusUnprocessableEntity, body
	}
	return http.StatusInternalServerError, body
}
