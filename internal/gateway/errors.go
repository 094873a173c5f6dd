package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"socialsync/internal/model"
)

// CodeInvalidPayload marks a response that could not be decoded or failed validation.
const CodeInvalidPayload = "INVALID_PAYLOAD"

// RequestError describes a failed gateway call.
type RequestError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
	Transport  bool
	Err        error
}

func (e *RequestError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Err != nil && e.StatusCode > 0:
		return fmt.Sprintf("%s: status=%d: %v", e.Op, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: status=%d: %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode > 0:
		return fmt.Sprintf("%s: status=%d", e.Op, e.StatusCode)
	default:
		return e.Op
	}
}

func (e *RequestError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is maps HTTP statuses onto the model sentinels so callers can use errors.Is.
func (e *RequestError) Is(target error) bool {
	if e == nil || e.Transport {
		return false
	}
	switch target {
	case model.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case model.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case model.ErrBanned:
		return e.StatusCode == http.StatusForbidden && strings.EqualFold(e.Code, "ACCOUNT_BANNED")
	}
	return false
}

// UserMessage is the text a screen shows for this failure.
func (e *RequestError) UserMessage() string {
	switch {
	case e.Transport:
		return "Network error. Please check your connection."
	case e.Message != "":
		return e.Message
	case e.StatusCode == http.StatusUnauthorized:
		return "Your session has expired. Please log in again."
	case e.StatusCode >= 500:
		return "Something went wrong. Please try again."
	default:
		return http.StatusText(e.StatusCode)
	}
}

// errorBody accepts both {"message": "..."} and {"error": {"code","message"}} shapes.
type errorBody struct {
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Error   json.RawMessage `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func statusError(op string, status int, data []byte) *RequestError {
	reqErr := &RequestError{Op: op, StatusCode: status}

	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil {
		reqErr.Code = body.Code
		reqErr.Message = body.Message
		if len(body.Error) > 0 {
			var detail errorDetail
			if json.Unmarshal(body.Error, &detail) == nil {
				reqErr.Code = detail.Code
				reqErr.Message = detail.Message
			} else {
				var text string
				if json.Unmarshal(body.Error, &text) == nil && reqErr.Message == "" {
					reqErr.Message = text
				}
			}
		}
		return reqErr
	}

	if text := strings.TrimSpace(string(data)); text != "" && len(text) < 200 {
		reqErr.Message = text
	}
	return reqErr
}
