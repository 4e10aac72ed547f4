package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"github.com/erazemk/izposoja/internal/circulation"
	"github.com/erazemk/izposoja/internal/imaging"
	"github.com/erazemk/izposoja/internal/store"
)

var (
	json = jsoniter.ConfigCompatibleWithStandardLibrary

	// strictJSON rejects request fields the target struct does not declare.
	strictJSON = jsoniter.Config{
		EscapeHTML:             true,
		SortMapKeys:            true,
		ValidateJsonRawMessage: true,
		DisallowUnknownFields:  true,
	}.Froze()
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string       `json:"error"`
	Kind    string       `json:"kind,omitempty"`
	Details []fieldError `json:"details,omitempty"`
}

// requestError is a malformed or invalid request, always reported as 400.
type requestError struct {
	Message string
	Details []fieldError
}

func (e *requestError) Error() string { return e.Message }

func badRequest(format string, args ...any) error {
	return &requestError{Message: fmt.Sprintf(format, args...)}
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorBody{Error: message})
}

// jsonMessage writes {"message": ...} with status 200.
func jsonMessage(w http.ResponseWriter, message string) {
	jsonResponse(w, http.StatusOK, map[string]string{"message": message})
}

// decodeJSON decodes a JSON request body into target and validates it.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	if err := strictJSON.NewDecoder(r.Body).Decode(target); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	return validateStruct(target)
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, badRequest("%s must be a non-negative integer", name)
	}
	return n, nil
}

var circulationStatus = map[circulation.Kind]int{
	circulation.KindPatronNotFound:           http.StatusNotFound,
	circulation.KindBookNotFound:             http.StatusNotFound,
	circulation.KindBorrowingNotFound:        http.StatusNotFound,
	circulation.KindPatronNotActive:          http.StatusConflict,
	circulation.KindBorrowingLimitReached:    http.StatusConflict,
	circulation.KindNoCopyAvailable:          http.StatusConflict,
	circulation.KindRenewalLimitReached:      http.StatusConflict,
	circulation.KindBorrowingNotActive:       http.StatusConflict,
	circulation.KindBorrowingAlreadyReturned: http.StatusConflict,
	circulation.KindBorrowingOverdue:         http.StatusConflict,
	circulation.KindInvalidRequest:           http.StatusBadRequest,
	circulation.KindConcurrencyConflict:      http.StatusServiceUnavailable,
}

// storeErrors maps storage sentinels to a status and kind.
var storeErrors = []struct {
	err    error
	status int
	kind   string
}{
	{store.ErrNotFound, http.StatusNotFound, "not_found"},
	{store.ErrConflict, http.StatusConflict, "conflict"},
	{store.ErrHasActiveBorrowings, http.StatusConflict, "has_active_borrowings"},
	{store.ErrItemOnLoan, http.StatusConflict, "item_on_loan"},
	{store.ErrPlanInUse, http.StatusConflict, "plan_in_use"},
	{store.ErrInvalidStatus, http.StatusBadRequest, "invalid_status"},
	{imaging.ErrUnsupportedFormat, http.StatusBadRequest, "unsupported_image"},
}

// writeError reports err to the client. Unclassified errors are logged and
// answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		jsonResponse(w, http.StatusBadRequest, errorBody{
			Error:   reqErr.Message,
			Kind:    string(circulation.KindInvalidRequest),
			Details: reqErr.Details,
		})
		return
	}

	var circErr *circulation.Error
	if errors.As(err, &circErr) {
		status, ok := circulationStatus[circErr.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		if status == http.StatusServiceUnavailable {
			w.Header().Set("Retry-After", "1")
		}
		jsonResponse(w, status, errorBody{Error: circErr.Message, Kind: string(circErr.Kind)})
		return
	}

	for _, se := range storeErrors {
		if errors.Is(err, se.err) {
			jsonResponse(w, se.status, errorBody{Error: err.Error(), Kind: se.kind})
			return
		}
	}

	slog.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", RequestID(r.Context()),
		"error", err,
	)
	jsonError(w, http.StatusInternalServerError, "internal error")
}
