package handler

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	t "github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/internal/service/auth"
)

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, data any, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return errors.New("failed to encode json")
	}

	js = append(js, '\n')

	maps.Copy(w.Header(), headers)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)

	return nil
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	// Use http.MaxBytesReader() to limit the size of the request body to 1MB.
	maxBytes := 1_048_576
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)
		case errors.As(err, &invalidUnmarshalError):
			return fmt.Errorf("invalid unmarshal error: %w", err)
		default:
			return err
		}
	}

	// A second value in the body is a client error.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func readString(qs url.Values, key string, defaultValue string) string {
	s := qs.Get(key)
	if s == "" {
		return defaultValue
	}
	return s
}

// readInt returns defaultValue when key is absent and records a validation
// error when it is not an integer.
func readInt(qs url.Values, key string, defaultValue int, errs map[string]string) int {
	s := qs.Get(key)
	if s == "" {
		return defaultValue
	}

	i, err := strconv.Atoi(s)
	if err != nil {
		errs[key] = "must be an integer value"
		return defaultValue
	}
	return i
}

func readCSV(qs url.Values, key string) []string {
	s := qs.Get(key)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// readFilters parses page and page_size.
func readFilters(qs url.Values) (models.Filters, map[string]string) {
	errs := map[string]string{}
	f := models.Filters{
		Page:     readInt(qs, "page", 1, errs),
		PageSize: readInt(qs, "page_size", 20, errs),
	}
	if len(errs) > 0 {
		return f, errs
	}
	return f, validateStruct(f)
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s format", name)
	}
	return id, nil
}

// self reports whether the authenticated user is id or an admin.
func self(r *http.Request, id uuid.UUID) bool {
	u := models.UserFromContext(r.Context())
	return u.ID == id || u.Role == t.RoleAdmin
}

func GetCode(err error) int {
	switch {
	case IsOneOf(err, t.ErrInvalidInput, t.ErrInvalidRating):
		return http.StatusUnprocessableEntity
	case IsOneOf(err, t.ErrInvalidTransition, t.ErrAlreadyTaken, t.ErrDriverBusy, t.ErrAlreadyRated,
		t.ErrDriverRegistered, t.ErrUserExists):
		return http.StatusConflict
	case IsOneOf(err, t.ErrNotEligible, t.ErrForbidden, t.ErrDriverRejected, t.ErrDriverNotRegistered):
		return http.StatusForbidden
	case IsOneOf(err, t.ErrRideNotFound, t.ErrUserNotFound, t.ErrLocationNotFound):
		return http.StatusNotFound
	case IsOneOf(err, auth.ErrInvalidToken, auth.ErrExpToken):
		return http.StatusUnauthorized
	case IsOneOf(err, t.ErrTransactionFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicError hides the text of errors that carry no domain meaning.
func publicError(err error) string {
	if GetCode(err) == http.StatusInternalServerError {
		return "the server encountered a problem and could not process your request"
	}
	return err.Error()
}

func IsOneOf(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
