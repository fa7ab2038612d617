package responses

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	pkgerrors "github.com/angelmondragon/warehouse/pkg/errors"
	"github.com/angelmondragon/warehouse/pkg/logger"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Success{Data: data})
}

// ErrorPayload maps err to its HTTP status and public envelope. Messages of
// caller-facing codes are passed through; everything else gets the generic
// public message for its code.
func ErrorPayload(err error) (int, Failure) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())
	msg := meta.PublicMessage
	switch typed.Code() {
	case pkgerrors.CodeValidation, pkgerrors.CodeNotFound, pkgerrors.CodeConflict:
		if m := typed.Message(); m != "" {
			msg = m
		}
	}

	payload := Failure{
		Error: APIError{
			Code:    string(typed.Code()),
			Message: msg,
		},
	}
	if meta.DetailsAllowed {
		if details := typed.Details(); details != nil {
			payload.Error.Details = details
		}
	}
	return meta.HTTPStatus, payload
}

func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	status, payload := ErrorPayload(err)
	if logg != nil {
		logg.Error(logg.WithFields(ctx, DumpFields(err)), "request.error", err)
	}
	writeJSON(w, status, payload)
}

// DumpFields flattens the error chain and any driver diagnostics into log
// fields.
func DumpFields(err error) map[string]any {
	dump := pkgerrors.Dump(err)
	fields := map[string]any{
		"error":       dump.TopMessage,
		"error_code":  dump.Code,
		"error_chain": dump.Chain,
	}
	if dump.Driver != "" {
		fields["db_driver"] = dump.Driver
		fields["db_code"] = dump.DBCode
		fields["db_detail"] = dump.DBDetail
		fields["db_message"] = dump.DBMessage
		fields["db_table"] = dump.DBTable
		fields["db_column"] = dump.DBColumn
		fields["db_constraint"] = dump.DBConstraint
	}
	return fields
}

// Encode writes an envelope as indented JSON, for command line output.
func Encode(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
