package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"liquidgov/native/attestation"
	"liquidgov/native/delegation"
	"liquidgov/native/streaming"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to marshal response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	payload := map[string]any{
		"error": map[string]any{
			"message": message,
		},
	}
	body, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	return dec.Decode(out)
}

// writeEngineError maps a domain sentinel error to an HTTP status, falling
// back to 500 for anything the taxonomy doesn't name (a storage failure, a
// context cancellation).
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, delegation.ErrInvalidArgument),
		errors.Is(err, delegation.ErrSelfDelegate),
		errors.Is(err, delegation.ErrTopicInactive),
		errors.Is(err, delegation.ErrTargetDeadEnd),
		errors.Is(err, delegation.ErrActorDeadEnd),
		errors.Is(err, delegation.ErrWouldCycle),
		errors.Is(err, delegation.ErrWouldExceedDepth),
		errors.Is(err, attestation.ErrInvalidArgument),
		errors.Is(err, attestation.ErrShapeMismatch),
		errors.Is(err, attestation.ErrStaleReference),
		errors.Is(err, attestation.ErrDigestMismatch),
		errors.Is(err, attestation.ErrInsufficientSignatures),
		errors.Is(err, attestation.ErrInvalidSigner),
		errors.Is(err, attestation.ErrDuplicateSigner),
		errors.Is(err, streaming.ErrInvalidArgument),
		errors.Is(err, streaming.ErrInvalidPoolRate):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, delegation.ErrNotTopicOwner),
		errors.Is(err, delegation.ErrUnauthorized),
		errors.Is(err, attestation.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, attestation.ErrNonceUsed),
		errors.Is(err, attestation.ErrOperatorExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, attestation.ErrOperatorMissing),
		errors.Is(err, attestation.ErrWouldBreakQuorum):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
