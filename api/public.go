package api

import (
	"encoding/hex"
	"math/big"
	"net/http"

	"liquidgov/native/attestation"
)

type delegateRequest struct {
	Actor  string `json:"actor"`
	Target string `json:"target"`
}

// delegate, revoke, declare_dead_end, and revoke_dead_end all act on the
// caller's own behalf: the actor field asserts the caller's identity. This
// surface assumes an upstream boundary (mTLS terminator, signed-request
// gateway) already bound the connection to that identity; enforcing that
// binding itself is the excluded secure-enclave/wallet-runtime concern.
func (h *handlers) delegate(w http.ResponseWriter, r *http.Request) {
	topic, ok := topicParam(w, r)
	if !ok {
		return
	}
	var req delegateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.delegation.Delegate(req.Actor, topic, req.Target); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type actorRequest struct {
	Actor string `json:"actor"`
}

func (h *handlers) revoke(w http.ResponseWriter, r *http.Request) {
	topic, ok := topicParam(w, r)
	if !ok {
		return
	}
	var req actorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.delegation.Revoke(req.Actor, topic); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *handlers) declareDeadEnd(w http.ResponseWriter, r *http.Request) {
	topic, ok := topicParam(w, r)
	if !ok {
		return
	}
	var req actorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.delegation.DeclareDeadEnd(req.Actor, topic); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *handlers) revokeDeadEnd(w http.ResponseWriter, r *http.Request) {
	topic, ok := topicParam(w, r)
	if !ok {
		return
	}
	var req actorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.delegation.RevokeDeadEnd(req.Actor, topic); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type signatureWire struct {
	Scheme string `json:"scheme"`
	Bytes  string `json:"bytes"`
}

type submitAttestationRequest struct {
	Topic           uint64          `json:"topic"`
	ReferenceHeight uint64          `json:"reference_height"`
	ResultDigest    string          `json:"result_digest"`
	Nonce           string          `json:"nonce"`
	Signatures      []signatureWire `json:"signatures"`
	Participants    []string        `json:"participants"`
	Powers          []string        `json:"powers"`
}

// submitAttestation is self-authenticating: the nonce and per-signature
// recovery against the canonical digest are the entire trust boundary, so
// this endpoint carries no auth middleware.
func (h *handlers) submitAttestation(w http.ResponseWriter, r *http.Request) {
	var req submitAttestationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	digestBytes, err := hex.DecodeString(req.ResultDigest)
	if err != nil || len(digestBytes) != 32 {
		writeError(w, http.StatusBadRequest, "result_digest must be 32 bytes of hex")
		return
	}
	nonceBytes, err := hex.DecodeString(req.Nonce)
	if err != nil || len(nonceBytes) != 32 {
		writeError(w, http.StatusBadRequest, "nonce must be 32 bytes of hex")
		return
	}
	if len(req.Participants) != len(req.Powers) {
		writeError(w, http.StatusBadRequest, "participants and powers must be the same length")
		return
	}

	var digest, nonce [32]byte
	copy(digest[:], digestBytes)
	copy(nonce[:], nonceBytes)

	signatures := make([]attestation.Signature, 0, len(req.Signatures))
	for _, sig := range req.Signatures {
		sigBytes, err := hex.DecodeString(sig.Bytes)
		if err != nil {
			writeError(w, http.StatusBadRequest, "signature bytes must be hex-encoded")
			return
		}
		signatures = append(signatures, attestation.Signature{
			Scheme: attestation.SignatureScheme(sig.Scheme),
			Bytes:  sigBytes,
		})
	}

	powers := make([]*big.Int, 0, len(req.Powers))
	for _, raw := range req.Powers {
		p, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			writeError(w, http.StatusBadRequest, "powers must be base-10 integers")
			return
		}
		powers = append(powers, p)
	}

	record := attestation.Record{
		ResultDigest:    digest,
		Topic:           req.Topic,
		ReferenceHeight: req.ReferenceHeight,
		Nonce:           nonce,
		Signatures:      signatures,
	}
	if err := h.attestation.SubmitAttestation(record, req.Participants, powers); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "accepted"})
}
