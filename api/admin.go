package api

import (
	"encoding/hex"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type createTopicRequest struct {
	Admin             string `json:"admin"`
	Name              string `json:"name"`
	DescriptionHash   string `json:"description_hash"`
	ProposalThreshold uint64 `json:"proposal_threshold"`
}

func (h *handlers) createTopic(w http.ResponseWriter, r *http.Request) {
	var req createTopicRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	id, err := h.delegation.CreateTopic(req.Admin, req.Name, req.DescriptionHash, req.ProposalThreshold)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"topic": id})
}

type setTopicActiveRequest struct {
	Actor  string `json:"actor"`
	Active bool   `json:"active"`
}

func (h *handlers) setTopicActive(w http.ResponseWriter, r *http.Request) {
	topic, ok := topicParam(w, r)
	if !ok {
		return
	}
	var req setTopicActiveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.delegation.SetTopicActive(req.Actor, topic, req.Active); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type setTopicThresholdRequest struct {
	Actor     string `json:"actor"`
	Threshold uint64 `json:"threshold"`
}

func (h *handlers) setTopicThreshold(w http.ResponseWriter, r *http.Request) {
	topic, ok := topicParam(w, r)
	if !ok {
		return
	}
	var req setTopicThresholdRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.delegation.SetTopicThreshold(req.Actor, topic, req.Threshold); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type registerOperatorRequest struct {
	ID        string `json:"id"`
	PublicKey string `json:"public_key"`
}

func (h *handlers) registerOperator(w http.ResponseWriter, r *http.Request) {
	var req registerOperatorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	pub, err := hex.DecodeString(req.PublicKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, "public_key must be hex-encoded")
		return
	}
	if err := h.attestation.RegisterOperator(req.ID, pub); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"status": "ok"})
}

func (h *handlers) deregisterOperator(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.attestation.DeregisterOperator(id); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type setPoolRateRequest struct {
	Rate string `json:"rate"`
}

func (h *handlers) setPoolRate(w http.ResponseWriter, r *http.Request) {
	topic, ok := topicParam(w, r)
	if !ok {
		return
	}
	var req setPoolRateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	rate, ok := new(big.Int).SetString(req.Rate, 10)
	if !ok {
		writeError(w, http.StatusBadRequest, "rate must be a base-10 integer")
		return
	}
	if err := h.streaming.SetPoolRate(topic, rate); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
