package api

import (
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"liquidgov/native/votetally"
)

func topicParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "topic")
	topic, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "topic must be a non-negative integer")
		return 0, false
	}
	return topic, true
}

func (h *handlers) getTopic(w http.ResponseWriter, r *http.Request) {
	topic, ok := topicParam(w, r)
	if !ok {
		return
	}
	t, found, err := h.delegation.Topic(topic)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "unknown topic")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *handlers) activeEdges(w http.ResponseWriter, r *http.Request) {
	topic, ok := topicParam(w, r)
	if !ok {
		return
	}
	edges, err := h.delegation.ActiveEdges(topic)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"edges": edges})
}

func (h *handlers) getDelegation(w http.ResponseWriter, r *http.Request) {
	topic, ok := topicParam(w, r)
	if !ok {
		return
	}
	participant := chi.URLParam(r, "participant")
	chain, err := h.delegation.Chain(participant, topic)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	hasEdge := len(chain) > 1
	var delegate string
	if hasEdge {
		delegate = chain[1]
	}
	writeJSON(w, http.StatusOK, map[string]any{"delegate": delegate, "has_edge": hasEdge})
}

func (h *handlers) getTerminal(w http.ResponseWriter, r *http.Request) {
	topic, ok := topicParam(w, r)
	if !ok {
		return
	}
	participant := chi.URLParam(r, "participant")
	terminal, err := h.delegation.TerminalDelegate(participant, topic)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"terminal": terminal})
}

func (h *handlers) getChain(w http.ResponseWriter, r *http.Request) {
	topic, ok := topicParam(w, r)
	if !ok {
		return
	}
	participant := chi.URLParam(r, "participant")
	chain, err := h.delegation.Chain(participant, topic)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chain": chain})
}

func (h *handlers) getDepth(w http.ResponseWriter, r *http.Request) {
	topic, ok := topicParam(w, r)
	if !ok {
		return
	}
	participant := chi.URLParam(r, "participant")
	depth, err := h.delegation.Depth(participant, topic)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"depth": depth})
}

func (h *handlers) isDeadEnd(w http.ResponseWriter, r *http.Request) {
	topic, ok := topicParam(w, r)
	if !ok {
		return
	}
	participant := chi.URLParam(r, "participant")
	deadEnd, err := h.delegation.IsDeadEnd(participant, topic)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dead_end": deadEnd})
}

func (h *handlers) getPower(w http.ResponseWriter, r *http.Request) {
	topic, ok := topicParam(w, r)
	if !ok {
		return
	}
	participant := chi.URLParam(r, "participant")
	power, updatedAt, digest, err := h.attestation.GetPower(participant, topic)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"power":      power.String(),
		"updated_at": updatedAt,
		"digest":     fmt.Sprintf("%x", digest),
	})
}

func (h *handlers) operatorHealth(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	count, active, lastAcceptedAt, err := h.attestation.OperatorHealth(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"acceptance_counter": count,
		"active":             active,
		"last_accepted_at":   lastAcceptedAt,
	})
}

func (h *handlers) flowView(w http.ResponseWriter, r *http.Request) {
	topic, ok := topicParam(w, r)
	if !ok {
		return
	}
	recipient := chi.URLParam(r, "recipient")
	rate, accrued, lastChange, err := h.streaming.FlowView(recipient, topic)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rate":              rate.String(),
		"projected_accrued": accrued.String(),
		"last_change_at":    lastChange,
	})
}

func (h *handlers) poolView(w http.ResponseWriter, r *http.Request) {
	topic, ok := topicParam(w, r)
	if !ok {
		return
	}
	rate, distributed, remainder, err := h.streaming.PoolView(topic)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pool_rate":       rate.String(),
		"distributed_sum": distributed.String(),
		"remainder":       remainder.String(),
	})
}

// tallyBallot sums cached voting power behind a yes/no/abstain ballot,
// falling back to 1 per voter absent from the power cache. The ballot's
// voters are expected to already be resolved to delegation-graph terminals
// by the caller; this handler does not walk the delegation graph itself.
func (h *handlers) tallyBallot(w http.ResponseWriter, r *http.Request) {
	topic, ok := topicParam(w, r)
	if !ok {
		return
	}
	var ballot votetally.Ballot
	if err := decodeJSON(r, &ballot); err != nil {
		writeError(w, http.StatusBadRequest, "invalid ballot body")
		return
	}
	tally, err := votetally.ComputeTally(h.attestation, topic, ballot)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"yes":     tally.Yes.String(),
		"no":      tally.No.String(),
		"abstain": tally.Abstain.String(),
	})
}

func (h *handlers) estimateMonthly(w http.ResponseWriter, r *http.Request) {
	topic, ok := topicParam(w, r)
	if !ok {
		return
	}
	power, ok1 := new(big.Int).SetString(r.URL.Query().Get("power"), 10)
	totalPower, ok2 := new(big.Int).SetString(r.URL.Query().Get("total_power"), 10)
	if !ok1 || !ok2 {
		writeError(w, http.StatusBadRequest, "power and total_power query parameters must be base-10 integers")
		return
	}
	rate, monthly, shareBps, err := h.streaming.EstimateMonthly(topic, power, totalPower)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"flow_rate":          rate.String(),
		"tokens_per_month":   monthly.String(),
		"share_basis_points": shareBps,
	})
}
