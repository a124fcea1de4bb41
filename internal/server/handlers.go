package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tvabook-dev/tvabook/internal/admin"
	"github.com/tvabook-dev/tvabook/internal/model"
	"github.com/tvabook-dev/tvabook/internal/period"
	"github.com/tvabook-dev/tvabook/internal/pipeline"
	"github.com/tvabook-dev/tvabook/internal/rules"
)

// ruleJSON is the single-rule wire representation.
type ruleJSON struct {
	Category string          `json:"category"`
	Rate     decimal.Decimal `json:"rate"`
	Keywords []string        `json:"keywords"`
}

// rulePayload is the mutation body. Nil fields mean "keep existing" on
// update.
type rulePayload struct {
	Rate     *decimal.Decimal `json:"rate"`
	Keywords []string         `json:"keywords"`
}

func (p rulePayload) toAdmin() admin.Payload {
	return admin.Payload{Rate: p.Rate, Keywords: p.Keywords}
}

func toRuleJSON(r model.Rule) ruleJSON {
	kw := r.Keywords
	if kw == nil {
		kw = []string{}
	}
	return ruleJSON{Category: r.Category, Rate: r.Rate, Keywords: kw}
}

func actorOf(r *http.Request) string {
	return "api:" + r.RemoteAddr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleListRules returns the ruleset in its persisted document shape,
// category order preserved.
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := rules.EncodeRules(w, s.admin.List()); err != nil {
		s.log.Error("encoding ruleset", "error", err)
	}
}

func (s *Server) handleReplaceRules(w http.ResponseWriter, r *http.Request) {
	ruleset, err := rules.DecodeRules(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "malformed ruleset document: " + err.Error()})
		return
	}
	if err := s.admin.ReplaceAll(actorOf(r), ruleset); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.admin.Get(r.PathValue("category"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRuleJSON(rule))
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var payload rulePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "malformed payload: " + err.Error()})
		return
	}
	rule, err := s.admin.Create(actorOf(r), r.PathValue("category"), payload.toAdmin())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRuleJSON(rule))
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var payload rulePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "malformed payload: " + err.Error()})
		return
	}
	rule, err := s.admin.Update(actorOf(r), r.PathValue("category"), payload.toAdmin())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRuleJSON(rule))
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.Delete(actorOf(r), r.PathValue("category")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

type validateRequest struct {
	Kind     string      `json:"kind"`
	Category string      `json:"category"`
	Payload  rulePayload `json:"payload"`
}

// handleValidate is the dry-run validator: same checks as the mutating
// operations, no side effects.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "malformed payload: " + err.Error()})
		return
	}
	result := s.admin.Validate(req.Kind, req.Category, req.Payload.toAdmin())
	writeJSON(w, http.StatusOK, result)
}

// handleListAccounts returns the configured bank account numbers.
func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts := s.accounts
	if accounts == nil {
		accounts = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"accounts": accounts})
}

type processRequest struct {
	Account  string `json:"account"`
	Period   string `json:"period,omitempty"`    // YYYY-MM, defaults to the previous month
	FilePath string `json:"file_path,omitempty"` // explicit statement file, bypasses base path resolution
}

type processResponse struct {
	Status   string                `json:"status"`
	ReportID string                `json:"report_id,omitempty"`
	Report   model.SynthesisReport `json:"report"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "malformed payload: " + err.Error()})
		return
	}
	if req.Account == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "account is required"})
		return
	}

	per := period.Previous(time.Now())
	if req.Period != "" {
		var err error
		per, err = period.Parse(req.Period)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error()})
			return
		}
	}

	var (
		result pipeline.Result
		err    error
	)
	if req.FilePath != "" {
		result, err = s.pipeline.ProcessFile(req.FilePath, req.Account, per)
	} else {
		result, err = s.pipeline.ProcessAccount(s.basePath, req.Account, per)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, processResponse{
		Status:   "success",
		ReportID: result.ReportID,
		Report:   result.Report,
	})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	records, err := s.archive.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": records})
}

func (s *Server) handleDeclareReport(w http.ResponseWriter, r *http.Request) {
	if err := s.archive.MarkDeclared(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
