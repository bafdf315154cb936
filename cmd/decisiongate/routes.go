package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/decision-gate/core/pkg/evidence"
	"github.com/decision-gate/core/pkg/model"
	"github.com/decision-gate/core/pkg/runpack"
	"github.com/decision-gate/core/pkg/scenario"
)

// registerRoutes wires one HTTP endpoint per §6 operation onto the
// facade, JSON in, JSON out, except verify_runpack: it has no endpoint
// here and is served offline by the verify subcommand. The export
// endpoint streams a tar.gz bundle rather than JSON. This is the transport the facade's own doc
// comment says sits in front of it; the facade itself holds no network
// concerns.
func registerRoutes(mux *http.ServeMux, dep *deployment) {
	mux.HandleFunc("/v1/scenarios", withJSON(dep.handleDefineScenario))
	mux.HandleFunc("/v1/schemas", withJSON(dep.handleRegisterSchema))
	mux.HandleFunc("/v1/runs", withJSON(dep.handleStartRun))
	mux.HandleFunc("/v1/runs/step", withJSON(dep.handleStepRun))
	mux.HandleFunc("/v1/runs/submit", withJSON(dep.handleSubmitRun))
	mux.HandleFunc("/v1/runs/precheck", withJSON(dep.handlePrecheck))
	mux.HandleFunc("/v1/evidence/query", withJSON(dep.handleQueryEvidence))
	mux.HandleFunc("/v1/runs/export", dep.handleExportRunpack)
}

func withJSON(h func(w http.ResponseWriter, r *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if gerr, ok := err.(*model.GateError); ok {
		status = statusForCode(gerr.Code)
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(gerr)
		return
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": "internal", "message": err.Error()})
}

func statusForCode(code model.Code) int {
	switch code {
	case model.CodeUnknownRun, model.CodeUnknownScenario:
		return http.StatusNotFound
	case model.CodeUnauthorized, model.CodeDisclosureBlocked:
		return http.StatusForbidden
	case model.CodeRunBusy:
		return http.StatusConflict
	case model.CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusBadRequest
	}
}

func (d *deployment) handleDefineScenario(w http.ResponseWriter, r *http.Request) {
	var spec model.ScenarioSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, model.NewErrorf(model.CodeInvalidSpec, "decoding request: %v", err))
		return
	}
	scenarioID, specHash, err := d.facade.DefineScenario(&spec)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"scenario_id": scenarioID, "spec_hash": specHash})
}

func (d *deployment) handleRegisterSchema(w http.ResponseWriter, r *http.Request) {
	var ds model.DataShape
	if err := json.NewDecoder(r.Body).Decode(&ds); err != nil {
		writeError(w, model.NewErrorf(model.CodeInvalidSchema, "decoding request: %v", err))
		return
	}
	bearer := r.Header.Get("Authorization")
	schemaID, version, hash, err := d.facade.RegisterSchema(bearer, &ds)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"schema_id": schemaID, "version": version, "hash": hash})
}

type startRunRequest struct {
	TenantID          model.TenantID    `json:"tenant_id"`
	NamespaceID       model.NamespaceID `json:"namespace_id"`
	RunID             string            `json:"run_id"`
	ScenarioID        string            `json:"scenario_id"`
	RunConfig         map[string]any    `json:"run_config,omitempty"`
	StartedAt         int64             `json:"started_at"`
	IssueEntryPackets bool              `json:"issue_entry_packets"`
}

func (d *deployment) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.NewErrorf(model.CodeInvalidSpec, "decoding request: %v", err))
		return
	}
	run, err := d.facade.StartRun(req.TenantID, req.NamespaceID, req.RunID, req.ScenarioID, req.RunConfig, req.StartedAt, req.IssueEntryPackets)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(run)
}

func (d *deployment) handleStepRun(w http.ResponseWriter, r *http.Request) {
	var req scenario.StepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.NewErrorf(model.CodeInvalidSpec, "decoding request: %v", err))
		return
	}
	result, err := d.facade.StepRun(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(result)
}

type submitRunRequest struct {
	TenantID    model.TenantID    `json:"tenant_id"`
	NamespaceID model.NamespaceID `json:"namespace_id"`
	RunID       string            `json:"run_id"`
	Payload     any               `json:"payload"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
}

func (d *deployment) handleSubmitRun(w http.ResponseWriter, r *http.Request) {
	var req submitRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.NewErrorf(model.CodeInvalidSpec, "decoding request: %v", err))
		return
	}
	seq, digest, err := d.facade.SubmitRun(req.TenantID, req.NamespaceID, req.RunID, req.Payload, req.Metadata)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"seq": seq, "hash": digest})
}

type precheckRequest struct {
	Spec            *model.ScenarioSpec `json:"spec"`
	StageID         string              `json:"stage_id"`
	DataShapeSchema map[string]any      `json:"data_shape_schema,omitempty"`
	Payload         any                 `json:"payload"`
}

func (d *deployment) handlePrecheck(w http.ResponseWriter, r *http.Request) {
	var req precheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.NewErrorf(model.CodeInvalidSpec, "decoding request: %v", err))
		return
	}
	result, err := d.facade.Precheck(req.Spec, req.StageID, req.DataShapeSchema, req.Payload)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(result)
}

type queryEvidenceRequest struct {
	TenantID    model.TenantID       `json:"tenant_id"`
	NamespaceID model.NamespaceID    `json:"namespace_id"`
	RunID       string               `json:"run_id"`
	ScenarioID  string               `json:"scenario_id"`
	StageID     string               `json:"stage_id"`
	TriggerID   string               `json:"trigger_id"`
	TriggerTime int64                `json:"trigger_time"`
	Query       model.EvidenceQuery  `json:"query"`
	Trust       *model.TrustOverride `json:"trust,omitempty"`
	Disclose    bool                 `json:"disclose"`
}

func (d *deployment) handleQueryEvidence(w http.ResponseWriter, r *http.Request) {
	var req queryEvidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.NewErrorf(model.CodeInvalidSpec, "decoding request: %v", err))
		return
	}
	evidCtx := evidence.Context{
		TenantID:    req.TenantID,
		NamespaceID: req.NamespaceID,
		RunID:       req.RunID,
		ScenarioID:  req.ScenarioID,
		StageID:     req.StageID,
		TriggerID:   req.TriggerID,
		TriggerTime: req.TriggerTime,
	}
	result, err := d.facade.QueryEvidence(r.Context(), evidCtx, req.Query, req.Trust, req.Disclose)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(result)
}

// handleExportRunpack streams the runpack bundle itself (tar.gz), not just
// its manifest — the point of a runpack is that an operator can audit it
// offline with nothing but the bundle file, so the wire format here is the
// same tar.gz runpack.ReadBundle reads back.
func (d *deployment) handleExportRunpack(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := strconv.ParseUint(r.URL.Query().Get("tenant_id"), 10, 32)
	namespaceID, _ := strconv.ParseUint(r.URL.Query().Get("namespace_id"), 10, 32)
	runID := r.URL.Query().Get("run_id")
	prefix := r.URL.Query().Get("prefix")

	rp, err := d.facade.ExportRunpackBundle(model.TenantID(tenantID), model.NamespaceID(namespaceID), runID, prefix)
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := runpack.WriteBundleTo(&buf, rp); err != nil {
		writeError(w, fmt.Errorf("assembling runpack bundle: %w", err))
		return
	}

	if d.runpacks != nil {
		if err := d.runpacks.Put(r.Context(), rp.Manifest.RootHash, buf.Bytes()); err != nil {
			d.logger.Error("persisting runpack bundle", "error", err, "run_id", runID)
		}
	}

	w.Header().Set("Content-Type", "application/gzip")
	w.Header().Set("X-Root-Hash", rp.Manifest.RootHash)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", runID+".runpack.tar.gz"))
	if _, err := w.Write(buf.Bytes()); err != nil {
		d.logger.Error("writing runpack bundle to response", "error", err, "run_id", runID)
	}
}
