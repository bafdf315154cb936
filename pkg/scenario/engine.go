package scenario

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/decision-gate/core/pkg/canon"
	"github.com/decision-gate/core/pkg/evidence"
	"github.com/decision-gate/core/pkg/model"
	"github.com/decision-gate/core/pkg/policyhooks"
	"github.com/decision-gate/core/pkg/tristate"
	"github.com/decision-gate/core/pkg/validate"
)

// Engine is the scenario runtime: the orchestrator that owns run state and
// calls into pkg/tristate, pkg/evidence, and pkg/policyhooks to advance a
// run one step at a time (§4.6).
type Engine struct {
	Registry *Registry
	Runs     Store
	Pipeline *evidence.Pipeline
	Policies *policyhooks.Evaluator
	Logger   *slog.Logger

	locks  *runLocks
	hasher *canon.Hasher
}

func NewEngine(registry *Registry, runs Store, pipeline *evidence.Pipeline, policies *policyhooks.Evaluator, logger *slog.Logger) *Engine {
	return &Engine{
		Registry: registry,
		Runs:     runs,
		Pipeline: pipeline,
		Policies: policies,
		Logger:   logger,
		locks:    newRunLocks(),
		hasher:   canon.NewHasher(0),
	}
}

// Define validates and registers a ScenarioSpec, returning its spec_hash.
func (e *Engine) Define(spec *model.ScenarioSpec) (string, error) {
	return e.Registry.Define(spec)
}

// StartRun creates a new RunState pinned to scenario_id's current
// spec_hash (§4.6 `start`).
func (e *Engine) StartRun(tenantID model.TenantID, namespaceID model.NamespaceID, runID, scenarioID string, runConfig map[string]any, startedAt int64, issueEntryPackets bool) (*model.RunState, error) {
	if _, exists, err := e.Runs.Load(tenantID, namespaceID, runID); err != nil {
		return nil, model.NewErrorf(model.CodeRunStateCorrupt, "loading existing run: %v", err)
	} else if exists {
		return nil, model.NewErrorf(model.CodeDuplicateRunID, "run_id %q already exists", runID)
	}

	spec, specHash, ok := e.Registry.Resolve(namespaceID, scenarioID)
	if !ok {
		return nil, model.NewErrorf(model.CodeUnknownScenario, "scenario %q is not defined in namespace %d", scenarioID, namespaceID)
	}
	if len(spec.Stages) == 0 {
		return nil, model.NewErrorf(model.CodeInvalidSpec, "scenario %q has no stages", scenarioID)
	}

	first := spec.Stages[0]
	run := &model.RunState{
		TenantID:        tenantID,
		NamespaceID:     namespaceID,
		RunID:           runID,
		ScenarioID:      scenarioID,
		SpecHash:        specHash,
		CurrentStageID:  first.StageID,
		StageEnteredAt:  startedAt,
		Status:          model.StatusActive,
		DispatchTargets: dispatchTargets(runConfig),
	}
	if issueEntryPackets {
		run.Packets = appendPackets(run.Packets, first)
	}

	if err := e.Runs.Save(run); err != nil {
		return nil, model.NewErrorf(model.CodeRunStateCorrupt, "saving new run: %v", err)
	}
	return run, nil
}

// StepRequest is the input to StepRun (§6 `step_run`).
type StepRequest struct {
	TenantID      model.TenantID
	NamespaceID   model.NamespaceID
	RunID         string
	TriggerID     string
	AgentID       string
	TriggerTime   int64
	CorrelationID string
	LocalFeedback bool // when true, include the per-gate trace (§4.6 feedback policy)
}

// StepResult is the §6 `step_run` response shape: `{decision, packets,
// status}` plus an optional trace for local callers.
type StepResult struct {
	Decision model.DecisionOutcome
	Packets  []model.Packet
	Status   model.RunStatus
	Trace    []model.GateEval
}

// StepRun implements §4.6's 5-step "advance step" algorithm shared by
// next/trigger.
func (e *Engine) StepRun(ctx context.Context, req StepRequest) (*StepResult, error) {
	key := runKey(req.TenantID, req.NamespaceID, req.RunID)
	release, ok := e.locks.tryAcquire(key)
	if !ok {
		return nil, model.NewErrorf(model.CodeRunBusy, "run %q has a step already in flight", req.RunID)
	}
	defer release()

	run, exists, err := e.Runs.Load(req.TenantID, req.NamespaceID, req.RunID)
	if err != nil {
		return nil, model.NewErrorf(model.CodeRunStateCorrupt, "loading run: %v", err)
	}
	if !exists {
		return nil, model.NewErrorf(model.CodeUnknownRun, "run %q does not exist", req.RunID)
	}
	if run.Status.Terminal() {
		return nil, model.NewErrorf(model.CodeRunFrozen, "run %q is %s and accepts no further steps", req.RunID, run.Status)
	}
	if run.HasTrigger(req.TriggerID) {
		return nil, model.NewErrorf(model.CodeDuplicateTrigger, "trigger_id %q already recorded for run %q", req.TriggerID, req.RunID)
	}

	spec, ok := e.Registry.ByHash(run.SpecHash)
	if !ok {
		return nil, model.NewErrorf(model.CodeRunStateCorrupt, "run %q is pinned to unresolvable spec_hash %q", req.RunID, run.SpecHash)
	}
	stage, ok := findStage(spec, run.CurrentStageID)
	if !ok {
		return nil, model.NewErrorf(model.CodeRunStateCorrupt, "run %q current_stage_id %q not found in its pinned spec", req.RunID, run.CurrentStageID)
	}

	// Step 1: append the trigger with a new monotonic seq.
	triggerSeq := run.NextSeq()
	run.Triggers = append(run.Triggers, model.Trigger{
		Seq:           triggerSeq,
		TriggerID:     req.TriggerID,
		AgentID:       req.AgentID,
		TriggerTime:   req.TriggerTime,
		CorrelationID: req.CorrelationID,
	})

	// Steps 2-3: resolve conditions (deduplicated across this step's gates)
	// and evaluate each gate's RET.
	conditions := conditionsByID(spec)
	conditionIDs := dedupedConditionIDs(stage)
	evidCtx := evidence.Context{
		TenantID:    req.TenantID,
		NamespaceID: req.NamespaceID,
		RunID:       req.RunID,
		ScenarioID:  run.ScenarioID,
		StageID:     stage.StageID,
		TriggerID:   req.TriggerID,
		TriggerTime: req.TriggerTime,
	}
	outcomes, evals := e.Pipeline.Resolve(ctx, evidCtx, conditions, conditionIDs)
	evalByID := make(map[string]model.ConditionEval, len(evals))
	for _, ev := range evals {
		evalByID[ev.ConditionID] = ev
	}

	gateOutcomes := make(map[string]model.TriState, len(stage.Gates))
	gateOutcomeStrings := make(map[string]string, len(stage.Gates))
	stepGateEvals := make([]model.GateEval, 0, len(stage.Gates))
	for _, gate := range stage.Gates {
		outcome, trace := tristate.Evaluate(gate.Requirement, outcomes)
		gateOutcomes[gate.GateID] = outcome
		gateOutcomeStrings[gate.GateID] = outcome.String()

		conds := make([]model.ConditionEval, 0, len(trace.Consulted))
		for _, c := range trace.Consulted {
			if ev, ok := evalByID[c.ConditionID]; ok {
				conds = append(conds, ev)
			}
		}
		ge := model.GateEval{Seq: triggerSeq, StageID: stage.StageID, GateID: gate.GateID, Outcome: outcome, Conditions: conds}
		stepGateEvals = append(stepGateEvals, ge)
	}
	run.GateEvals = append(run.GateEvals, stepGateEvals...)

	// Step 4: determine outcome.
	timeoutElapsed := stage.TimeoutMS != nil && req.TriggerTime-run.StageEnteredAt > *stage.TimeoutMS
	outcome := decideOutcome(spec, stage, gateOutcomes)
	if outcome.Kind == model.OutcomeHold && timeoutElapsed {
		outcome = decideTimeout(stage)
	}

	if e.Policies != nil && len(spec.Policies) > 0 {
		results := e.Policies.Evaluate(spec.Policies, policyhooks.Input{
			RunID:        req.RunID,
			ScenarioID:   run.ScenarioID,
			StageID:      stage.StageID,
			TriggerID:    req.TriggerID,
			GateOutcomes: gateOutcomeStrings,
		})
		tags, blocked := policyhooks.Summarize(results)
		if blocked {
			summary := &model.SafeSummary{Status: "hold", PolicyTags: tags}
			if outcome.Kind == model.OutcomeHold && outcome.Summary != nil {
				summary.UnmetGates = outcome.Summary.UnmetGates
			}
			outcome = model.DecisionOutcome{Kind: model.OutcomeHold, Summary: summary}
		} else if outcome.Kind == model.OutcomeHold && outcome.Summary != nil && len(tags) > 0 {
			outcome.Summary.PolicyTags = tags
		}
	}

	// Step 5: record the decision and, on advance, update stage state.
	decisionSeq := run.NextSeq()
	run.Decisions = append(run.Decisions, model.DecisionRecord{
		DecisionID:    fmt.Sprintf("%s#%d", req.TriggerID, decisionSeq),
		Seq:           decisionSeq,
		TriggerID:     req.TriggerID,
		StageID:       stage.StageID,
		DecidedAt:     req.TriggerTime,
		Outcome:       outcome,
		CorrelationID: req.CorrelationID,
	})

	var newPackets []model.Packet
	switch outcome.Kind {
	case model.OutcomeComplete:
		run.Status = model.StatusCompleted
	case model.OutcomeFail:
		run.Status = model.StatusFailed
	case model.OutcomeAdvance:
		next, ok := findStage(spec, outcome.To)
		if !ok {
			return nil, model.NewErrorf(model.CodeRunStateCorrupt, "advance target stage %q not found", outcome.To)
		}
		run.CurrentStageID = next.StageID
		run.StageEnteredAt = req.TriggerTime
		before := len(run.Packets)
		run.Packets = appendPackets(run.Packets, next)
		newPackets = append(newPackets, run.Packets[before:]...)
	}

	if err := e.Runs.Save(run); err != nil {
		return nil, model.NewErrorf(model.CodeRunStateCorrupt, "saving run after step: %v", err)
	}

	result := &StepResult{Decision: outcome, Packets: newPackets, Status: run.Status}
	if req.LocalFeedback {
		result.Trace = stepGateEvals
	}
	return result, nil
}

// SubmitRun records a canonical-hashed payload without affecting gate
// evaluation (§4.6 `submit`).
func (e *Engine) SubmitRun(tenantID model.TenantID, namespaceID model.NamespaceID, runID string, payload any, metadata map[string]any) (uint64, model.HashDigest, error) {
	run, exists, err := e.Runs.Load(tenantID, namespaceID, runID)
	if err != nil {
		return 0, model.HashDigest{}, model.NewErrorf(model.CodeRunStateCorrupt, "loading run: %v", err)
	}
	if !exists {
		return 0, model.HashDigest{}, model.NewErrorf(model.CodeUnknownRun, "run %q does not exist", runID)
	}
	if run.Status.Terminal() {
		return 0, model.HashDigest{}, model.NewErrorf(model.CodeRunFrozen, "run %q is %s and accepts no further submissions", runID, run.Status)
	}

	digest, err := e.hasher.Hash(payload)
	if err != nil {
		return 0, model.HashDigest{}, model.NewErrorf(model.CodePayloadTooLarge, "canonicalizing submission payload: %v", err)
	}
	hash := model.HashDigest{Algorithm: digest.Algorithm, Value: digest.Value}

	seq := uint64(len(run.Submissions) + 1)
	run.Submissions = append(run.Submissions, model.Submission{Seq: seq, Hash: hash, Metadata: metadata})
	if err := e.Runs.Save(run); err != nil {
		return 0, model.HashDigest{}, model.NewErrorf(model.CodeRunStateCorrupt, "saving run after submission: %v", err)
	}
	return seq, hash, nil
}

// PrecheckResult mirrors StepResult's decision/trace shape for the
// stateless precheck path.
type PrecheckResult struct {
	Decision model.DecisionOutcome
	Trace    []model.GateEval
}

// Precheck evaluates a stage's gates against an asserted payload without
// mutating run state (§4.6 `precheck`).
func (e *Engine) Precheck(spec *model.ScenarioSpec, stageID string, dataShapeSchema map[string]any, payload any) (*PrecheckResult, error) {
	stage, ok := findStage(spec, stageID)
	if !ok {
		return nil, model.NewErrorf(model.CodeInvalidSpec, "stage %q not found in scenario %q", stageID, spec.ScenarioID)
	}
	conditionIDs := dedupedConditionIDs(stage)

	asserted, err := validate.PrecheckShape(payload, dataShapeSchema, conditionIDs)
	if err != nil {
		return nil, err
	}

	conditions := conditionsByID(spec)
	evalByID := make(map[string]model.ConditionEval, len(asserted))
	for _, id := range conditionIDs {
		condSpec, ok := conditions[id]
		if !ok {
			continue
		}
		result, ok := asserted[id]
		if !ok {
			result = &model.EvidenceResult{Lane: model.LaneAsserted}
		}
		_, ceval := e.Pipeline.ResolveAsserted(condSpec, result)
		evalByID[id] = ceval
	}

	outcomes := make(map[string]model.TriState, len(evalByID))
	for id, ev := range evalByID {
		outcomes[id] = ev.Outcome
	}

	gateOutcomes := make(map[string]model.TriState, len(stage.Gates))
	trace := make([]model.GateEval, 0, len(stage.Gates))
	for _, gate := range stage.Gates {
		outcome, gtrace := tristate.Evaluate(gate.Requirement, outcomes)
		gateOutcomes[gate.GateID] = outcome
		conds := make([]model.ConditionEval, 0, len(gtrace.Consulted))
		for _, c := range gtrace.Consulted {
			if ev, ok := evalByID[c.ConditionID]; ok {
				conds = append(conds, ev)
			}
		}
		trace = append(trace, model.GateEval{StageID: stage.StageID, GateID: gate.GateID, Outcome: outcome, Conditions: conds})
	}

	return &PrecheckResult{Decision: decideOutcome(spec, stage, gateOutcomes), Trace: trace}, nil
}
