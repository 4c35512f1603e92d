// Package router holds the turn state machine as a pure function so it can
// be tested without any model calls.
package router

import "github.com/Chative-core-poc-v1/supportbot/internal/agent/model"

// HighFrustration is the counter value at which frustration handling
// preempts every other route.
const HighFrustration = 2

// Decision is the step chosen after classification.
type Decision struct {
	Next            model.Step
	MildFrustration bool
}

// Route picks the next step for a classified turn. Rules are evaluated in
// order and the first match wins.
func Route(intent model.Intent, frustrationCount int) Decision {
	switch {
	case frustrationCount >= HighFrustration:
		return Decision{Next: model.StepFrustration}
	case intent == model.IntentManagerApproval:
		return Decision{Next: model.StepManagerApproval}
	case intent.RequiresEntity():
		return Decision{Next: model.StepEntityExtraction}
	case intent == model.IntentKnowledgeBaseQuery:
		return Decision{Next: model.StepAction}
	case intent == model.IntentGreeting:
		if frustrationCount > 0 {
			return Decision{Next: model.StepFrustration}
		}
		return Decision{Next: model.StepResponseSynthesis}
	default:
		return Decision{Next: model.StepAction, MildFrustration: frustrationCount == 1}
	}
}

// After returns the fixed successor of a non-branching step.
func After(step model.Step) model.Step {
	switch step {
	case model.StepEntityExtraction:
		return model.StepAction
	case model.StepAction, model.StepFrustration, model.StepManagerApproval:
		return model.StepResponseSynthesis
	}
	return ""
}
