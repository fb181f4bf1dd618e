package conversation

import "net/http"

type OutcomeKind string

const (
	OutcomeMissingPhone          OutcomeKind = "MISSING_PHONE"
	OutcomeLoopPrevented         OutcomeKind = "LOOP_PREVENTED"
	OutcomeAppended              OutcomeKind = "APPENDED"
	OutcomeCreated               OutcomeKind = "CREATED"
	OutcomeCreationSkipped       OutcomeKind = "CREATION_SKIPPED"
	OutcomeCreationFailed        OutcomeKind = "CREATION_FAILED"
	OutcomeDeliveryFailed        OutcomeKind = "DELIVERY_FAILED"
	OutcomeVisitorCreationFailed OutcomeKind = "VISITOR_CREATION_FAILED"
	OutcomeProfileUpdated        OutcomeKind = "PROFILE_UPDATED"
)

// TagResult reports the non-essential tag step; it never changes the outcome.
type TagResult struct {
	Name      string `json:"name"`
	ID        string `json:"id,omitempty"`
	Status    string `json:"status,omitempty"`
	Associate any    `json:"associate_result,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ResolutionOutcome is the normalized result of one inbound message.
type ResolutionOutcome struct {
	Kind           OutcomeKind    `json:"outcome"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Conversation   map[string]any `json:"conversation,omitempty"`
	VisitorID      string         `json:"visitor_id,omitempty"`
	Visitor        map[string]any `json:"visitor_resp,omitempty"`
	VisitorStatus  int            `json:"visitor_status_code,omitempty"`
	Tag            *TagResult     `json:"tag_result,omitempty"`
	Message        string         `json:"formatted_message,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// HTTPStatus maps the outcome onto the status returned to the gateway.
// Only a missing visitor identity is escalated to a server error.
func (o ResolutionOutcome) HTTPStatus() int {
	switch o.Kind {
	case OutcomeMissingPhone:
		return http.StatusBadRequest
	case OutcomeVisitorCreationFailed:
		return http.StatusInternalServerError
	case OutcomeCreated:
		return http.StatusCreated
	default:
		return http.StatusOK
	}
}

func (o ResolutionOutcome) Describe() string {
	switch o.Kind {
	case OutcomeMissingPhone:
		return "missing user_id"
	case OutcomeLoopPrevented:
		return "message already carries a bridge marker, ignored"
	case OutcomeAppended:
		return "message appended to open conversation"
	case OutcomeCreated:
		return "conversation created"
	case OutcomeCreationSkipped:
		return "visitor registered, conversation creation not configured"
	case OutcomeCreationFailed:
		return "visitor registered, conversation creation failed"
	case OutcomeDeliveryFailed:
		return "message could not be appended to open conversation"
	case OutcomeVisitorCreationFailed:
		return "visitor could not be registered"
	case OutcomeProfileUpdated:
		return "visitor profile updated"
	default:
		return string(o.Kind)
	}
}
