package procurement

// Action is an event that moves a purchase order between statuses.
type Action string

const (
	ActionSubmit         Action = "submit"
	ActionApprove        Action = "approve"
	ActionSend           Action = "send"
	ActionSupplierAccept Action = "supplier_accept"
	ActionSupplierReject Action = "supplier_reject"
	ActionShip           Action = "ship"
	ActionReceive        Action = "receive"
	ActionQCPass         Action = "qc_pass"
	ActionQCFail         Action = "qc_fail"
	ActionComplete       Action = "complete"
	ActionCancel         Action = "cancel"
)

// transitions is the complete (status, action) -> status table. Pairs that
// are absent are illegal.
var transitions = map[POStatus]map[Action]POStatus{
	StatusDraft: {
		ActionSubmit:  StatusPendingApproval,
		ActionApprove: StatusApproved,
		ActionCancel:  StatusCancelled,
	},
	StatusPendingApproval: {
		ActionApprove: StatusApproved,
		ActionCancel:  StatusCancelled,
	},
	StatusApproved: {
		ActionSend:   StatusSent,
		ActionCancel: StatusCancelled,
	},
	StatusSent: {
		ActionSupplierAccept: StatusSupplierApproved,
		ActionSupplierReject: StatusSupplierRejected,
	},
	StatusSupplierApproved: {
		ActionShip:    StatusInTransit,
		ActionReceive: StatusReceived,
	},
	StatusInTransit: {
		ActionReceive: StatusReceived,
	},
	StatusReceived: {
		ActionQCPass: StatusQCPassed,
		ActionQCFail: StatusQCFailed,
	},
	StatusQCPassed: {
		ActionComplete: StatusCompleted,
	},
}

var progress = map[POStatus]int{
	StatusDraft:            10,
	StatusPendingApproval:  20,
	StatusApproved:         30,
	StatusSent:             40,
	StatusSupplierApproved: 50,
	StatusInTransit:        60,
	StatusReceived:         70,
	StatusQCPassed:         80,
	StatusCompleted:        100,
}

var labels = map[POStatus]string{
	StatusDraft:            "Draft",
	StatusPendingApproval:  "Waiting for approval",
	StatusApproved:         "Approved",
	StatusSent:             "Sent to supplier",
	StatusSupplierApproved: "Accepted by supplier",
	StatusSupplierRejected: "Rejected by supplier",
	StatusInTransit:        "In transit",
	StatusReceived:         "Goods received",
	StatusQCPassed:         "QC passed",
	StatusQCFailed:         "QC failed",
	StatusCompleted:        "Completed",
	StatusCancelled:        "Cancelled",
}

// Next returns the status reached by applying action to from.
func Next(from POStatus, action Action) (POStatus, bool) {
	to, ok := transitions[from][action]
	return to, ok
}

// ActionTo returns the action leading from one status to another.
func ActionTo(from, to POStatus) (Action, bool) {
	for action, target := range transitions[from] {
		if target == to {
			return action, true
		}
	}
	return "", false
}

// Terminal reports whether no action leaves status.
func Terminal(status POStatus) bool {
	return len(transitions[status]) == 0
}

// Valid reports whether s is a known status.
func (s POStatus) Valid() bool {
	_, ok := labels[s]
	return ok
}

// Label is the human readable step label for a status.
func Label(status POStatus) string {
	return labels[status]
}

// Progress returns the workflow percentage for status. Failure statuses keep
// the progress the PO had before entering them.
func Progress(status POStatus, previous int) int {
	if p, ok := progress[status]; ok {
		return p
	}
	return previous
}

type stepChange struct {
	stage  Stage
	status StepStatus
	note   string
}

// stepEffects describes how each action moves the workflow steps. An empty
// note records the caller's note instead.
func stepEffects(action Action) []stepChange {
	switch action {
	case ActionSubmit:
		return []stepChange{{stage: StageApproval, status: StepInProgress}}
	case ActionApprove:
		return []stepChange{
			{stage: StageApproval, status: StepCompleted},
			{stage: StageSentToSupplier, status: StepInProgress},
		}
	case ActionSend:
		return []stepChange{
			{stage: StageSentToSupplier, status: StepCompleted},
			{stage: StageSupplierAccept, status: StepInProgress},
		}
	case ActionSupplierAccept:
		return []stepChange{
			{stage: StageSupplierAccept, status: StepCompleted},
			{stage: StageProformaInvoice, status: StepCompleted},
			{stage: StageShipment, status: StepInProgress},
		}
	case ActionSupplierReject:
		return []stepChange{{stage: StageSupplierAccept, status: StepFailed}}
	case ActionShip:
		return []stepChange{{stage: StageShipment, status: StepInProgress, note: "in transit"}}
	case ActionReceive:
		return []stepChange{
			{stage: StageShipment, status: StepCompleted},
			{stage: StageReceiving, status: StepCompleted},
			{stage: StageQC, status: StepInProgress},
		}
	case ActionQCPass:
		return []stepChange{
			{stage: StageQC, status: StepCompleted},
			{stage: StageFinalInvoice, status: StepInProgress},
		}
	case ActionQCFail:
		return []stepChange{{stage: StageQC, status: StepFailed}}
	case ActionComplete:
		return []stepChange{{stage: StagePayment, status: StepCompleted}}
	}
	return nil
}
