package instrumentation

// Cardinality management helpers for metrics.
// Action names arrive from MCP clients, so they are bounded before becoming labels.

// maxActionLabelLen caps the length of an action label.
const maxActionLabelLen = 48

// ActionOther replaces action values that are not safe to use as a label.
const ActionOther = "other"

// BoundedAction returns action if it looks like a dispatch table key
// (lowercase letters, digits and underscores, at most 48 characters),
// and ActionOther otherwise.
//
// Example:
//
//	BoundedAction("list_events")       // "list_events"
//	BoundedAction("DROP TABLE users")  // "other"
func BoundedAction(action string) string {
	if action == "" || len(action) > maxActionLabelLen {
		return ActionOther
	}
	for _, r := range action {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
		default:
			return ActionOther
		}
	}
	return action
}

// Common operation types for provider API metrics.
// Status and service constants are defined in config.go.
const (
	OperationList   = "list"
	OperationGet    = "get"
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
	OperationSend   = "send"
	OperationSearch = "search"
)
