package domain

import "strings"

// gatewayStatuses maps vendor status vocabulary to the internal status set.
// Anything missing from the table is treated as pending, never approved.
var gatewayStatuses = map[string]string{
	"paid":       StatusApproved,
	"approved":   StatusApproved,
	"completed":  StatusApproved,
	"complete":   StatusApproved,
	"concluida":  StatusApproved,
	"succeeded":  StatusApproved,
	"confirmed":  StatusApproved,
	"settled":    StatusApproved,
	"refused":    StatusFailed,
	"failed":     StatusFailed,
	"error":      StatusFailed,
	"rejected":   StatusFailed,
	"denied":     StatusFailed,
	"cancelled":  StatusFailed,
	"canceled":   StatusFailed,
	"expired":    StatusFailed,
	"pending":    StatusPending,
	"created":    StatusPending,
	"waiting":    StatusPending,
	"processing": StatusPending,
	"ativa":      StatusPending,
}

// NormalizeGatewayStatus converts a raw gateway status into one of the
// internal statuses. Unknown values fall back to StatusPending.
func NormalizeGatewayStatus(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if s, ok := gatewayStatuses[key]; ok {
		return s
	}
	return StatusPending
}

// IsTerminal reports whether no further gateway update can change the status.
func IsTerminal(status string) bool {
	return status == StatusApproved
}

// CanTransition reports whether a stored status may move to next.
// approved is final; failed and cancelled may only be overridden by a late
// approval; pending may move anywhere.
func CanTransition(from, next string) bool {
	if from == next {
		return false
	}
	switch from {
	case StatusApproved:
		return false
	case StatusFailed, StatusCancelled:
		return next == StatusApproved
	case StatusPending, "":
		return next == StatusApproved || next == StatusFailed || next == StatusCancelled
	}
	return false
}
