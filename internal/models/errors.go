package models

import "errors"

// validationErrors lists the sentinels produced by field validation, as
// opposed to lifecycle conflicts signalled through ErrInvalidState.
var validationErrors = []error{
	ErrEmptyAppName,
	ErrAppNameTooLong,
	ErrInvalidSessionType,
	ErrInvalidDuration,
	ErrDurationTooLong,
	ErrZeroOccurredAt,
	ErrInvalidTriggerReason,
	ErrInvalidNudgeResponse,
	ErrInvalidPlannedMinutes,
	ErrPlannedTooLong,
	ErrInvalidCompleted,
	ErrInvalidGoalMinutes,
	ErrInvalidNudgeThreshold,
	ErrEmptyProfileName,
	ErrProfileNameTooLong,
	ErrGoalOutOfRange,
	ErrInvalidTimezone,
	ErrThresholdOutOfRange,
	ErrInvalidTheme,
	ErrInvalidPlan,
}

// IsValidationError reports whether err stems from rejecting malformed
// input. Callers use this to distinguish bad requests from state conflicts.
func IsValidationError(err error) bool {
	for _, sentinel := range validationErrors {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
