package models

// Outcome is the result of one send attempt
type Outcome int

const (
	OutcomeSuccess Outcome = iota + 1
	OutcomeFailure
)

// OutcomeForStatus maps a reported terminal status to an outcome
func OutcomeForStatus(status DeliveryStatus) (Outcome, bool) {
	switch status {
	case DeliveryStatusSent:
		return OutcomeSuccess, true
	case DeliveryStatusFailed:
		return OutcomeFailure, true
	}
	return 0, false
}

// transitionTarget holds the next status depending on whether attempts remain
type transitionTarget struct {
	attemptsLeft DeliveryStatus
	exhausted    DeliveryStatus
}

// deliveryTransitions is the delivery state machine.
// Statuses missing from the table are terminal.
var deliveryTransitions = map[DeliveryStatus]map[Outcome]transitionTarget{
	DeliveryStatusPending: {
		OutcomeSuccess: {attemptsLeft: DeliveryStatusSent, exhausted: DeliveryStatusSent},
		OutcomeFailure: {attemptsLeft: DeliveryStatusRetrying, exhausted: DeliveryStatusFailed},
	},
	DeliveryStatusRetrying: {
		OutcomeSuccess: {attemptsLeft: DeliveryStatusSent, exhausted: DeliveryStatusSent},
		OutcomeFailure: {attemptsLeft: DeliveryStatusRetrying, exhausted: DeliveryStatusFailed},
	},
}

// Transition is the result of applying an outcome to a delivery row
type Transition struct {
	Status   DeliveryStatus
	Attempts int
	// Applied is false when the row was already terminal and nothing changed
	Applied bool
}

// NextDeliveryStatus applies an outcome to a row currently in status with the
// given attempt count. maxAttempts below 1 is treated as 1.
func NextDeliveryStatus(current DeliveryStatus, attempts int, outcome Outcome, maxAttempts int) Transition {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	targets, ok := deliveryTransitions[current]
	if !ok {
		return Transition{Status: current, Attempts: attempts}
	}
	target, ok := targets[outcome]
	if !ok {
		return Transition{Status: current, Attempts: attempts}
	}

	attempts++
	next := target.exhausted
	if attempts < maxAttempts {
		next = target.attemptsLeft
	}

	return Transition{Status: next, Attempts: attempts, Applied: true}
}
