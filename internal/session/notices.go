package session

import (
	"ledgerview/internal/log"
	"ledgerview/internal/notify"
)

// Notice codes attached to session notices.
const (
	CodeDegradedMode     = "degraded_mode"
	CodeValidation       = "validation_failed"
	CodeSubmissionFailed = "submission_failed"
	CodeReloadPending    = "reload_pending"
)

// DegradedModeNotice is the informational notice emitted when a load falls
// back to the sample collection. It is not a failure.
func DegradedModeNotice(message string) notify.Notice {
	n := notify.New(notify.KindInfo, log.OpLoad, message)
	n.Code = CodeDegradedMode
	return n
}

func successNotice(op, message string) notify.Notice {
	return notify.New(notify.KindSuccess, op, message)
}

func infoNotice(op, message string) notify.Notice {
	return notify.New(notify.KindInfo, op, message)
}

func errorNotice(op, code, message string) notify.Notice {
	n := notify.New(notify.KindError, op, message)
	n.Code = code
	return n
}
