package app

import (
	"fmt"

	"ipormac/internal/domain"
)

// BuildFeedback renders the message shown after an answer to q.
func BuildFeedback(correct bool, q domain.GeneratedAddress) domain.Feedback {
	modelled := "address"
	if q.InvalidType != "" {
		modelled = string(q.InvalidType)
	}

	if correct {
		if q.Type == domain.None {
			fb := domain.Feedback{Message: "Correct! This is an invalid address. 🎉"}
			if q.InvalidReason != "" {
				fb.Explanation = fmt.Sprintf("This %s %s.", modelled, q.InvalidReason)
			} else {
				fb.Explanation = fmt.Sprintf("This is an invalid %s.", modelled)
			}
			return fb
		}
		return domain.Feedback{
			Message:     fmt.Sprintf("Correct! This is %s %s address. 🎉", q.Type.Article(), q.Type),
			Explanation: fmt.Sprintf("Great job identifying the %s format!", q.Type),
		}
	}

	fb := domain.Feedback{Message: "Incorrect. Try again! ❌"}
	switch {
	case q.Type != domain.None:
		fb.Explanation = fmt.Sprintf("This is actually %s %s address.", q.Type.Article(), q.Type)
	case q.InvalidReason != "":
		fb.Explanation = fmt.Sprintf("This is actually an invalid %s. It %s.", modelled, q.InvalidReason)
	default:
		fb.Explanation = fmt.Sprintf("This is actually an invalid %s.", modelled)
	}
	return fb
}
