package conversation

import (
	"context"
	"regexp"

	"github.com/voicedesk/support-voice-agent/internal/dialog"
	"github.com/voicedesk/support-voice-agent/internal/validate"
)

// Affirmative confirmation patterns accepted in CONFIRMING_DETAILS.
var confirmationRE = regexp.MustCompile(`(?i)\b(?:yes|yeah|yep|correct|confirm|confirmed|that's right|thats right)\b`)

// collectFromUtterance runs the deterministic extract-validate-advance step
// before the model sees the utterance. On validation failure the state is
// left unchanged and the retry counter bumps; the model re-prompts.
func (s *Service) collectFromUtterance(ctx context.Context, m *dialog.Manager, utterance string) {
	switch m.State() {
	case dialog.StateGreeting:
		// The greeting turn often already carries the name ("Hi, I'm John
		// Doe"). A plain "hello" must not be mistaken for one, so only a
		// spoken lead-in counts here.
		m.AdvanceToNextState()
		if name := validate.ExtractName(utterance); name != "" {
			s.applyValidated(m, dialog.FieldName, validate.Name(name))
		}

	case dialog.StateCollectingName:
		s.collectName(m, utterance)

	case dialog.StateCollectingEmail:
		candidate := validate.ExtractEmail(utterance)
		if candidate == "" {
			candidate = utterance
		}
		s.applyValidated(m, dialog.FieldEmail, validate.Email(candidate))

	case dialog.StateCollectingPhone:
		candidate := validate.ExtractPhone(utterance)
		if candidate == "" {
			candidate = utterance
		}
		s.applyValidated(m, dialog.FieldPhone, validate.Phone(candidate))

	case dialog.StateCollectingAddress:
		s.applyValidated(m, dialog.FieldAddress, validate.Address(utterance))

	case dialog.StateCollectingIssue:
		s.collectIssue(ctx, m, utterance)

	case dialog.StateConfirmingDetails:
		// Advance only on an explicit confirmation; anything else is treated
		// as a correction request for the model to sort out.
		if confirmationRE.MatchString(utterance) && m.IsComplete() {
			m.AdvanceToNextState()
			m.ResetRetry()
		}

	case dialog.StateErrorRecovery:
		s.resumeFromRecovery(ctx, m, utterance)
	}
}

func (s *Service) collectName(m *dialog.Manager, utterance string) {
	candidate := validate.ExtractName(utterance)
	if candidate == "" {
		candidate = utterance
	}
	s.applyValidated(m, dialog.FieldName, validate.Name(candidate))
}

func (s *Service) applyValidated(m *dialog.Manager, field dialog.Field, res validate.Result) {
	if !res.IsValid {
		m.IncrementRetry()
		return
	}
	m.UpdateField(field, res.Sanitized)
	m.ResetRetry()
	m.AdvanceToNextState()
}

// collectIssue validates the description, then classifies it. The state only
// advances when classification is confident; ambiguity stays put and the
// model reads out the clarification options.
func (s *Service) collectIssue(ctx context.Context, m *dialog.Manager, utterance string) {
	res := validate.Issue(utterance)
	if !res.IsValid {
		m.IncrementRetry()
		return
	}

	classified, err := s.classifier.Classify(ctx, res.Sanitized)
	if err != nil {
		s.logger.Warn("issue classification failed", "error", err)
		m.IncrementRetry()
		return
	}

	if !classified.Classified() {
		// The reply may itself be an answer to a prior clarification prompt
		// ("option 2", "the printer one").
		entry, err := s.classifier.ExtractDirectSelection(ctx, res.Sanitized)
		if err != nil || entry == nil {
			m.IncrementRetry()
			return
		}
		m.UpdateFields(map[dialog.Field]string{
			dialog.FieldIssue:     res.Sanitized,
			dialog.FieldIssueType: entry.IssueType,
		})
		m.SetPrice(entry.Price)
		m.ResetRetry()
		m.AdvanceToNextState()
		return
	}

	m.UpdateFields(map[dialog.Field]string{
		dialog.FieldIssue:     res.Sanitized,
		dialog.FieldIssueType: classified.IssueType,
	})
	m.SetPrice(classified.Price)
	m.ResetRetry()
	m.AdvanceToNextState()
}

// resumeFromRecovery returns to the first state with work left, then
// reprocesses the utterance there.
func (s *Service) resumeFromRecovery(ctx context.Context, m *dialog.Manager, utterance string) {
	target := resumeState(m)
	if err := m.TransitionTo(target); err != nil {
		s.logger.Warn("recovery resume failed", "target", string(target), "error", err)
		return
	}
	s.collectFromUtterance(ctx, m, utterance)
}

func resumeState(m *dialog.Manager) dialog.State {
	snap := m.Snapshot()
	switch {
	case snap.Name == "":
		return dialog.StateCollectingName
	case snap.Email == "":
		return dialog.StateCollectingEmail
	case snap.Phone == "":
		return dialog.StateCollectingPhone
	case snap.Address == "":
		return dialog.StateCollectingAddress
	case snap.Issue == "" || snap.IssueType == "" || snap.Price == nil:
		return dialog.StateCollectingIssue
	case snap.TicketID == "":
		return dialog.StateConfirmingDetails
	default:
		return dialog.StateConfirmation
	}
}
