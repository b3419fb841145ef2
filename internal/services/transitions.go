package services

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/models"
)

var (
	contributionStatuses = []models.CaseStatus{
		models.StatusPending,
		models.StatusInReview,
		models.StatusNeedsChanges,
		models.StatusApproved,
		models.StatusRejected,
	}
	reportStatuses = []models.CaseStatus{
		models.StatusPending,
		models.StatusInReview,
		models.StatusResolved,
		models.StatusDismissed,
	}
)

// Accepted spellings that map onto the canonical vocabulary of a kind.
var (
	sharedAliases = map[string]models.CaseStatus{
		"reviewing": models.StatusInReview,
	}
	contributionAliases = map[string]models.CaseStatus{
		"dismissed": models.StatusRejected,
	}
	reportAliases = map[string]models.CaseStatus{
		"rejected": models.StatusDismissed,
	}
)

// AllowedStatuses returns the vocabulary of a case kind.
func AllowedStatuses(kind models.CaseKind) []models.CaseStatus {
	if kind == models.KindContribution {
		return contributionStatuses
	}
	return reportStatuses
}

// NormalizeStatus maps s onto the canonical status of kind.
func NormalizeStatus(kind models.CaseKind, s string) (models.CaseStatus, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if alias, ok := sharedAliases[s]; ok {
		return alias, true
	}
	aliases := reportAliases
	if kind == models.KindContribution {
		aliases = contributionAliases
	}
	if alias, ok := aliases[s]; ok {
		return alias, true
	}
	for _, st := range AllowedStatuses(kind) {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Report resolution actions.
const (
	ActionNone          = "none"
	ActionDeleteComment = "delete_comment"
	ActionDeleteReview  = "delete_review"
)

var reportActions = map[models.CaseKind][]string{
	models.KindContentReport: {ActionNone},
	models.KindCommentReport: {ActionNone, ActionDeleteComment},
	models.KindReviewReport:  {ActionNone, ActionDeleteReview},
	models.KindUserReport:    {ActionNone},
}

// normalizeAction validates an optional action for a transition to target.
func normalizeAction(kind models.CaseKind, target models.CaseStatus, action string) (string, error) {
	action = strings.ToLower(strings.TrimSpace(action))
	if action == "" || action == ActionNone {
		return ActionNone, nil
	}
	allowed := false
	for _, a := range reportActions[kind] {
		if a == action {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", transitionErrorf("action %q is not available for %s", action, kind)
	}
	if target != models.StatusResolved {
		return "", transitionErrorf("action %q requires status %s", action, models.StatusResolved)
	}
	return action, nil
}

func terminalStatuses() []string {
	out := make([]string, len(models.TerminalStatuses))
	for i, st := range models.TerminalStatuses {
		out[i] = string(st)
	}
	return out
}
