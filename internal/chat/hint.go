package chat

import (
	"fmt"
	"strings"

	"github.com/genfinafrica/genfin-chat/internal/api"
)

// stageFileHints maps a stage number to the document the farmer is expected
// to submit when that stage unlocks.
var stageFileHints = map[int]string{
	1: "Soil test (CSV)",
	2: "Input supplier invoice (PDF / JPG)",
	3: "Insurance: premium receipt (PDF / JPG)",
	4: "Weeding photo (JPG / PNG)",
	5: "Pest photo (JPG)",
	6: "Packaging photo (JPG / PNG)",
	7: "Transport/Delivery note (PDF / JPG)",
}

// NextHint derives the next-action hint from a snapshot. Pure function:
// season complete → renewal hint; otherwise the first non-completed stage
// decides between upload, approval-wait, and disbursement-wait hints.
func NextHint(snap *api.StatusSnapshot) string {
	if snap.SeasonComplete() {
		return fmt.Sprintf("Season %d complete! Type **RENEW** to start the next loan cycle.", snap.SeasonNumber)
	}
	for _, s := range snap.Stages {
		if s.Status == api.StageCompleted {
			continue
		}
		switch s.Status {
		case api.StageUnlocked:
			hint := stageFileHints[s.StageNumber]
			if hint == "" {
				hint = "the required file"
			}
			return fmt.Sprintf("Type **UPLOAD** to submit %s.", hint)
		case api.StagePending:
			return fmt.Sprintf("Stage %d is PENDING approval.", s.StageNumber)
		case api.StageApproved:
			return fmt.Sprintf("Stage %d approved - awaiting disbursement.", s.StageNumber)
		}
		break
	}
	return "Type **STATUS** to refresh."
}

// Summarize renders a snapshot as a single outgoing status message:
// header, disbursement and insurance lines, one line per stage, and the
// next-action hint.
func Summarize(snap *api.StatusSnapshot, farmerID int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Status for %s (ID: %d) - Season %d**\n\n", snap.Name, farmerID, snap.SeasonNumber)
	fmt.Fprintf(&sb, "**Total Disbursed (This Season):** $%.2f\n", snap.CurrentStatus.TotalDisbursed)

	if snap.HasInsurance {
		claim := snap.InsuranceClaimStatus
		if claim == "" {
			claim = "UNKNOWN"
		}
		fmt.Fprintf(&sb, "**Insurance Policy:** Active | Claim status: %s\n\n", claim)
	} else {
		sb.WriteString("**Insurance Policy:** Not yet activated.\n\n")
	}

	sb.WriteString("Stages:\n")
	for _, s := range snap.Stages {
		fmt.Fprintf(&sb, "%s - %s\n", s.StageName, s.Status)
	}

	fmt.Fprintf(&sb, "\n%s\n\nType **UPLOAD**, **IOT** or **HELP**.", NextHint(snap))
	return sb.String()
}
