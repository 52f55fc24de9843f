package cli

import (
	"fmt"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/matcher"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const dateLayout = "2006-01-02"

var candidateHeaders = []string{"Bank", "Ledger", "Bank date", "Ledger date", "Bank amount", "Ledger amount", "Confidence", "Band", "Status", "Notes"}

// BandStyle returns the style for a confidence band.
func BandStyle(band model.ConfidenceBand) lipgloss.Style {
	switch band {
	case model.BandHigh:
		return SuccessStyle
	case model.BandMedium:
		return WarningStyle
	default:
		return ErrorStyle
	}
}

// RenderCandidates renders candidates as a table, one row per pair.
func RenderCandidates(candidates []model.MatchCandidate) string {
	if len(candidates) == 0 {
		return SubtleStyle.Render("No matches found.")
	}

	rows := make([][]string, len(candidates))
	for i, c := range candidates {
		rows[i] = []string{
			c.Bank.ID,
			c.Ledger.ID,
			c.Bank.Date.Format(dateLayout),
			c.Ledger.Date.Format(dateLayout),
			c.Bank.Amount.StringFixed(2),
			c.Ledger.Amount.StringFixed(2),
			fmt.Sprintf("%.3f", c.ConfidenceScore),
			string(c.Band),
			string(c.Status),
			strings.Join(c.Notes, "; "),
		}
	}

	bandColumn := 7
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(SubtleStyle).
		Headers(candidateHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			if col == bandColumn && row >= 0 && row < len(candidates) {
				return BandStyle(candidates[row].Band).Padding(0, 1)
			}
			return TableCellStyle
		})
	return t.String()
}

// RenderSummary renders run statistics in a box.
func RenderSummary(run model.MatchRun, s matcher.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run:        %s\n", run.ID)
	fmt.Fprintf(&b, "Scored by:  %s\n", run.ScoredBy)
	fmt.Fprintf(&b, "Bank:       %d (%d unmatched)\n", s.BankCount, s.UnmatchedBank)
	fmt.Fprintf(&b, "Ledger:     %d (%d unmatched)\n", s.LedgerCount, s.UnmatchedLedger)
	fmt.Fprintf(&b, "Matched:    %d (%.1f%%)\n", s.Matched, s.MatchRate*100)
	fmt.Fprintf(&b, "Confidence: %s  %s  %s",
		SuccessStyle.Render(fmt.Sprintf("%d high", s.High)),
		WarningStyle.Render(fmt.Sprintf("%d medium", s.Medium)),
		ErrorStyle.Render(fmt.Sprintf("%d low", s.Low)))
	if len(s.ConflictedLedgerIDs) > 0 {
		fmt.Fprintf(&b, "\n%s", FormatWarning("Ledger entries matched more than once: "+strings.Join(s.ConflictedLedgerIDs, ", ")))
	}
	return RenderBox(ChartIcon+" Reconciliation summary", b.String())
}

// ModelStatus is what RenderModel shows about the classifier.
type ModelStatus struct {
	Training *model.TrainingRun // latest recorded training, if any
	State    string
	Key      string
	Schema   []string
	Samples  int
	Pending  int // feedback recorded since the latest training
}

// RenderModel renders the classifier state.
func RenderModel(m ModelStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "State:    %s\n", m.State)
	fmt.Fprintf(&b, "Key:      %s\n", m.Key)
	fmt.Fprintf(&b, "Features: %s\n", strings.Join(m.Schema, ", "))
	fmt.Fprintf(&b, "Pending:  %d feedback records", m.Pending)
	if m.Training != nil {
		fmt.Fprintf(&b, "\nTrained:  %s on %d samples (%d matched, %d rejected)",
			m.Training.TrainedAt.Local().Format("2006-01-02 15:04"),
			m.Training.Samples, m.Training.Positives, m.Training.Negatives)
		fmt.Fprintf(&b, "\nTraining accuracy: %.1f%%", m.Training.TrainingAccuracy*100)
	}
	return RenderBox(RobotIcon+" Match classifier", b.String())
}
