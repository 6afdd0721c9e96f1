// package formatter provides functions to export sync job reports to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/Fraol-12/encore/internal/models"
	"github.com/Fraol-12/encore/internal/shared"
)

// ReportToCSV converts a sync job to CSV format with one row per source entry,
// in snapshot order. Entries without a recorded result get the "pending" outcome.
func ReportToCSV(job *models.SyncJob) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"EntryID", "Title", "Channel", "Duration", "Outcome", "TrackID", "Composite", "Attempts", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, entry := range job.SourceEntries {
		record := []string{
			entry.ExternalID,
			entry.Title,
			entry.ChannelName,
			shared.FormatDuration(entry.DurationSeconds),
			"pending", "", "", "", "",
		}

		if res, ok := job.Results[entry.ExternalID]; ok {
			record[4] = string(res.Outcome)
			switch res.Outcome {
			case models.OutcomeMatched:
				record[5] = res.Candidate.ExternalID
				record[6] = formatComposite(res.Score)
			case models.OutcomeUnmatched:
				record[6] = formatComposite(res.BestScore)
			case models.OutcomeFailed:
				record[7] = strconv.Itoa(res.Attempts)
				record[8] = res.LastError
			}
		}

		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ReportToMarkdown converts a sync job to a Markdown report with matched,
// unmatched and failed sections.
func ReportToMarkdown(job *models.SyncJob) ([]byte, error) {
	var buf bytes.Buffer

	matched, unmatched, failed := job.Counts()

	buf.WriteString(fmt.Sprintf("# Sync %s\n\n", job.JobID))
	buf.WriteString(fmt.Sprintf("**Status**: %s\n", job.Status))
	buf.WriteString(fmt.Sprintf("**Source**: %s → %s\n", job.SourcePlaylistID, job.DestPlaylistName))
	buf.WriteString(fmt.Sprintf("**Entries**: %d (%d matched, %d unmatched, %d failed)\n", len(job.SourceEntries), matched, unmatched, failed))
	if job.JobError != "" {
		buf.WriteString(fmt.Sprintf("**Error**: %s\n", job.JobError))
	}
	buf.WriteString("\n")

	if matched > 0 {
		buf.WriteString("## Matched\n\n")
		i := 0
		for _, entry := range job.SourceEntries {
			res, ok := job.Results[entry.ExternalID]
			if !ok || res.Outcome != models.OutcomeMatched {
				continue
			}
			i++
			buf.WriteString(fmt.Sprintf("%d. %s → %s (%s) [%s]\n", i, entry.Title, res.Candidate.Title, res.Candidate.ExternalID, formatComposite(res.Score)))
		}
		buf.WriteString("\n")
	}

	if unmatched > 0 {
		buf.WriteString("## Unmatched\n\n")
		i := 0
		for _, entry := range job.SourceEntries {
			res, ok := job.Results[entry.ExternalID]
			if !ok || res.Outcome != models.OutcomeUnmatched {
				continue
			}
			i++
			best := "no candidates"
			if res.BestScore != nil {
				best = fmt.Sprintf("best %s", formatComposite(res.BestScore))
			}
			buf.WriteString(fmt.Sprintf("%d. %s - %s (%s)\n", i, entry.ChannelName, entry.Title, best))
		}
		buf.WriteString("\n")
	}

	if failed > 0 {
		buf.WriteString("## Failed\n\n")
		i := 0
		for _, entry := range job.SourceEntries {
			res, ok := job.Results[entry.ExternalID]
			if !ok || res.Outcome != models.OutcomeFailed {
				continue
			}
			i++
			buf.WriteString(fmt.Sprintf("%d. %s: %s after %d attempts: %s\n", i, entry.Title, res.ErrorKind, res.Attempts, res.LastError))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ReportToText converts a sync job to a plain text summary.
func ReportToText(job *models.SyncJob) ([]byte, error) {
	var buf bytes.Buffer

	matched, unmatched, failed := job.Counts()

	buf.WriteString(fmt.Sprintf("Job: %s\n", job.JobID))
	buf.WriteString(fmt.Sprintf("Status: %s\n", job.Status))
	buf.WriteString(fmt.Sprintf("Source: %s\n", job.SourcePlaylistID))
	buf.WriteString(fmt.Sprintf("Destination: %s\n", job.DestPlaylistName))
	buf.WriteString(fmt.Sprintf("Entries: %d\n", len(job.SourceEntries)))
	buf.WriteString(fmt.Sprintf("Matched: %d, Unmatched: %d, Failed: %d\n", matched, unmatched, failed))
	if job.JobError != "" {
		buf.WriteString(fmt.Sprintf("Error: %s\n", job.JobError))
	}

	if seed := job.RetrySeed(); len(seed) > 0 {
		buf.WriteString("\nNeeds attention:\n")
		for i, entry := range seed {
			buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, entry.ChannelName, entry.Title))
		}
	}

	return buf.Bytes(), nil
}

// ToJobJSON generates a pretty-printed JSON representation of the full job.
func ToJobJSON(job *models.SyncJob) ([]byte, error) {
	return shared.MarshalJSON(job, true)
}

// CSVReportResult contains the paths of files created by WriteCSVReport
type CSVReportResult struct {
	ResultsFile string
	JobFile     string
}

// WriteCSVReport exports a sync job to CSV with an accompanying job JSON file.
//
// Defaults to the job ID as the base filename & creates {base}_results.csv and
// {base}_job.json
func WriteCSVReport(job *models.SyncJob, baseFilepath string) (*CSVReportResult, error) {
	if baseFilepath == "" {
		baseFilepath = job.JobID
	}

	csvData, err := ReportToCSV(job)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	resultsFile := baseFilepath + "_results.csv"
	if err := os.WriteFile(resultsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	jobJSON, err := ToJobJSON(job)
	if err != nil {
		return nil, fmt.Errorf("failed to generate job JSON: %w", err)
	}

	jobFile := baseFilepath + "_job.json"
	if err := os.WriteFile(jobFile, jobJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write job file: %w", err)
	}

	return &CSVReportResult{
		ResultsFile: resultsFile,
		JobFile:     jobFile,
	}, nil
}

// WriteMarkdownReport exports a sync job report as Markdown.
//
// Defaults to {job.JobID}_report.md as the filename.
func WriteMarkdownReport(job *models.SyncJob, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s_report.md", job.JobID)
	}

	mdData, err := ReportToMarkdown(job)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	if err := os.WriteFile(filepath, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return filepath, nil
}

// WriteTextReport exports a sync job summary as plain text.
//
// Defaults to {job.JobID}_summary.txt as the filename.
func WriteTextReport(job *models.SyncJob, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s_summary.txt", job.JobID)
	}

	textData, err := ReportToText(job)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(filepath, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return filepath, nil
}

func formatComposite(score *models.MatchScore) string {
	if score == nil {
		return ""
	}
	return strconv.FormatFloat(score.Composite, 'f', 2, 64)
}
