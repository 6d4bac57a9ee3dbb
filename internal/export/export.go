// Package export writes scoring results to spreadsheet and JSON files for
// handoff to content planners.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/loclift/growth-cli/internal/model"
	"github.com/loclift/growth-cli/internal/opportunity"
)

var opportunityHeader = []string{
	"Service", "Geo", "Score", "Tier", "Confidence",
	"Competitor Mentions", "Duplicate", "Season", "Season Match",
	"Monthly Searches", "Expected Leads", "Expected Revenue", "Why",
}

// WriteWorkbook writes a scoring result as an XLSX workbook with a surfaced
// opportunities sheet and a full candidates sheet.
func WriteWorkbook(path string, result *opportunity.Result) error {
	if result == nil {
		return eris.New("export: nil result")
	}

	f := xlsx.NewFile()

	surfaced, err := f.AddSheet("Opportunities")
	if err != nil {
		return eris.Wrap(err, "export: add opportunities sheet")
	}
	writeCandidateSheet(surfaced, result.Surfaced)

	all, err := f.AddSheet("All Candidates")
	if err != nil {
		return eris.Wrap(err, "export: add candidates sheet")
	}
	writeCandidateSheet(all, result.Candidates)

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

// WriteJSON writes the full scoring result as indented JSON.
func WriteJSON(path string, result *opportunity.Result) error {
	if result == nil {
		return eris.New("export: nil result")
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return eris.Wrap(err, "export: marshal result")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}

func writeCandidateSheet(sheet *xlsx.Sheet, candidates []model.OpportunityCandidate) {
	header := sheet.AddRow()
	for _, h := range opportunityHeader {
		header.AddCell().SetString(h)
	}

	for _, c := range candidates {
		row := sheet.AddRow()
		row.AddCell().SetString(c.Service)
		row.AddCell().SetString(c.Geo)
		row.AddCell().SetInt(c.Score)
		row.AddCell().SetString(string(c.Tier))
		row.AddCell().SetFloat(c.ConfidenceScore)
		row.AddCell().SetInt(c.CompetitorMentions)
		row.AddCell().SetBool(c.Duplicate)
		row.AddCell().SetString(c.Seasonality.CurrentSeason)
		row.AddCell().SetBool(c.Seasonality.Match)
		if c.ROI != nil {
			row.AddCell().SetInt(c.ROI.MonthlySearches)
			row.AddCell().SetInt(c.ROI.EstimatedLeads["expected"])
			row.AddCell().SetString(fmt.Sprintf("$%d", c.ROI.EstimatedRevenue["expected"]))
		} else {
			row.AddCell().SetString("")
			row.AddCell().SetString("")
			row.AddCell().SetString("")
		}
		row.AddCell().SetString(flattenWhy(c.WhyRecommended))
	}
}

// flattenWhy renders the why map as "key: reason" lines in stable key order.
func flattenWhy(why map[string]string) string {
	if len(why) == 0 {
		return ""
	}
	keys := make([]string, 0, len(why))
	for k := range why {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+": "+why[k])
	}
	return strings.Join(lines, "\n")
}
