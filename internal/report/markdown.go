package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gzhole/dataclassify/internal/classify"
)

// Levels in report order, most sensitive first.
var levels = []classify.Classification{
	classify.TopSecret,
	classify.Restricted,
	classify.Confidential,
	classify.Internal,
	classify.Public,
}

// GenerateMarkdown renders the compliance summary and the inventory as a
// markdown document. Output is stable for a given input.
func GenerateMarkdown(summary classify.ComplianceSummary, items []classify.InventoryItem, generated time.Time) string {
	var sb strings.Builder

	sb.WriteString("# Data Classification Report\n\n")
	sb.WriteString(fmt.Sprintf("> Generated %s. %d item(s) classified.\n\n",
		generated.UTC().Format(time.RFC3339), summary.TotalItems))

	sb.WriteString("## Classification\n\n")
	sb.WriteString("| Level | Items |\n|---|---|\n")
	for _, c := range levels {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", c, summary.ByClassification[c]))
	}
	sb.WriteString("\n")

	sb.WriteString("## Compliance Frameworks\n\n")
	writeCounts(&sb, summary.ByFramework, "_No compliance frameworks flagged._")

	dataTypes := make(map[string]int, len(summary.ByDataType))
	for t, n := range summary.ByDataType {
		dataTypes[string(t)] = n
	}
	sb.WriteString("## Data Types\n\n")
	writeCounts(&sb, dataTypes, "_No sensitive data types detected._")

	sb.WriteString("## Inventory\n\n")
	if len(items) == 0 {
		sb.WriteString("_Inventory is empty._\n")
		return sb.String()
	}

	byLevel := make(map[classify.Classification][]classify.InventoryItem)
	for _, item := range items {
		byLevel[item.Classification] = append(byLevel[item.Classification], item)
	}

	for _, c := range levels {
		group := byLevel[c]
		if len(group) == 0 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })

		sb.WriteString(fmt.Sprintf("### %s (%d)\n\n", c, len(group)))
		sb.WriteString("| Path | Access | Data Types | Compliance |\n|---|---|---|---|\n")
		for _, item := range group {
			types := make([]string, len(item.DataTypes))
			for i, t := range item.DataTypes {
				types[i] = string(t)
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				cell(item.Path), item.AccessLevel, cell(strings.Join(types, ", ")),
				cell(strings.Join(item.ComplianceRequirements, ", "))))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeCounts(sb *strings.Builder, counts map[string]int, empty string) {
	if len(counts) == 0 {
		sb.WriteString(empty + "\n\n")
		return
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("- **%s**: %d\n", k, counts[k]))
	}
	sb.WriteString("\n")
}

// cell escapes a value for a markdown table cell.
func cell(s string) string {
	if s == "" {
		return "-"
	}
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
