package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/mealledger/internal/ledger"
)

var (
	weekMarker = regexp.MustCompile(`(?i)(?:semaine|week)\s*(\d+)`)
	dateMarker = regexp.MustCompile(`(?i)(?:du|from)\s(\d{1,2})/(\d{1,2})/(\d{4})`)
)

// Metadata is the per-document information shared by every row.
type Metadata struct {
	Week       string `json:"week"`        // zero-padded, e.g. "07"
	Date       string `json:"date"`        // "DD/MM/YYYY" as printed, may be empty
	SchoolYear string `json:"school_year"` // "2023-2024", empty without a date
}

// ParseMetadata reads the week and date markers from the whole document text.
// The first occurrence of each marker wins.
func ParseMetadata(lines []string) (Metadata, error) {
	text := strings.Join(lines, "\n")

	var meta Metadata
	m := weekMarker.FindStringSubmatch(text)
	if m == nil {
		return meta, &ParseError{Reason: ErrNoWeek}
	}
	week, err := strconv.Atoi(m[1])
	if err != nil || week < 1 || week > 53 {
		return meta, &ParseError{Reason: fmt.Sprintf("invalid week number %q", m[1])}
	}
	meta.Week = ledger.FormatWeek(week)

	if d := dateMarker.FindStringSubmatch(text); d != nil {
		month, _ := strconv.Atoi(d[2])
		year, _ := strconv.Atoi(d[3])
		meta.Date = fmt.Sprintf("%s/%s/%s", d[1], d[2], d[3])
		meta.SchoolYear = SchoolYear(year, month)
	}
	return meta, nil
}

// SchoolYear returns the academic year containing the given month.
// Years start in September: 09/2023 and 03/2024 both belong to "2023-2024".
func SchoolYear(year, month int) string {
	if month >= 9 {
		return fmt.Sprintf("%d-%d", year, year+1)
	}
	return fmt.Sprintf("%d-%d", year-1, year)
}
