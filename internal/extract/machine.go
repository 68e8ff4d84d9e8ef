package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/mealledger/internal/identity"
	"github.com/roach88/mealledger/internal/ledger"
)

// State is the extractor's table-tracking state.
type State int

const (
	// SeekingHeader waits for a column header line.
	SeekingHeader State = iota
	// InTable reads data rows against the active header.
	InTable
)

func (s State) String() string {
	if s == InTable {
		return "IN_TABLE"
	}
	return "SEEKING_HEADER"
}

// Transition classifies how a line was handled.
type Transition int

const (
	// NoMatch: the line was skipped and the state is unchanged.
	NoMatch Transition = iota
	// HeaderMatch: a header line set the active weekday columns.
	HeaderMatch
	// StopMatch: a footer or subtotal line discarded the header context.
	StopMatch
	// DataMatch: a data row was emitted.
	DataMatch
)

func (t Transition) String() string {
	switch t {
	case HeaderMatch:
		return "header"
	case StopMatch:
		return "stop"
	case DataMatch:
		return "data"
	}
	return "none"
}

var (
	headerMarker = regexp.MustCompile(`(?i)^(lieu de prise de repas|place of meal collection)`)

	headerDays = []struct {
		day ledger.Weekday
		re  *regexp.Regexp
	}{
		{ledger.Monday, regexp.MustCompile(`(?i)lundi|monday`)},
		{ledger.Tuesday, regexp.MustCompile(`(?i)mardi|tuesday`)},
		{ledger.Wednesday, regexp.MustCompile(`(?i)mercr|wednesday`)},
		{ledger.Thursday, regexp.MustCompile(`(?i)jeudi|thursday`)},
		{ledger.Friday, regexp.MustCompile(`(?i)vendr|friday`)},
	}

	stopMarkers = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^totaux tous lieux confondus`),
		regexp.MustCompile(`(?i)^grand totals?\b`),
		regexp.MustCompile(`(?i)^[eé]dit[eé] le\b`),
		regexp.MustCompile(`(?i)^edited on\b`),
		regexp.MustCompile(`(?i)^\s*sous-total`),
		regexp.MustCompile(`(?i)^\s*sub-?total`),
		regexp.MustCompile(`(?i)^\s*total( |$)`),
	}

	dataRow = regexp.MustCompile(`(?i)^(.*?)\s+(ADULTE\s+|ADULT\s+)?(` +
		`HALAL|SANS PORC|PORK-FREE|STANDARD|` +
		`VEGE SUPPLEMENTAIRE|VÉGÉ SUPPLÉMENTAIRE|SUPPLEMENTAL[ -]VEGETARIAN|` +
		`VEGETARIEN|VÉGÉTARIEN|VEGETARIAN` +
		`)\s+([\d\s]+)$`)

	hasDigit = regexp.MustCompile(`\d`)
)

// regimeAliases maps accent-folded regime keywords to their canonical names.
var regimeAliases = map[string]string{
	"PORK-FREE":               "SANS PORC",
	"VEGETARIAN":              "VEGETARIEN",
	"SUPPLEMENTAL VEGETARIAN": "VEGE SUPPLEMENTAIRE",
	"SUPPLEMENTAL-VEGETARIAN": "VEGE SUPPLEMENTAIRE",
}

// Event describes the handling of one line.
type Event struct {
	Line       string
	From       State
	To         State
	Transition Transition
	Row        *ledger.DeliveryRecord // set for DataMatch
	Reason     string                 // why a NoMatch line was skipped
}

// Machine is the row extraction state machine for one document.
// It is not safe for concurrent use; use one Machine per document.
type Machine struct {
	meta  Metadata
	state State
	days  []ledger.Weekday
}

// NewMachine starts a machine in SeekingHeader for a document with the given metadata.
func NewMachine(meta Metadata) *Machine {
	return &Machine{meta: meta}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Days returns the active header's weekday columns.
func (m *Machine) Days() []ledger.Weekday { return m.days }

// Step feeds one line to the machine.
func (m *Machine) Step(line string) (ev Event) {
	ev = Event{Line: line, From: m.state}
	defer func() { ev.To = m.state }()

	if headerMarker.MatchString(line) {
		days := parseHeaderDays(line)
		if len(days) == 0 {
			m.reset()
			ev.Reason = "header without weekday columns"
			return ev
		}
		m.state, m.days = InTable, days
		ev.Transition = HeaderMatch
		return ev
	}

	if m.state != InTable {
		ev.Reason = "outside table"
		return ev
	}

	for _, re := range stopMarkers {
		if re.MatchString(line) {
			m.reset()
			ev.Transition = StopMatch
			return ev
		}
	}

	if !hasDigit.MatchString(line) {
		ev.Reason = "no numeric columns"
		return ev
	}

	row, reason := m.parseRow(line)
	if row == nil {
		ev.Reason = reason
		return ev
	}
	ev.Transition = DataMatch
	ev.Row = row
	return ev
}

func (m *Machine) reset() {
	m.state = SeekingHeader
	m.days = nil
}

func (m *Machine) parseRow(line string) (*ledger.DeliveryRecord, string) {
	match := dataRow.FindStringSubmatch(line)
	if match == nil {
		return nil, "row shape mismatch"
	}

	location := strings.Join(strings.Fields(match[1]), " ")
	if location == "" {
		return nil, "empty location"
	}

	fields := strings.Fields(match[4])
	if len(fields) < len(m.days) {
		return nil, "fewer counts than header days"
	}

	regime := identity.Fold(match[3])
	if alias, ok := regimeAliases[regime]; ok {
		regime = alias
	}
	if match[2] != "" {
		regime = "ADULTE " + regime
	}

	base := identity.BaseSchool(location)
	row := &ledger.DeliveryRecord{
		DocumentID:   DocumentID(base, m.meta.Week),
		BaseSchool:   base,
		SchoolType:   identity.SchoolType(location),
		Regime:       regime,
		WeekNumber:   m.meta.Week,
		SchoolYear:   m.meta.SchoolYear,
		DocumentDate: m.meta.Date,
	}
	for i, day := range m.days {
		if !day.Counted() {
			continue
		}
		v, err := strconv.ParseInt(fields[i], 10, 64)
		if err != nil {
			return nil, "unparseable count"
		}
		row.SetCount(day, v)
	}
	row.Total = row.DayTotal()
	return row, ""
}

func parseHeaderDays(line string) []ledger.Weekday {
	var days []ledger.Weekday
	for _, hd := range headerDays {
		if hd.re.MatchString(line) {
			days = append(days, hd.day)
		}
	}
	return days
}

// DocumentID derives the identifier recorded on rows extracted from a document.
func DocumentID(baseSchool, week string) string {
	return "doc_" + strings.Join(strings.Fields(baseSchool), "-") + "_" + week
}
