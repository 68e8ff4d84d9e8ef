// Package extract turns reading-order document lines into delivery rows.
//
// Extraction is a two-state machine:
//
//	SeekingHeader --header--> InTable
//	InTable       --header--> InTable        (new weekday columns)
//	InTable       --stop----> SeekingHeader  (header context discarded)
//	InTable       --data----> InTable        (row emitted)
//	any           --other---> unchanged      (line skipped)
//
// A header line ("Lieu de prise de repas ... Lundi Mardi Jeudi Vendredi") declares
// which weekday columns the following rows carry. A data row is
//
//	<location> [ADULTE] <regime> <integer> <integer> ...
//
// and its integers are mapped positionally onto the active header's weekdays.
// Wednesday is tracked positionally but never stored or totalled. Rows with fewer
// integers than active weekdays are discarded.
//
// Document metadata (week, date, school year) is read once per document from the
// "semaine N" and "du DD/MM/YYYY" markers. A document without a week marker is a
// ParseError; every other anomaly is local to a line and silently skipped.
package extract
