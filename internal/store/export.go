package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// csvHeader is the fixed result schema, in the column order the original
// campaign tracker used.
var csvHeader = []string{
	"Practice Name",
	"Phone",
	"Address",
	"Specialist Available",
	"Ultrasound Available",
	"Consultation Price",
	"Earliest Availability",
	"Call Status",
	"Call Duration (s)",
	"Full Transcript",
	"Recording URL",
	"Local Recording File",
	"Called At",
}

// ExportCSV writes every result row to w with the fixed header, oldest
// first. The export is a read-only view; the table itself stays
// append-only.
func (s *LocalStore) ExportCSV(w io.Writer) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT
		practice_name, phone, address,
		specialist_available, ultrasound_available, consultation_price, earliest_availability,
		status, duration_seconds, transcript, recording_url, local_recording, called_at
		FROM call_results ORDER BY id`)
	if err != nil {
		return 0, fmt.Errorf("failed to read results: %w", err)
	}
	defer rows.Close()

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	count := 0
	for rows.Next() {
		var name, phone, address, specialist, ultrasound, price, avail, status, transcript, recURL, recLocal, calledAt string
		var duration float64
		if err := rows.Scan(&name, &phone, &address, &specialist, &ultrasound, &price, &avail,
			&status, &duration, &transcript, &recURL, &recLocal, &calledAt); err != nil {
			return count, fmt.Errorf("failed to scan result row: %w", err)
		}
		record := []string{
			name, phone, address, specialist, ultrasound, price, avail,
			status, strconv.FormatFloat(duration, 'f', -1, 64),
			transcript, recURL, recLocal, calledAt,
		}
		if err := cw.Write(record); err != nil {
			return count, fmt.Errorf("failed to write row: %w", err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return count, err
	}
	cw.Flush()
	return count, cw.Error()
}
