package audit

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"time"
)

var csvHeader = []string{"at", "actor", "action", "entity", "entity_id", "meta"}

// WriteCSV menulis rows sebagai CSV dengan header.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		meta := ""
		if len(r.Meta) > 0 {
			raw, err := json.Marshal(r.Meta)
			if err != nil {
				return err
			}
			meta = string(raw)
		}
		record := []string{r.At.UTC().Format(time.RFC3339), r.Actor, r.Action, r.Entity, r.EntityID, meta}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
