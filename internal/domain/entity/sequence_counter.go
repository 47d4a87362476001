package entity

import "time"

// SequenceEntry par {documento, número} consumido en el año.
type SequenceEntry struct {
	DocumentID string
	Number     int64
}

// SequenceCounter una fila por (grupo, año). Solo se modifica con Reserve/Release.
type SequenceCounter struct {
	GroupID    string
	Year       int
	LastNumber int64
	Used       []SequenceEntry
	UpdatedAt  time.Time
}

// NumberOf devuelve el número asignado al documento, si existe.
func (c *SequenceCounter) NumberOf(documentID string) (int64, bool) {
	for _, e := range c.Used {
		if e.DocumentID == documentID {
			return e.Number, true
		}
	}
	return 0, false
}
