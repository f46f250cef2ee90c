package domain

import "time"

// SentMessage is one entry in the bounded recent-sends history, used by the
// reuse picker. Repeated sends of the same text bump Count instead of adding
// a duplicate.
type SentMessage struct {
	Date  time.Time
	Text  string
	Count int
}
