package verify

import (
	"errors"
	"fmt"

	"github.com/jakerosado/preflight/internal/query"
)

// MissingRecordError marks a query with no cache record during an offline
// check. The fix is a prepare run against a live database, so the message
// says so.
type MissingRecordError struct {
	Hash string
}

func (e *MissingRecordError) Error() string {
	return fmt.Sprintf("no cache record for query %s; run \"preflight prepare\" against a live database",
		query.ShortHash(e.Hash))
}

// IsMissingRecord returns true if the error is a missing cache record.
// Uses errors.As to handle wrapped errors.
func IsMissingRecord(err error) bool {
	var me *MissingRecordError
	return errors.As(err, &me)
}
