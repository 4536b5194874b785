package classifier

import (
	"fmt"
	"time"
)

// UnknownDatePlaceholder renders in place of a missing session date. Naming
// must never fail on incomplete discovery data.
const UnknownDatePlaceholder = "Unknown Date"

// DisplayName builds the deterministic session display name from the
// resolved date, the inferred type, and the shot count.
//
//	Mar 14, 2026 - Sim Round (64 shots)
//	Unknown Date - Driver Focus (20 shots)
func DisplayName(date *time.Time, result ClassificationResult, shotCount int) string {
	datePart := UnknownDatePlaceholder
	if date != nil {
		datePart = date.Format("Jan 2, 2006")
	}
	return fmt.Sprintf("%s - %s (%d shots)", datePart, result.TypeName, shotCount)
}
