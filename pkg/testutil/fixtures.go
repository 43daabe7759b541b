package testutil

import (
	"time"

	"github.com/google/uuid"
)

// Fixed identifiers and instants for deterministic tests.
var (
	TestUserID1 = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	TestUserID2 = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	TestLoanID1 = uuid.MustParse("00000000-0000-0000-0000-000000000101")
	TestLoanID2 = uuid.MustParse("00000000-0000-0000-0000-000000000102")

	// TestNow is noon UTC so date arithmetic never straddles midnight.
	TestNow = time.Date(2025, time.September, 10, 12, 0, 0, 0, time.UTC)
)

// Day returns the UTC midnight n days after TestNow's date.
func Day(n int) time.Time {
	y, m, d := TestNow.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, time.UTC)
}
