package shared

import "fmt"

// AttendanceLockKey builds redis keys guarding a class register for one day,
// so two staff members cannot post the same register concurrently.
func AttendanceLockKey(classID int64, date string) string {
	return fmt.Sprintf("attendance:class:%d:%s:lock", classID, date)
}
