package attendance

// EntryInput is one student's line in a submitted register.
type EntryInput struct {
	StudentID int64  `validate:"required,gt=0"`
	Status    string `validate:"required,oneof=present absent late excused"`
	Note      string `validate:"max=255"`
}

// RecordRegisterRequest is a full register submission for one class and day.
type RecordRegisterRequest struct {
	ClassID        int64        `validate:"required,gt=0"`
	Date           string       `validate:"required,datetime=2006-01-02"`
	Entries        []EntryInput `validate:"required,min=1,dive"`
	IdempotencyKey string       `validate:"omitempty,max=128"`
}
