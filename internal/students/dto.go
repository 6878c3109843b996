package students

type CreateStudentRequest struct {
	AdmissionNo   string  `json:"admission_no" validate:"required,max=30"`
	FirstName     string  `json:"first_name" validate:"required,max=100"`
	LastName      string  `json:"last_name" validate:"required,max=100"`
	ClassID       *int64  `json:"class_id,omitempty" validate:"omitempty,gt=0"`
	GuardianName  *string `json:"guardian_name,omitempty" validate:"omitempty,max=200"`
	GuardianPhone *string `json:"guardian_phone,omitempty" validate:"omitempty,max=50"`
	DateOfBirth   *string `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Gender        *string `json:"gender,omitempty" validate:"omitempty,oneof=male female"`
}

type UpdateStudentRequest struct {
	FirstName     *string `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName      *string `json:"last_name,omitempty" validate:"omitempty,max=100"`
	ClassID       *int64  `json:"class_id,omitempty" validate:"omitempty,gt=0"`
	GuardianName  *string `json:"guardian_name,omitempty" validate:"omitempty,max=200"`
	GuardianPhone *string `json:"guardian_phone,omitempty" validate:"omitempty,max=50"`
	DateOfBirth   *string `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Gender        *string `json:"gender,omitempty" validate:"omitempty,oneof=male female"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

type ListStudentsRequest struct {
	ClassID  *int64  `json:"class_id,omitempty" validate:"omitempty,gt=0"`
	IsActive *bool   `json:"is_active,omitempty"`
	Search   *string `json:"search,omitempty"`
	Limit    int     `json:"limit" validate:"gte=0,lte=500"`
	Offset   int     `json:"offset" validate:"gte=0"`
}
