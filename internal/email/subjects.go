package email

const (
	subjectAssessmentConfirmationFmt = "Your level assessment on %s"
)
