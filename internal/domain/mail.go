package domain

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

const (
	MailCreateUser       = "create_user"
	MailResetPassword    = "reset_password"
	MailChangeEmail      = "change_email"
	MailContentSubmitted = "content_submitted"
	MailContentDecided   = "content_decided"
)

type CreateUserMailData struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type ResetPasswordMailData struct {
	FullName   string `json:"fullName"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}

type ChangeEmailMailData struct {
	FullName   string `json:"fullName"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}

type ContentSubmittedMailData struct {
	FullName   string `json:"fullName"`
	ClientName string `json:"clientName"`
	Title      string `json:"title"`
}

type ContentDecidedMailData struct {
	FullName string         `json:"fullName"`
	Title    string         `json:"title"`
	Status   ApprovalStatus `json:"status"`
	Feedback string         `json:"feedback"`
}
