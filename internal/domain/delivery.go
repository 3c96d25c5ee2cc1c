package domain

// DeliveryJob is handed to the mail/queue collaborator that sends the passcode.
type DeliveryJob struct {
	To           string `json:"to"`
	Subject      string `json:"subject"`
	OTP          string `json:"otp"`
	OTPExpiredAt int64  `json:"otpExpiredAt"`
}
