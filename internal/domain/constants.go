package domain

const (
	RoleAdmin     = "ADMIN"
	RoleMessOwner = "MESS_OWNER"
	RoleUser      = "USER"
)

// ValidRole reports whether r is a known role.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleMessOwner, RoleUser:
		return true
	}
	return false
}

const (
	OTPPurposeVerifyEmail   = "VERIFY_EMAIL"
	OTPPurposeResetPassword = "RESET_PASSWORD"
)

// Error codes returned in the "code" field of auth error bodies.
const (
	CodeEmailExists         = "EMAIL_EXISTS"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeEmailNotVerified    = "EMAIL_NOT_VERIFIED"
	CodeInvalidOTP          = "INVALID_OTP"
	CodeOTPExpired          = "OTP_EXPIRED"
	CodeOTPAttemptsExceeded = "OTP_ATTEMPTS_EXCEEDED"
	CodeUserNotFound        = "USER_NOT_FOUND"
)

const (
	ChannelWebPush = "WEB_PUSH"
	ChannelFCM     = "FCM"
	ChannelDevice  = "DEVICE"
)
