// Package actions classifies the action names reported by callers into the
// policy classes the decision engine enforces. An action may belong to more
// than one class; unknown actions belong to none.
package actions

// Actions that let an attacker guess at the user's password.
var passwordCheckingActions = map[string]bool{
	"accountLogin":   true,
	"accountDestroy": true,
	"passwordChange": true,
}

// Actions that send an email and could make us look like a spammer.
var emailSendingActions = map[string]bool{
	"accountCreate":                    true,
	"recoveryEmailResendCode":          true,
	"passwordForgotSendCode":           true,
	"passwordForgotResendCode":         true,
	"sendUnblockCode":                  true,
	"recoveryEmailSecondaryResendCode": true,
	"recoveryEmailCreate":              true,
}

// Actions that let an attacker guess a short verification code.
var codeVerifyingActions = map[string]bool{
	"recoveryEmailVerifyCode":  true,
	"passwordForgotVerifyCode": true,
	"verifyTokenCode":          true,
	"verifyTotpCode":           true,
	"verifyRecoveryCode":       true,
	"recoveryKeyExists":        true,
	"verifySessionCode":        true,
	"recoveryPhoneVerifyCode":  true,
}

var smsSendingActions = map[string]bool{
	"connectDeviceSms":      true,
	"recoveryPhoneSendCode": true,
}

// Actions that result in a paid request to Twilio.
var twilioActions = map[string]bool{
	"recoveryPhoneSendSigninCode":        true,
	"recoveryPhoneSendSetupCode":         true,
	"recoveryPhoneSendResetPasswordCode": true,
}

var resetPasswordOtpSendingActions = map[string]bool{
	"passwordForgotSendOtp": true,
}

var resetPasswordOtpVerificationActions = map[string]bool{
	"passwordForgotVerifyOtp": true,
}

// IsPasswordCheckingAction reports whether the action checks a password.
// Failed attempts of these actions feed login-failure accounting.
func IsPasswordCheckingAction(action string) bool {
	return passwordCheckingActions[action]
}

// IsEmailSendingAction reports whether the action sends an email.
func IsEmailSendingAction(action string) bool {
	return emailSendingActions[action]
}

// IsCodeVerifyingAction reports whether the action verifies a code.
func IsCodeVerifyingAction(action string) bool {
	return codeVerifyingActions[action]
}

// IsSmsSendingAction reports whether the action sends an SMS.
func IsSmsSendingAction(action string) bool {
	return smsSendingActions[action]
}

// IsTwilioAction reports whether the action makes a Twilio request.
func IsTwilioAction(action string) bool {
	return twilioActions[action]
}

// IsResetPasswordOtpSendingAction reports whether the action sends a password reset OTP.
func IsResetPasswordOtpSendingAction(action string) bool {
	return resetPasswordOtpSendingActions[action]
}

// IsResetPasswordOtpVerificationAction reports whether the action verifies a password reset OTP.
func IsResetPasswordOtpVerificationAction(action string) bool {
	return resetPasswordOtpVerificationActions[action]
}

// IsUnblockable reports whether a block on this action may be lifted with an
// unblock code.
func IsUnblockable(action string) bool {
	return passwordCheckingActions[action]
}

// Classes returns the names of every class the action belongs to, in a fixed
// order. It is used for logging only.
func Classes(action string) []string {
	var classes []string
	if IsPasswordCheckingAction(action) {
		classes = append(classes, "password_checking")
	}
	if IsCodeVerifyingAction(action) {
		classes = append(classes, "code_verifying")
	}
	if IsEmailSendingAction(action) {
		classes = append(classes, "email_sending")
	}
	if IsSmsSendingAction(action) {
		classes = append(classes, "sms_sending")
	}
	if IsTwilioAction(action) {
		classes = append(classes, "twilio")
	}
	if IsResetPasswordOtpSendingAction(action) {
		classes = append(classes, "password_reset_otp_sending")
	}
	if IsResetPasswordOtpVerificationAction(action) {
		classes = append(classes, "password_reset_otp_verifying")
	}
	return classes
}
