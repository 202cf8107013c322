package service

import (
	"crypto/rand"
	"fmt"
	"html/template"
	"math/big"
	"strings"

	"messmate/internal/domain"
)

const otpDigits = 6

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

var otpEmail = template.Must(template.New("otp").Parse(
	`<p>Hi {{.Name}},</p><p>{{.Intro}}</p><p style="font-size:24px;letter-spacing:4px"><b>{{.Code}}</b></p><p>The code expires in {{.Minutes}} minutes.</p>`))

func renderOTPEmail(name, purpose, code string, minutes int) (subject, body string, err error) {
	intro := "Use this code to verify your MessMate account."
	subject = "Verify your MessMate account"
	if purpose == domain.OTPPurposeResetPassword {
		intro = "Use this code to reset your MessMate password."
		subject = "Reset your MessMate password"
	}
	if name == "" {
		name = "there"
	}
	var sb strings.Builder
	err = otpEmail.Execute(&sb, map[string]interface{}{
		"Name": name, "Intro": intro, "Code": code, "Minutes": minutes,
	})
	return subject, sb.String(), err
}
