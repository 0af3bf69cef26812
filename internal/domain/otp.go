package domain

import "fmt"

// OtpRecord is the JSON value stored in the ephemeral store while an OTP is
// outstanding. The record's TTL is the OTP's absolute expiry: failed attempts
// rewrite the record but never extend it.
type OtpRecord struct {
	Hash     string `json:"hash"`
	Attempts int    `json:"attempts"`
}

// OtpKey is the ephemeral-store key for the outstanding OTP of a phone number.
// Writing to it overwrites any prior record: the last requested code wins.
func OtpKey(kind AccountKind, phoneNumber string) string {
	return fmt.Sprintf("otp:%s:%s", kind, phoneNumber)
}

// VerifiedKey is the ephemeral-store key for a verified-phone marker.
// Device-bound kinds include the opaque verify token so several devices can
// hold markers for the same phone at once; for the rest the token is ignored
// and a single marker exists per phone.
func VerifiedKey(kind AccountKind, phoneNumber, token string) string {
	if kind.DeviceBoundMarker() {
		return fmt.Sprintf("otp:%s:verified:%s:%s", kind, phoneNumber, token)
	}
	return fmt.Sprintf("otp:%s:verified:%s", kind, phoneNumber)
}
