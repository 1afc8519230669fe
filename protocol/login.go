// Copyright 2026 The Silkworm Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

// LoginOutcomeKind discriminates the variants of a LoginOutcome.
type LoginOutcomeKind int

const (
	// OutcomeSuccess means the exchange completed and the session is
	// authenticated.
	OutcomeSuccess LoginOutcomeKind = iota
	// OutcomeDeviceLocked means the account's device lock requires
	// out-of-band verification (web URL or SMS) before login can
	// proceed. Terminal for this layer.
	OutcomeDeviceLocked
	// OutcomeCaptchaRequired means the server demands a solved
	// slider-captcha ticket before the next round.
	OutcomeCaptchaRequired
	// OutcomeDeviceLockLogin means the server wants the
	// non-interactive device-lock confirmation round.
	OutcomeDeviceLockLogin
	// OutcomeSMSLimited means the server refused to send a
	// verification SMS because of rate limiting. Terminal.
	OutcomeSMSLimited
	// OutcomeFrozen means the account is frozen. Terminal.
	OutcomeFrozen
	// OutcomeUnknown is any response this layer does not recognize.
	// Terminal.
	OutcomeUnknown
)

// String returns the outcome kind name for logging and error text.
func (k LoginOutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeDeviceLocked:
		return "device-locked"
	case OutcomeCaptchaRequired:
		return "captcha-required"
	case OutcomeDeviceLockLogin:
		return "device-lock-login"
	case OutcomeSMSLimited:
		return "sms-limited"
	case OutcomeFrozen:
		return "frozen"
	default:
		return "unknown"
	}
}

// LoginOutcome is one round's result of a login exchange. Exactly the
// variant field matching Kind is populated; the kind-only variants
// (DeviceLockLogin, SMSLimited, Frozen) carry no payload.
type LoginOutcome struct {
	Kind LoginOutcomeKind

	Success         *LoginSuccess
	DeviceLocked    *LoginDeviceLocked
	CaptchaRequired *LoginCaptchaRequired
	Unknown         *LoginUnknown
}

// LoginSuccess is the payload of a successful login round.
type LoginSuccess struct {
	// Account is the account the server actually authenticated. QR
	// login can land on a different account than the caller expected.
	Account  int64
	Nickname string
	Age      uint8
	Gender   uint8
}

// LoginDeviceLocked describes an out-of-band device-lock challenge.
type LoginDeviceLocked struct {
	// Message is the server's human-readable explanation.
	Message string
	// VerifyURL is the web verification link.
	VerifyURL string
	// SMSPhone is the masked phone number SMS verification would use,
	// if the server offers it.
	SMSPhone string
}

// LoginCaptchaRequired describes a slider-captcha challenge.
type LoginCaptchaRequired struct {
	// VerifyURL is the captcha page whose solution produces a ticket.
	VerifyURL string
}

// LoginUnknown carries an unrecognized server response.
type LoginUnknown struct {
	Code    uint8
	Message string
}

// QRCodeStateKind discriminates the variants of a QRCodeState.
type QRCodeStateKind int

const (
	// QRImageFetch delivers a fresh QR code image to display.
	QRImageFetch QRCodeStateKind = iota
	// QRWaitingForScan means the code has not been scanned yet.
	QRWaitingForScan
	// QRWaitingForConfirm means the code was scanned but not confirmed.
	QRWaitingForConfirm
	// QRTimeout means the code expired and a new one must be fetched.
	QRTimeout
	// QRConfirmed means the user confirmed login on their device.
	QRConfirmed
	// QRCancelled means the user cancelled login on their device.
	QRCancelled
)

// QRCodeState is one step of the QR-code login polling loop.
type QRCodeState struct {
	Kind QRCodeStateKind

	ImageFetch *QRCodeImageFetch
	Confirmed  *QRCodeConfirmed
}

// QRCodeImageFetch is a fresh QR code image plus the signature used to
// poll its state.
type QRCodeImageFetch struct {
	// Image is the PNG-encoded QR code to display to the user.
	Image []byte
	// Signature identifies this code in QueryQRCodeStatus calls.
	Signature []byte
}

// QRCodeConfirmed carries the temporary credentials of a confirmed QR
// code, consumed by Conn.LoginWithQRCode.
type QRCodeConfirmed struct {
	TemporaryPassword  []byte
	NoPictureSignature []byte
	QRSignature        []byte
}
