package escalation

import (
	"net/textproto"
	"strings"
)

// FailureKind classifies why an escalation could not be delivered.
type FailureKind string

const (
	// FailureProviderAuthRejected: the mail provider refused the
	// credentials (SMTP 535 with enhanced status 5.7.8).
	FailureProviderAuthRejected FailureKind = "provider_auth_rejected"
	// FailureAuth: any other authentication failure.
	FailureAuth FailureKind = "auth_failed"
	// FailureSend: everything else.
	FailureSend FailureKind = "send_failed"
)

const smtpAuthFailedCode = 535

// authSignatures are error texts some providers return on bad credentials
// without a parseable status code.
var authSignatures = []string{
	"535",
	"Authentication",
	"Username and Password not accepted",
}

// ClassifyDeliveryError maps a notifier error to a FailureKind. Every
// structured SMTP reply in the error tree is checked first, then the error
// text. A provider rejection found on any transport wins over a plain
// authentication failure.
func ClassifyDeliveryError(err error) FailureKind {
	if err == nil {
		return ""
	}

	kind := FailureSend
	for _, reply := range smtpReplies(err) {
		if reply.Code != smtpAuthFailedCode {
			continue
		}
		if strings.Contains(reply.Msg, "5.7.8") {
			return FailureProviderAuthRejected
		}
		kind = FailureAuth
	}

	text := err.Error()
	if strings.Contains(text, "535") && strings.Contains(text, "5.7.8") {
		return FailureProviderAuthRejected
	}
	if kind == FailureAuth {
		return kind
	}
	for _, sig := range authSignatures {
		if strings.Contains(text, sig) {
			return FailureAuth
		}
	}
	return FailureSend
}

// smtpReplies collects every *textproto.Error in err's tree, including
// both branches of an error joined from several transports.
func smtpReplies(err error) []*textproto.Error {
	var out []*textproto.Error
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if reply, ok := e.(*textproto.Error); ok {
			out = append(out, reply)
		}
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return out
}

// FailureMessage is the text shown to the teacher for a failed delivery.
func FailureMessage(kind FailureKind, err error) string {
	switch kind {
	case FailureProviderAuthRejected:
		return "We could not authenticate the email service. Please contact support."
	case FailureAuth:
		return "Email authentication failed. Please check server credentials."
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
