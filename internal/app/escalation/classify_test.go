package escalation_test

import (
	"errors"
	"fmt"
	"net/textproto"
	"testing"

	"github.com/PabloGalante/flashcoach/internal/app/escalation"
)

func TestClassifyDeliveryError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want escalation.FailureKind
	}{
		{"nil", nil, ""},
		{"smtp 535 5.7.8", &textproto.Error{Code: 535, Msg: "5.7.8 Username and Password not accepted"}, escalation.FailureProviderAuthRejected},
		{"smtp 535 other", &textproto.Error{Code: 535, Msg: "bad auth"}, escalation.FailureAuth},
		{"wrapped smtp reply", fmt.Errorf("ssl failed: %w | starttls failed: %w", errors.New("dial tcp: timeout"), &textproto.Error{Code: 535, Msg: "5.7.8 nope"}), escalation.FailureProviderAuthRejected},
		{"provider rejection on second transport", fmt.Errorf("ssl failed: %w | tls failed: %w", &textproto.Error{Code: 535, Msg: "Authentication failed"}, &textproto.Error{Code: 535, Msg: "5.7.8 Username and Password not accepted"}), escalation.FailureProviderAuthRejected},
		{"auth failure on first transport", fmt.Errorf("ssl failed: %w | tls failed: %w", &textproto.Error{Code: 535, Msg: "bad auth"}, errors.New("connection reset")), escalation.FailureAuth},
		{"text 535 5.7.8", errors.New("(535, b'5.7.8 Username and Password not accepted')"), escalation.FailureProviderAuthRejected},
		{"text authentication", errors.New("SMTP Authentication unsuccessful"), escalation.FailureAuth},
		{"text gmail", errors.New("Username and Password not accepted"), escalation.FailureAuth},
		{"smtp 550", &textproto.Error{Code: 550, Msg: "mailbox unavailable"}, escalation.FailureSend},
		{"generic", errors.New("connection refused"), escalation.FailureSend},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := escalation.ClassifyDeliveryError(tc.err); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFailureMessageIsDistinctPerKind(t *testing.T) {
	err := errors.New("connection refused")
	seen := map[string]escalation.FailureKind{}
	for _, k := range []escalation.FailureKind{escalation.FailureProviderAuthRejected, escalation.FailureAuth, escalation.FailureSend} {
		msg := escalation.FailureMessage(k, err)
		if prev, dup := seen[msg]; dup {
			t.Fatalf("%q and %q share message %q", prev, k, msg)
		}
		seen[msg] = k
	}
	if got := escalation.FailureMessage(escalation.FailureSend, err); got != "connection refused" {
		t.Fatalf("generic failure should surface the error text, got %q", got)
	}
}
