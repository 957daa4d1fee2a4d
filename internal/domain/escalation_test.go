package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/PabloGalante/flashcoach/internal/domain"
)

func TestEscalationEventJSON(t *testing.T) {
	cases := []struct {
		name  string
		event domain.EscalationEvent
		want  string
	}{
		{
			name:  "reset",
			event: domain.EscalationEvent{},
			want:  `{"triggered":false}`,
		},
		{
			name:  "no change",
			event: domain.EscalationEvent{Status: domain.EscalationNoChange},
			want:  `{"status":"no_change","triggered":false}`,
		},
		{
			name:  "count update",
			event: domain.EscalationEvent{Status: domain.EscalationCountUpdate, NegativeCount: 2},
			want:  `{"negative_count":2,"status":"count_update","triggered":false}`,
		},
		{
			name: "sent",
			event: domain.EscalationEvent{
				Triggered:   true,
				Type:        domain.EscalationTypeMentorEmail,
				Status:      domain.EscalationSent,
				CountBefore: 3,
				CountAfter:  0,
			},
			want: `{"error":null,"negative_count_after":0,"negative_count_before":3,"status":"sent","triggered":true,"type":"mentor_email"}`,
		},
		{
			name: "failed",
			event: domain.EscalationEvent{
				Triggered:   true,
				Type:        domain.EscalationTypeMentorEmail,
				Status:      domain.EscalationFailed,
				CountBefore: 3,
				CountAfter:  3,
				Error:       "boom",
			},
			want: `{"error":"boom","negative_count_after":3,"negative_count_before":3,"status":"failed","triggered":true,"type":"mentor_email"}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := json.Marshal(tc.event)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestFeedbackValue(t *testing.T) {
	if !domain.FeedbackDidNotWork.Negative() {
		t.Fatalf("did_not_work must be negative")
	}
	if domain.FeedbackPartiallyWorked.Negative() || domain.FeedbackWorked.Negative() {
		t.Fatalf("only did_not_work is negative")
	}
	if domain.FeedbackValue("meh").Valid() {
		t.Fatalf("unexpected valid value")
	}
}
