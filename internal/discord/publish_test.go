package discord

import (
	"strings"
	"testing"
	"time"

	"github.com/calliope-bot/calliope/internal/recorder"
)

func TestTranscriptFileName(t *testing.T) {
	t.Parallel()
	tr := recorder.Transcript{
		StartedAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
	}
	if got := transcriptFileName(tr); got != "transcription_20260314_092653.txt" {
		t.Errorf("unexpected file name %q", got)
	}
}

func TestTranscriptBody(t *testing.T) {
	t.Parallel()
	tr := recorder.Transcript{
		ChannelName: "war-room",
		StartedAt:   time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Speakers:    3,
		Text:        "hello everyone",
	}
	body := transcriptBody(tr)

	for _, want := range []string{
		"Recording started: 2026-03-14 09:26:53 UTC",
		"Voice channel: war-room",
		"Participants: 3",
		strings.Repeat("=", 50),
		"hello everyone",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
	if !strings.HasSuffix(body, "hello everyone\n") {
		t.Errorf("transcript text should close the body:\n%s", body)
	}
}
