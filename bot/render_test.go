package bot

import (
	"fmt"
	"strings"
	"testing"

	"github.com/evanlabs/checkerbot/checker"
	"github.com/evanlabs/checkerbot/session"
)

func testApp() *App {
	return &App{supportURL: "https://t.me/example_support"}
}

func TestRenderSignalCoversAllKinds(t *testing.T) {
	a := testApp()
	kinds := []session.SignalKind{
		session.SignalPromptID,
		session.SignalBadID,
		session.SignalIDAccepted,
		session.SignalBadSecret,
		session.SignalCredentialsValid,
		session.SignalCredentialsRejected,
		session.SignalEmptyBatch,
		session.SignalBusy,
	}
	for _, k := range kinds {
		text, _ := a.renderSignal(session.Signal{Kind: k})
		if text == "" {
			t.Fatalf("signal kind %d rendered empty", k)
		}
	}
}

func TestRenderProgress(t *testing.T) {
	a := testApp()
	if got := a.renderProgress(session.Signal{Kind: session.SignalValidating}); got == "" {
		t.Fatal("validating notice is empty")
	}
	got := a.renderProgress(session.Signal{Kind: session.SignalChecking, Count: 3})
	if !strings.Contains(got, "3 numbers") {
		t.Fatalf("checking notice = %q", got)
	}
	if got := a.renderProgress(session.Signal{Kind: session.SignalReport}); got != "" {
		t.Fatalf("report must not produce a progress notice, got %q", got)
	}
}

func TestRenderReportSections(t *testing.T) {
	a := testApp()
	report := &checker.BatchReport{
		Submitted:     5,
		Truncated:     1,
		Registered:    []string{"+8801712345678"},
		NotRegistered: []string{"+8801812345678"},
		InvalidFormat: []string{"not_a_number"},
		TransientFailures: []checker.TransientFailure{
			{Phone: "+8801912345678", Detail: "timeout"},
		},
	}

	text := a.renderReport(report)
	for _, want := range []string{
		"Submitted: 5, checked: 2",
		"+8801712345678",
		"+8801812345678",
		"Registered (1)",
		"Not registered (1)",
		"Invalid format (1)",
		"Could not check (1)",
		"dropped",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("report missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "stopped working") {
		t.Fatal("clean report must not mention credential death")
	}
}

func TestRenderReportCapsLongLists(t *testing.T) {
	a := testApp()
	report := &checker.BatchReport{Submitted: 30}
	for i := 0; i < 30; i++ {
		report.Registered = append(report.Registered, fmt.Sprintf("+88017123456%02d", i))
	}

	text := a.renderReport(report)
	if got := strings.Count(text, "+88017123456"); got != maxListedNumbers {
		t.Fatalf("listed %d numbers, expected %d", got, maxListedNumbers)
	}
	if !strings.Contains(text, "and 10 more") {
		t.Fatalf("missing overflow marker:\n%s", text)
	}
}

func TestRenderReportCredentialDeath(t *testing.T) {
	a := testApp()
	report := &checker.BatchReport{
		Submitted:              3,
		Registered:             []string{"+8801712345678"},
		CredentialsInvalidated: true,
	}

	text := a.renderReport(report)
	if !strings.Contains(text, "stopped working") {
		t.Fatalf("missing credential death notice:\n%s", text)
	}
	if !strings.Contains(text, "+8801712345678") {
		t.Fatal("partial results must survive credential death")
	}
}
