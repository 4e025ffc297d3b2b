package main

import (
	"encoding/json"
	"testing"

	"vodaudit/internal/services"
	"vodaudit/internal/streamcompare"
	"vodaudit/internal/testsupport"
)

const (
	urlA = "http://xc.example/series/u/p/78025.mp4"
	urlB = "http://xc.example/series/u/p/78026.mp4"
	urlC = "http://xc.example/series/u/p/78027.mp4"
)

func fakeProbes() map[string]string {
	return map[string]string{
		urlA: testsupport.ProbeJSON(1920, 1080, "h264", 5_000_000, 1_650_000_000),
		urlB: testsupport.ProbeJSON(1920, 1080, "h264", 5_100_000, 1_660_000_000),
		urlC: testsupport.ProbeJSON(1280, 720, "h264", 2_500_000, 825_000_000),
	}
}

func TestCompareIdenticalStreams(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithFakeFFprobe(fakeProbes()))
	env.writeConfig(t)

	out, _, err := runCLI(t, []string{"compare", urlA, urlB}, env.configPath, "")
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	requireContains(t, out, "Comparing 2 stream(s)...")
	requireContains(t, out, "Analyzing Stream_1...")
	requireContains(t, out, "✓ Resolution: 1920x1080")
	requireContains(t, out, "COMPARISON RESULTS")
	requireContains(t, out, "WARNING: All streams appear IDENTICAL!")
	requireContains(t, out, "Bitrate:    5000 kbps")
	requireContains(t, out, "likely DUPLICATES")
}

func TestCompareDifferentStreams(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithFakeFFprobe(fakeProbes()))
	env.writeConfig(t)

	out, _, err := runCLI(t, []string{"compare", urlA, urlC}, env.configPath, "")
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	requireContains(t, out, "Streams have DIFFERENT characteristics")
	requireContains(t, out, "Stream_2")
	requireContains(t, out, "1280x720")
	requireContains(t, out, "First difference: Stream_2 (resolution)")
	requireContains(t, out, "legitimate quality variants")
}

func TestCompareTightToleranceFlag(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithFakeFFprobe(fakeProbes()))
	env.writeConfig(t)

	out, _, err := runCLI(t, []string{"compare", "--bitrate-tolerance", "0.01", urlA, urlB}, env.configPath, "")
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	requireContains(t, out, "First difference: Stream_2 (bitrate)")

	out, _, err = runCLI(t, []string{"compare", "--bitrate-window", "100000", urlA, urlB}, env.configPath, "")
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	requireContains(t, out, "IDENTICAL")
}

func TestCompareInsufficientIsNotAnError(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithFakeFFprobe(fakeProbes()))
	env.writeConfig(t)

	out, _, err := runCLI(t, []string{"compare", urlA, "http://unreachable.example/1.mp4"}, env.configPath, "")
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	requireContains(t, out, "Failed to probe stream")
	requireContains(t, out, "Not enough valid streams to compare")
	requireContains(t, out, "Failed probes: Stream_2")
}

func TestCompareStdin(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithFakeFFprobe(fakeProbes()))
	env.writeConfig(t)

	out, _, err := runCLI(t, []string{"compare", "--stdin"}, env.configPath, "\n"+urlA+"\n\n"+urlC+"\n")
	if err != nil {
		t.Fatalf("compare --stdin: %v", err)
	}
	requireContains(t, out, "Analyzing Stream 1...")
	requireContains(t, out, "Analyzing Stream 2...")

	_, _, err = runCLI(t, []string{"compare", "--stdin"}, env.configPath, urlA+"\n")
	if err == nil {
		t.Fatal("expected stdin mode to require two urls")
	}
	requireContains(t, err.Error(), "at least 2 URLs")
}

func TestCompareRequiresArgs(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeConfig(t)
	if _, _, err := runCLI(t, []string{"compare"}, env.configPath, ""); err == nil {
		t.Fatal("expected an error without urls")
	}
}

func TestCompareJSON(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithFakeFFprobe(fakeProbes()))
	env.writeConfig(t)

	out, _, err := runCLI(t, []string{"compare", "--json", urlA, urlB, "http://unreachable.example/1.mp4"}, env.configPath, "")
	if err != nil {
		t.Fatalf("compare --json: %v", err)
	}
	requireNotContains(t, out, "Analyzing")

	var payload struct {
		RunID   string `json:"run_id"`
		Samples []struct {
			Label string               `json:"label"`
			Probe *streamcompare.Probe `json:"probe"`
			Error string               `json:"error"`
		} `json:"samples"`
		Report struct {
			Verdict string   `json:"verdict"`
			Failed  []string `json:"failed"`
		} `json:"report"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if payload.RunID == "" || payload.Report.Verdict != string(streamcompare.VerdictIdentical) {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if len(payload.Samples) != 3 || payload.Samples[2].Error == "" || payload.Samples[0].Probe == nil {
		t.Fatalf("unexpected samples: %+v", payload.Samples)
	}
	if payload.Samples[0].Probe.Resolution != "1920x1080" {
		t.Fatalf("unexpected probe: %+v", payload.Samples[0].Probe)
	}
}

func TestCompareRejectsBadTolerance(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithFakeFFprobe(fakeProbes()))
	env.writeConfig(t)

	_, _, err := runCLI(t, []string{"compare", "--size-tolerance", "3", urlA, urlB}, env.configPath, "")
	if err == nil {
		t.Fatal("expected tolerance validation error")
	}
	if code := services.ExitCode(err); code != services.ExitConfiguration {
		t.Fatalf("expected validation exit code, got %d (%v)", code, err)
	}
}
