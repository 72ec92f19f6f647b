package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/diagnostica/internal/cohort"
	"github.com/abhisek/diagnostica/internal/content"
	"github.com/abhisek/diagnostica/internal/content/contenttest"
	"github.com/abhisek/diagnostica/internal/store"
)

const trapEvents = `[
  {"event_type":"ANSWER_UPDATE","timestamp":"2026-03-01T09:00:00Z","payload":{"questionId":"q-basics-1","selectedOptionId":"a","confidence":"high","timeMs":12000}},
  {"event_type":"ANSWER_UPDATE","timestamp":"2026-03-01T09:00:40Z","payload":{"questionId":"q-compare-1","selectedOptionId":"b","confidence":"HIGH","timeMs":9000}}
]`

// cli runs the root command against an isolated database and config dir.
type cli struct {
	t  *testing.T
	db string
}

func newCLI(t *testing.T) *cli {
	dir := t.TempDir()
	t.Chdir(dir)
	for _, k := range []string{"GROQ_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY"} {
		t.Setenv(k, "")
	}
	return &cli{t: t, db: filepath.Join(dir, "test.db")}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{"--db", c.db, "--log-level", "error"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func (c *cli) must(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, "diagnostica %s", strings.Join(args, " "))
	return out
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func samplePackFile(t *testing.T) string {
	t.Helper()
	b, err := content.EncodePack(contenttest.SamplePack())
	require.NoError(t, err)
	return writeFile(t, "pack.json", b)
}

func TestCLI_AttemptLifecycle(t *testing.T) {
	c := newCLI(t)
	pack := samplePackFile(t)
	events := writeFile(t, "events.json", []byte(trapEvents))

	assert.Contains(t, c.must("content", "validate", pack), "fractions-diag")
	c.must("content", "import", pack)

	id := strings.TrimSpace(c.must("attempt", "start", "--exam", "fractions-diag", "--student", "s1"))
	require.NotEmpty(t, id)

	assert.Contains(t, c.must("attempt", "ingest", id, events), "Appended 2 events")

	var res struct {
		OverallScore        int `json:"overallScore"`
		CompetencyDiagnoses []struct {
			CompetencyID string `json:"competencyId"`
			State        string `json:"state"`
		} `json:"competencyDiagnoses"`
	}
	require.NoError(t, json.Unmarshal([]byte(c.must("attempt", "finalize", id)), &res))
	assert.Equal(t, 50, res.OverallScore)

	show := c.must("attempt", "show", id)
	assert.Contains(t, show, "COMPLETED")
	assert.Contains(t, show, "INJECT_SCAFFOLDING")

	_, err := c.run("attempt", "ingest", id, events)
	assert.Error(t, err, "ingest after finalize should fail")

	c.must("tag", "set", "s1", "region", "north")

	out := c.must("report", "fractions-diag", "--json")
	var r cohort.Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, 1, r.Attempts)
	assert.Empty(t, r.Error)
}

func TestCLI_EvaluateIsStateless(t *testing.T) {
	c := newCLI(t)
	pack := samplePackFile(t)
	events := writeFile(t, "events.json", []byte(trapEvents))

	out := c.must("evaluate", "--pack", pack, "--events", events, "--attempt", "dry-run")
	assert.Contains(t, out, `"attemptId": "dry-run"`)

	_, err := os.Stat(c.db)
	assert.True(t, os.IsNotExist(err), "evaluate should not create the database")
}

func TestCLI_ValidateRejectsBrokenPack(t *testing.T) {
	c := newCLI(t)
	p := contenttest.SamplePack()
	p.Competencies[0].Prerequisites = []string{"frac-mixed"}
	b, err := content.EncodePack(p)
	require.NoError(t, err)

	_, err = c.run("content", "validate", writeFile(t, "cycle.json", b))
	assert.Error(t, err)
}

func TestUsageBy(t *testing.T) {
	events := []store.LLMRequestEvent{
		{LLMRequestEventData: store.LLMRequestEventData{Purpose: "remediation", Model: "b", InputTokens: 10, OutputTokens: 5, LatencyMs: 100}},
		{LLMRequestEventData: store.LLMRequestEventData{Purpose: "remediation", Model: "a", InputTokens: 20, OutputTokens: 5, LatencyMs: 300}},
	}

	byPurpose := usageBy(events, func(e store.LLMRequestEvent) string { return e.Purpose })
	require.Len(t, byPurpose, 1)
	assert.Equal(t, usage{Key: "remediation", Calls: 2, InputTokens: 30, OutputTokens: 10, AvgLatencyMs: 200}, byPurpose[0])

	byModel := usageBy(events, func(e store.LLMRequestEvent) string { return e.Model })
	require.Len(t, byModel, 2)
	assert.Equal(t, "a", byModel[0].Key)
}

func TestCLI_LLMEmpty(t *testing.T) {
	c := newCLI(t)

	assert.Contains(t, c.must("llm", "list"), "No LLM requests recorded.")
	assert.Contains(t, c.must("llm", "stats"), "No LLM requests recorded.")

	_, err := c.run("llm", "view", "42")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPrintModelCost(t *testing.T) {
	var out bytes.Buffer
	printModelCost(&out, []usage{
		{Key: "gpt-4o-mini", Calls: 2, InputTokens: 1_000_000, OutputTokens: 0},
		{Key: "local-model", Calls: 1},
	})

	got := out.String()
	assert.Contains(t, got, "$0.15")
	assert.Contains(t, got, "total (partial)")
	assert.Contains(t, got, "No pricing for: local-model")
}
