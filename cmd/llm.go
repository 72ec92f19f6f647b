package cmd

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/abhisek/diagnostica/internal/llm"
	"github.com/abhisek/diagnostica/internal/store"
	"github.com/spf13/cobra"
)

const stampLayout = "2006-01-02 15:04:05"

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect recorded narration requests",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")
		since, _ := cmd.Flags().GetDuration("since")

		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		opts := store.QueryOpts{Limit: limit, Purpose: purpose}
		if since > 0 {
			opts.From = time.Now().Add(-since)
		}
		events, err := rt.store.EventRepo().QueryLLMRequests(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query LLM requests: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No LLM requests recorded.")
			return nil
		}
		fmt.Fprintf(out, "%-6s  %-19s  %-12s  %-28s  %6s  %6s  %7s  %s\n",
			"SEQ", "TIME", "PURPOSE", "MODEL", "IN", "OUT", "MS", "OK")
		rule(out, 96)
		for _, e := range events {
			fmt.Fprintf(out, "%-6d  %-19s  %-12s  %-28s  %6d  %6d  %7d  %s\n",
				e.Sequence, e.Timestamp.Local().Format(stampLayout), truncate(e.Purpose, 12),
				truncate(e.Model, 28), e.InputTokens, e.OutputTokens, e.LatencyMs, mark(e.Success))
		}
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <seq>",
	Short: "Show one LLM request with its captured bodies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seq, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid sequence %q: %w", args[0], err)
		}

		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		e, err := rt.store.EventRepo().GetLLMRequest(cmd.Context(), seq)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fields := [][2]string{
			{"Sequence", strconv.FormatInt(e.Sequence, 10)},
			{"Time", e.Timestamp.Local().Format(stampLayout)},
			{"Provider", e.Provider},
			{"Model", e.Model},
			{"Purpose", e.Purpose},
			{"Tokens", fmt.Sprintf("%d in, %d out", e.InputTokens, e.OutputTokens)},
			{"Latency", fmt.Sprintf("%dms", e.LatencyMs)},
			{"Success", strconv.FormatBool(e.Success)},
		}
		if e.ErrorMessage != "" {
			fields = append(fields, [2]string{"Error", e.ErrorMessage})
		}
		for _, f := range fields {
			fmt.Fprintf(out, "%-10s %s\n", f[0]+":", f[1])
		}
		section(out, "Request", e.RequestBody)
		section(out, "Response", e.ResponseBody)
		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize token usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		events, err := rt.store.EventRepo().QueryLLMRequests(cmd.Context(), store.QueryOpts{})
		if err != nil {
			return fmt.Errorf("query LLM requests: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No LLM requests recorded.")
			return nil
		}
		printPurposeUsage(out, usageBy(events, func(e store.LLMRequestEvent) string { return e.Purpose }))
		fmt.Fprintln(out)
		printModelCost(out, usageBy(events, func(e store.LLMRequestEvent) string { return e.Model }))
		return nil
	},
}

func printPurposeUsage(out io.Writer, rows []usage) {
	fmt.Fprintln(out, "By purpose")
	fmt.Fprintf(out, "%-16s  %6s  %10s  %10s  %8s\n", "PURPOSE", "CALLS", "IN", "OUT", "AVG MS")
	rule(out, 58)
	var total usage
	for _, u := range rows {
		fmt.Fprintf(out, "%-16s  %6d  %10d  %10d  %8d\n",
			truncate(u.Key, 16), u.Calls, u.InputTokens, u.OutputTokens, u.AvgLatencyMs)
		total.Calls += u.Calls
		total.InputTokens += u.InputTokens
		total.OutputTokens += u.OutputTokens
	}
	rule(out, 58)
	fmt.Fprintf(out, "%-16s  %6d  %10d  %10d\n", "total", total.Calls, total.InputTokens, total.OutputTokens)
}

func printModelCost(out io.Writer, rows []usage) {
	fmt.Fprintln(out, "Estimated cost (USD)")
	fmt.Fprintf(out, "%-32s  %6s  %10s\n", "MODEL", "CALLS", "COST")
	rule(out, 52)
	var sum float64
	var unpriced []string
	for _, u := range rows {
		price := llm.LookupCost(u.Key)
		if price == nil {
			unpriced = append(unpriced, u.Key)
			fmt.Fprintf(out, "%-32s  %6d  %10s\n", truncate(u.Key, 32), u.Calls, "?")
			continue
		}
		c := price.Cost(u.InputTokens, u.OutputTokens)
		sum += c
		fmt.Fprintf(out, "%-32s  %6d  %10s\n", truncate(u.Key, 32), u.Calls, formatCost(c))
	}
	rule(out, 52)
	label := "total"
	if len(unpriced) > 0 {
		label = "total (partial)"
	}
	fmt.Fprintf(out, "%-32s  %6s  %10s\n", label, "", formatCost(sum))
	if len(unpriced) > 0 {
		fmt.Fprintf(out, "\nNo pricing for: %s\n", strings.Join(unpriced, ", "))
	}
}

// usage aggregates token counts for one grouping key.
type usage struct {
	Key          string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// usageBy groups events by key, ordered by key.
func usageBy(events []store.LLMRequestEvent, key func(store.LLMRequestEvent) string) []usage {
	byKey := make(map[string]*usage)
	latency := make(map[string]int64)
	for _, e := range events {
		k := key(e)
		u := byKey[k]
		if u == nil {
			u = &usage{Key: k}
			byKey[k] = u
		}
		u.Calls++
		u.InputTokens += e.InputTokens
		u.OutputTokens += e.OutputTokens
		latency[k] += e.LatencyMs
	}
	out := make([]usage, 0, len(byKey))
	for k, u := range byKey {
		u.AvgLatencyMs = latency[k] / int64(u.Calls)
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func section(out io.Writer, title, body string) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, title)
	rule(out, 60)
	if body == "" {
		body = "(not captured)"
	}
	fmt.Fprintln(out, body)
}

func rule(out io.Writer, n int) {
	fmt.Fprintln(out, strings.Repeat("─", n))
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of requests to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Only show requests with this purpose (e.g. remediation)")
	llmListCmd.Flags().Duration("since", 0, "Only show requests newer than this (e.g. 24h)")

	llmCmd.AddCommand(llmListCmd, llmViewCmd, llmStatsCmd)
}
