package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "conventional-review",
	Short: "Review pull request diffs against project conventions with an LLM",
	Long: `conventional-review fetches the diff of a pull request, asks a chat model to
review each changed file against the project's conventions, and posts every
surviving line comment to GitHub as a single review.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		reportError(err)
		os.Exit(1)
	}
}

// reportError prints err to stderr and, inside GitHub Actions, as an error
// annotation on stdout.
func reportError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if os.Getenv("GITHUB_ACTIONS") == "true" {
		fmt.Fprintf(os.Stdout, "::error::%s\n", escapeWorkflowData(err.Error()))
	}
}

// escapeWorkflowData encodes a workflow command message.
func escapeWorkflowData(s string) string {
	r := strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")
	return r.Replace(s)
}
