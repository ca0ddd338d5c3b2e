package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/holon-run/conventional-review/pkg/actionctx"
	"github.com/holon-run/conventional-review/pkg/config"
	"github.com/holon-run/conventional-review/pkg/github"
	"github.com/holon-run/conventional-review/pkg/llm"
	"github.com/holon-run/conventional-review/pkg/log"
	"github.com/holon-run/conventional-review/pkg/prompt"
	"github.com/holon-run/conventional-review/pkg/publisher"
	"github.com/holon-run/conventional-review/pkg/runner"
)

// apiURLEnv is set by GitHub Actions to the REST endpoint of the host
const apiURLEnv = "GITHUB_API_URL"

var (
	runPullRequest string
	runOwner       string
	runRepo        string
	runHeadSHA     string
	runDiffURL     string
)

// inputFlags are the flags that feed config.Resolver, keyed by input name
var inputFlags = []string{
	config.InputModel,
	config.InputOpenAIAPIKey,
	config.InputOpenAIBaseURL,
	config.InputGitHubToken,
	config.InputExcludePaths,
	config.InputConventionsFile,
	config.InputPromptTemplate,
	config.InputMaxFiles,
	config.InputDryRun,
	config.InputOutputDir,
	config.InputLogLevel,
	config.InputLogFormat,
}

var runCmd = &cobra.Command{
	Use:   "run [ref]",
	Short: "Review a pull request and publish the comments",
	Long: `Review a pull request and publish the comments as one GitHub review.

Inside GitHub Actions the pull request is read from the event payload at
GITHUB_EVENT_PATH. Every input can be given as a flag, as an INPUT_<NAME>
environment variable, or in .conventional-review/config.yaml, in that order
of precedence.

Supported Reference Formats:
  - https://github.com/<owner>/<repo>/pull/<n>
  - <owner>/<repo>#<n>
  - #<n> or <n> (when --repo <owner>/<repo> or GITHUB_REPOSITORY is set)

Examples:
  # In a pull_request workflow
  conventional-review run

  # Locally, without posting anything
  conventional-review run holon-run/conventional-review#12 --dry-run

  # Only the first changed file, skipping generated code
  conventional-review run 12 --repo owner/repo --max-files 1 --exclude-paths "**/*.pb.go"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			runPullRequest = args[0]
		}
		return runReview(cmd)
	},
}

func runReview(cmd *cobra.Command) error {
	ctx := cmd.Context()

	project, err := config.LoadFromCurrentDir()
	if err != nil {
		return err
	}

	flags := map[string]string{}
	for _, name := range inputFlags {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			flags[name] = f.Value.String()
		}
	}

	inputs, err := config.Resolver{Flags: flags, Getenv: os.Getenv, Project: project}.Resolve()
	if err != nil {
		return err
	}

	if err := log.Init(log.Options{Level: inputs.LogLevel, Format: inputs.LogFormat}); err != nil {
		return &config.ConfigurationError{Input: config.InputLogLevel, Err: err}
	}
	if project.Path() != "" {
		log.Debug("loaded project config", "path", project.Path())
	}
	for _, name := range inputFlags {
		log.Debug("input resolved", "input", name, "source", inputs.Sources[name])
	}

	actx, err := actionctx.Load(os.Getenv, actionctx.Overrides{
		PullRequest: runPullRequest,
		Owner:       runOwner,
		Repo:        runRepo,
		HeadSHA:     runHeadSHA,
		DiffURL:     runDiffURL,
	})
	if err != nil {
		return err
	}

	tmpl, err := loadTemplate(inputs.PromptTemplate)
	if err != nil {
		return &config.ConfigurationError{Input: config.InputPromptTemplate, Err: err}
	}
	conventions, err := prompt.LoadConventions(inputs.ConventionsFile)
	if err != nil {
		return &config.ConfigurationError{Input: config.InputConventionsFile, Err: err}
	}

	var ghOpts []github.ClientOption
	if apiURL := strings.TrimSpace(os.Getenv(apiURLEnv)); apiURL != "" {
		ghOpts = append(ghOpts, github.WithBaseURL(apiURL))
	}
	gh := github.NewClient(inputs.GitHubToken, ghOpts...)
	requester := llm.NewOpenAIRequester(inputs.OpenAIAPIKey, llm.WithBaseURL(inputs.OpenAIBaseURL))

	log.Info("starting review",
		"pr", actx.PullRequest.String(),
		"event", actx.EventName,
		"model", inputs.Model,
		"template", tmpl.Name(),
		"dry_run", inputs.DryRun,
	)

	result, err := runner.New(gh, tmpl, requester, publisher.New(gh)).Run(ctx, runner.Config{
		PullRequest:  actx.PullRequest,
		DiffURL:      actx.DiffURL,
		Model:        inputs.Model,
		ExcludePaths: inputs.ExcludePaths,
		Conventions:  conventions,
		MaxFiles:     inputs.MaxFiles,
		DryRun:       inputs.DryRun,
		OutputDir:    inputs.OutputDir,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch result.Status {
	case publisher.StatusPublished:
		fmt.Fprintf(out, "Published review with %d comment(s): %s\n", len(result.Comments), result.URL)
	case publisher.StatusDryRun:
		fmt.Fprintf(out, "Dry run: %d comment(s) not published\n", len(result.Comments))
		for _, c := range result.Comments {
			fmt.Fprintf(out, "  %s %s\n", c.String(), c.Body)
		}
	default:
		fmt.Fprintf(out, "No comments to publish (%d file(s) reviewed)\n", result.Files)
	}
	return nil
}

func loadTemplate(path string) (*prompt.Template, error) {
	if path == "" {
		return prompt.Default()
	}
	return prompt.Load(path)
}

func init() {
	f := runCmd.Flags()
	f.String(config.InputModel, "", "Model identifier (default "+config.DefaultModel+")")
	f.String(config.InputOpenAIAPIKey, "", "OpenAI API key (or OPENAI_API_KEY)")
	f.String(config.InputOpenAIBaseURL, "", "OpenAI-compatible API base URL (or OPENAI_BASE_URL)")
	f.String(config.InputGitHubToken, "", "GitHub token (or GITHUB_TOKEN)")
	f.String(config.InputExcludePaths, "", "Comma-separated globs of paths to skip")
	f.String(config.InputConventionsFile, "", "File with the project conventions embedded into the prompt")
	f.String(config.InputPromptTemplate, "", "Prompt template file overriding the built-in one")
	f.Int(config.InputMaxFiles, 0, "Maximum number of files sent to the model (0 means all)")
	f.Bool(config.InputDryRun, false, "Review without publishing")
	f.String(config.InputOutputDir, "", "Directory to write "+publisher.ResultFile+" to")
	f.String(config.InputLogLevel, "", "Log level: debug, info, warn, error")
	f.String(config.InputLogFormat, "", "Log format: console, text, json")

	f.StringVar(&runPullRequest, "pr", "", "Pull request reference (overrides the event payload)")
	f.StringVar(&runOwner, "owner", "", "Repository owner")
	f.StringVar(&runRepo, "repo", "", "Repository name or owner/repo")
	f.StringVar(&runHeadSHA, "head-sha", "", "Commit the review is pinned to")
	f.StringVar(&runDiffURL, "diff-url", "", "URL of the unified diff (overrides the event payload)")

	rootCmd.AddCommand(runCmd)
}
