/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/josephgoksu/PageWing/internal/attachments"
	"github.com/josephgoksu/PageWing/internal/pipeline"
	"github.com/josephgoksu/PageWing/internal/publish"
	"github.com/josephgoksu/PageWing/internal/ui"
)

var (
	runFile   string
	runRound  int
	runDryRun bool
	runOut    string
	runNotify bool
)

// roundFile is a round described on disk. JSON files parse as YAML.
type roundFile struct {
	Email         string   `yaml:"email" validate:"omitempty,email"`
	Task          string   `yaml:"task" validate:"required,max=100,excludesall=/"`
	Round         int      `yaml:"round" validate:"min=1"`
	Nonce         string   `yaml:"nonce"`
	Brief         string   `yaml:"brief" validate:"required"`
	Checks        []string `yaml:"checks"`
	EvaluationURL string   `yaml:"evaluation_url" validate:"omitempty,url"`
	Attachments   []struct {
		Name string `yaml:"name" validate:"required"`
		URL  string `yaml:"url" validate:"required,datauri"`
	} `yaml:"attachments" validate:"dive"`
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single round from a file",
	Long: `Run one round without the API server.

The round file uses the same fields as the API request body, minus the
secret, in JSON or YAML.

With --dry-run nothing is pushed: the revision is kept in memory and, with
--out, written to a local directory for inspection.

Examples:
  pagewing run --file round1.json
  pagewing run --file round2.yaml --round 2 --notify
  pagewing run --file round1.json --dry-run --out ./site`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "round file (JSON or YAML)")
	runCmd.Flags().IntVarP(&runRound, "round", "r", 0, "override the round number in the file")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "generate and assemble without publishing")
	runCmd.Flags().StringVarP(&runOut, "out", "o", "", "with --dry-run, write the site files to this directory")
	runCmd.Flags().BoolVar(&runNotify, "notify", false, "post the result to evaluation_url")
	_ = runCmd.MarkFlagRequired("file")
}

func runRun(cmd *cobra.Command, args []string) error {
	fs := afero.NewOsFs()
	req, err := loadRoundFile(fs, runFile)
	if err != nil {
		return err
	}
	if runRound > 0 {
		req.Round = runRound
	}
	if runOut != "" && !runDryRun {
		return errors.New("--out requires --dry-run")
	}

	cfg := appConfig
	log := appLog.Named("run")
	if !runDryRun {
		if cfg.GitHub.Token == "" || cfg.GitHub.Owner == "" {
			return errors.New("publishing needs github.token and github.owner (or use --dry-run)")
		}
	}

	st, err := buildStack(cmd.Context(), cfg, log, stackOptions{dryRun: runDryRun, notify: runNotify})
	if err != nil {
		return err
	}
	defer st.Close()

	st.locks.Lock(req.Task)
	res, err := st.runner.Run(cmd.Context(), req)
	st.locks.Unlock(req.Task)
	if err != nil {
		if isJSON() {
			_ = printJSON(cmd.ErrOrStderr(), map[string]string{"error": err.Error(), "kind": string(pipeline.Classify(err))})
		} else {
			cmd.PrintErrln(ui.RenderError(pipeline.Classify(err), err))
		}
		return reportedError{err}
	}

	if runDryRun && runOut != "" {
		mem, ok := st.store.(*publish.MemoryStore)
		if ok {
			if err := writeSite(fs, runOut, mem, req.Task); err != nil {
				return err
			}
			log.Info("site written", zap.String("dir", runOut))
		}
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), res)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), ui.RenderResult(res))
	return err
}

func loadRoundFile(fs afero.Fs, path string) (pipeline.Request, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return pipeline.Request{}, fmt.Errorf("read round file: %w", err)
	}
	var rf roundFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return pipeline.Request{}, fmt.Errorf("parse round file %s: %w", path, err)
	}
	if rf.Round == 0 {
		rf.Round = 1
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&rf); err != nil {
		return pipeline.Request{}, fmt.Errorf("invalid round file %s: %w", path, err)
	}

	atts := make([]attachments.Attachment, len(rf.Attachments))
	for i, a := range rf.Attachments {
		atts[i] = attachments.Attachment{Name: a.Name, URL: a.URL}
	}
	return pipeline.Request{
		Email:         rf.Email,
		Task:          rf.Task,
		Round:         rf.Round,
		Nonce:         rf.Nonce,
		Brief:         rf.Brief,
		Checks:        rf.Checks,
		EvaluationURL: rf.EvaluationURL,
		Attachments:   atts,
	}, nil
}

// writeSite copies the latest in-memory revision of task under dir.
func writeSite(fs afero.Fs, dir string, mem *publish.MemoryStore, task string) error {
	revs := mem.Revisions(task)
	if len(revs) == 0 {
		return fmt.Errorf("no revision recorded for %s", task)
	}
	files := revs[len(revs)-1].Files
	for _, p := range files.Paths() {
		if !filepath.IsLocal(filepath.FromSlash(p)) {
			return fmt.Errorf("refusing to write %q outside %s", p, dir)
		}
		target := filepath.Join(dir, filepath.FromSlash(p))
		if err := fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Dir(target), err)
		}
		if err := afero.WriteFile(fs, target, []byte(files[p]), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
	}
	return nil
}
