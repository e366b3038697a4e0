package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"ottscout/internal/adapters/notify"
	"ottscout/internal/core/catalog"
	"ottscout/internal/modkit"
	perr "ottscout/internal/platform/errors"
	"ottscout/internal/platform/logger"
	"ottscout/internal/report"
	dom "ottscout/internal/services/releases/domain"
	releases "ottscout/internal/services/releases/module"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
)

const lockName = ".ottscout.lock"

type runFlags struct {
	outDir string
	noMail bool
	rows   bool
}

func newRunCommand(c *commandContext) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, enrich and report new releases once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if f.outDir == "" {
				f.outDir = c.env().MayString("OUT_DIR", ".")
			}

			unlock, err := lockDir(f.outDir)
			if err != nil {
				return err
			}
			defer unlock()

			m, _, closeAll, err := c.module(ctx)
			if err != nil {
				return err
			}
			defer closeAll()

			env := c.env()
			p := pipeline{
				runner: modkit.MustPortsOf[releases.Ports](m).Runner,
				policy: m.Policy(),
				outDir: f.outDir,
				out:    cmd.OutOrStdout(),
				rows:   f.rows,
				mail: report.MailOptions{
					TopRegion: catalog.ParseRegion(env.MayString("MAIL_TOP_REGION", "US")),
					TopN:      env.MayInt("MAIL_TOP_N", 5),
					Highlight: env.MayString("MAIL_HIGHLIGHT", "Tamil"),
				},
				now: time.Now,
			}
			if !f.noMail {
				p.notifier = notify.New(notify.FromConfig(c.cfg))
			}
			_, err = p.run(ctx)
			return err
		},
	}

	cmd.Flags().StringVar(&f.outDir, "out", "", "Directory for the CSV and XLSX reports (overrides OTTSCOUT_OUT_DIR)")
	cmd.Flags().BoolVar(&f.noMail, "no-mail", false, "Skip the mail even when SMTP is configured")
	cmd.Flags().BoolVar(&f.rows, "rows", false, "Print every row after the summary")
	return cmd
}

// lockDir keeps two runs from writing the same report directory
func lockDir(dir string) (func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "create %s", dir)
	}
	lock := flock.New(filepath.Join(dir, lockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "lock %s", dir)
	}
	if !ok {
		return nil, perr.Unavailablef("another run is writing to %s", dir)
	}
	return func() { _ = lock.Unlock() }, nil
}

// pipeline is one CLI run: the pipeline, the report files, the console summary and the mail
type pipeline struct {
	runner   dom.RunnerPort
	policy   catalog.Policy
	outDir   string
	out      io.Writer
	rows     bool
	notifier notify.Notifier
	mail     report.MailOptions
	now      func() time.Time
}

func (p pipeline) run(ctx context.Context) (report.Files, error) {
	rep, err := p.runner.Run(ctx)
	if err != nil {
		return report.Files{}, err
	}
	ctx = logger.WithRun(ctx, rep.RunID.String())
	log := logger.C(ctx)

	day := p.now().UTC()
	files, err := report.WriteFiles(p.outDir, day, rep.Rows)
	if err != nil {
		return report.Files{}, err
	}
	log.Info().Str("csv", files.CSV).Str("xlsx", files.XLSX).Int("rows", len(rep.Rows)).Msg("reports written")

	if err := report.PrintSummary(p.out, rep.Rows, p.policy); err != nil {
		return files, err
	}
	if p.rows && len(rep.Rows) > 0 {
		if _, err := io.WriteString(p.out, report.RenderRows(rep.Rows)+"\n"); err != nil {
			return files, err
		}
	}

	if p.notifier == nil {
		return files, nil
	}
	opt := p.mail
	opt.Day = day
	html, err := report.MailHTML(rep.Rows, p.policy, opt)
	if err != nil {
		return files, err
	}
	msg, err := notify.Report(day, html, files.XLSX)
	if err != nil {
		return files, err
	}
	// the reports are already on disk
	if err := p.notifier.Send(ctx, msg); err != nil {
		log.Error().Err(err).Msg("mail failed")
	}
	return files, nil
}
