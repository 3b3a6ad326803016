package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3studio/internal/audit"
	"github.com/Mohsinsiddi/w3studio/internal/settings"
	"github.com/Mohsinsiddi/w3studio/internal/studio"
	"github.com/Mohsinsiddi/w3studio/internal/ui"
)

const deepAuditTimeout = 2 * time.Minute

var auditDeep bool

var auditCmd = &cobra.Command{
	Use:   "audit [address|ens]",
	Short: "Show the risk report of a contract",
	Long: `Print the pattern-based risk report computed at load time.

With --deep, the verified source is also sent to an OpenAI-compatible
service for review. Store its key with: w3studio config set-key ai <key>

Examples:
  w3studio audit 0xdAC17F958D2ee523a2206206994597C13D831ec7
  w3studio audit --deep`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		req, err := a.target(args)
		if err != nil {
			return err
		}
		sess, err := a.load(cmd.Context(), req)
		if err != nil {
			return err
		}

		var deep *audit.DeepReport
		if auditDeep {
			deep, err = runDeepAudit(cmd.Context(), a.settings, sess)
			if err != nil {
				return err
			}
		}

		if jsonOut {
			return printJSON(struct {
				Report audit.Report      `json:"report"`
				Deep   *audit.DeepReport `json:"deep,omitempty"`
			}{sess.Audit, deep})
		}

		fmt.Println(ui.AuditReport(sess.Audit))
		if deep != nil {
			fmt.Println(ui.DeepAuditReport(deep))
		}
		return nil
	},
}

// runDeepAudit sends the session's verified source to the configured
// reviewer.
func runDeepAudit(ctx context.Context, s *settings.Settings, sess *studio.Session) (*audit.DeepReport, error) {
	key := s.String(settings.KeyAIAPIKey)
	if key == "" {
		return nil, fmt.Errorf("%w; run `w3studio config set-key ai <key>`", audit.ErrNoAuditKey)
	}
	if sess.Descriptor.SourceCode == "" {
		return nil, errors.New("deep audit needs verified source code, and none was published for this contract")
	}

	ctx, cancel := context.WithTimeout(ctx, deepAuditTimeout)
	defer cancel()

	auditor := audit.NewDeepAuditor(cfg.AI.Endpoint, key, cfg.AI.Model)
	var report *audit.DeepReport
	run := func() error {
		var err error
		report, err = auditor.Audit(ctx, sess.Descriptor.Name, sess.Descriptor.SourceCode, sess.Descriptor.ABI)
		return err
	}
	if jsonOut {
		return report, run()
	}
	err := ui.Spin("Reviewing source…", run)
	return report, err
}

func init() {
	auditCmd.Flags().BoolVar(&auditDeep, "deep", false, "also send the verified source to an AI reviewer")
}
