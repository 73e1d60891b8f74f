package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/expr-lang/expr"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/KanoComputing/aws-tools/internal/audit"
	"github.com/KanoComputing/aws-tools/internal/cliconfig"
	"github.com/KanoComputing/aws-tools/internal/ddmin"
	"github.com/KanoComputing/aws-tools/internal/deploy"
	"github.com/KanoComputing/aws-tools/internal/logging"
	"github.com/KanoComputing/aws-tools/internal/oracle"
	"github.com/KanoComputing/aws-tools/internal/policy"
	"github.com/KanoComputing/aws-tools/internal/runner"
)

var (
	minimizeTest      string
	minimizeTestArgs  []string
	minimizeInput     string
	minimizePolicyARN string
	minimizeOutput    string
	minimizeSettle    time.Duration
	minimizePin       string
	minimizeTrialLog  string
)

var minimizeCmd = &cobra.Command{
	Use:   "minimize",
	Short: "Reduce an IAM policy to a locally-minimal permission set",
	Long: `Starting from a maximal policy known to be sufficient, minimize repeatedly
	deploys candidate subsets to the target managed policy and runs the given
	test executable against each. Exit code 0 means the candidate still grants
	enough; the search converges on a subset from which no single action or
	resource can be removed without the test failing.

Every trial mutates the target policy's default version, so never point
two concurrent runs at the same policy ARN. The run is slow on purpose:
after each deploy the tool waits for IAM propagation (--settle) before
running the test.`,
	Example: `  # minimize max-policy.json against ./check.sh, write the result
  aws-tools minimize --test ./check.sh -f max-policy.json \
      --policy-arn arn:aws:iam::123456789012:policy/candidate -o minimal.json

  # keep all KMS parts no matter what the test says
  aws-tools minimize --test ./check.sh -f max.json -o min.json \
      --policy-arn arn:... --pin 'hasPrefix(Value, "kms:")'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// all input validation happens before the first AWS call
		doc, err := policy.Load(minimizeInput)
		if err != nil {
			return err
		}
		parts, _, err := policy.Encode(doc)
		if err != nil {
			return err
		}
		if err := policy.CheckWritable(minimizeOutput); err != nil {
			return err
		}

		pinned, reducible, err := splitPinned(parts, minimizePin)
		if err != nil {
			return err
		}
		if len(pinned) > 0 {
			log.Info().Msgf("%d of %d parts pinned, %d subject to reduction",
				len(pinned), len(parts), len(reducible))
		}

		arn, settle, err := resolveTargetDefaults(cmd)
		if err != nil {
			return err
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return fmt.Errorf("loading AWS configuration: %w", err)
		}

		deployer := deploy.NewIAMDeployer(iam.NewFromConfig(awsCfg), arn, settle)

		oracleRunner := runner.New(minimizeTest, minimizeTestArgs...)
		oracleRunner.Log = logging.NewZLogger(log.Logger)

		auditor, err := buildAuditor()
		if err != nil {
			return err
		}
		defer func() {
			_ = auditor.Close()
		}()
		runID := audit.NewRunID()

		adapter := oracle.New(doc, deployer, oracleRunner, oracle.WithPinned(pinned))

		// the maximal policy itself must pass, otherwise there is
		// nothing the search could converge to
		log.Info().Int("parts", len(parts)).Msg("verifying the maximal policy passes the test oracle")
		verdict, err := adapter.Evaluate(ctx, reducible)
		if err != nil {
			return err
		}
		if verdict != ddmin.Sufficient {
			log.Error().Msgf("%s the test oracle fails even with every part deployed", redCross)
			return fmt.Errorf("the maximal policy is not sufficient for the test oracle, nothing to minimize")
		}

		trials := 0
		minimal, err := ddmin.Minimize(ctx, reducible, adapter,
			ddmin.WithObserver(func(t ddmin.Trial) {
				trials++
				if logErr := auditor.Log(audit.FromTrial(runID, t)); logErr != nil {
					log.Warn().Err(logErr).Msg("failed to write trial log entry")
				}
			}))
		if err != nil {
			return err
		}

		final := policy.NewPartSet(minimal...).Union(pinned)
		result := policy.Reconstruct(doc, final)
		if len(result.Statements) == 0 {
			// cannot happen after a sufficient preflight, checked anyway
			return fmt.Errorf("minimal part set reconstructs to an empty document, refusing to write it")
		}
		if err := policy.Save(minimizeOutput, result); err != nil {
			return err
		}

		log.Info().Msgf("%s wrote minimized policy to %s", greenCheck, minimizeOutput)
		printMinimizeSummary(doc, result, len(parts), len(final), trials)
		return nil
	},
}

// splitPinned partitions the parts into the pinned set (matching the
// expression, always kept) and the reducible sequence the search runs
// over.
func splitPinned(parts []policy.Part, pinExpr string) (policy.PartSet, []string, error) {
	reducible := make([]string, 0, len(parts))
	pinned := policy.PartSet{}

	if pinExpr == "" {
		for _, p := range parts {
			reducible = append(reducible, p.ID())
		}
		return pinned, reducible, nil
	}

	program, err := expr.Compile(pinExpr, expr.Env(partEnv{}), expr.AsBool())
	if err != nil {
		return nil, nil, fmt.Errorf("compiling pin expression: %w", err)
	}

	for _, p := range parts {
		out, err := expr.Run(program, partEnv{
			Sid:   p.Sid,
			Kind:  string(p.Kind),
			Value: p.Value,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("evaluating pin expression for part '%s': %w", p.ID(), err)
		}
		if out.(bool) {
			pinned.Add(p.ID())
		} else {
			reducible = append(reducible, p.ID())
		}
	}
	return pinned, reducible, nil
}

// partEnv is the environment the pin expression runs against.
type partEnv struct {
	Sid   string
	Kind  string
	Value string
}

// resolveTargetDefaults applies stored tool-config defaults for values
// not given on the command line.
func resolveTargetDefaults(cmd *cobra.Command) (arn string, settle time.Duration, err error) {
	arn = minimizePolicyARN
	settle = minimizeSettle

	toolCfg, cfgErr := cliconfig.Load()
	if cfgErr != nil {
		if !errors.Is(cfgErr, cliconfig.ErrNotFound) {
			log.Warn().Err(cfgErr).Msg("ignoring unreadable tool config")
		}
		toolCfg = nil
	}

	if toolCfg != nil {
		if arn == "" {
			arn = toolCfg.PolicyARN
		}
		if !cmd.Flags().Changed("settle") {
			d, err := toolCfg.SettleDuration()
			if err != nil {
				return "", 0, err
			}
			if d > 0 {
				settle = d
			}
		}
	}

	if arn == "" {
		return "", 0, fmt.Errorf("target policy ARN not specified (use --policy-arn or store a default via the tool config)")
	}
	return arn, settle, nil
}

func buildAuditor() (audit.Auditor, error) {
	if minimizeTrialLog == "" {
		return audit.NewNoopAuditor(), nil
	}
	return audit.NewFileAuditor(minimizeTrialLog)
}

func printMinimizeSummary(before, after *policy.Document, partsBefore, partsAfter, trials int) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"", "Before", "After"})
	t.AppendRow(table.Row{"Statements", len(before.Statements), len(after.Statements)})
	t.AppendRow(table.Row{"Parts", partsBefore, partsAfter})
	t.AppendFooter(table.Row{"Oracle trials", "", trials})
	applyTableFormat(t)
	t.Render()
}

func init() {
	rootCmd.AddCommand(minimizeCmd)

	minimizeCmd.Flags().StringVarP(&minimizeTest, "test", "t", "", "Test oracle executable (exit 0 = policy sufficient)")
	minimizeCmd.Flags().StringArrayVar(&minimizeTestArgs, "test-arg", nil, "Argument passed to the test oracle (repeatable)")
	minimizeCmd.Flags().StringVarP(&minimizeInput, "input", "f", "", "Maximal policy document (JSON)")
	minimizeCmd.Flags().StringVarP(&minimizeOutput, "output", "o", "", "Output path for the minimized policy document")
	minimizeCmd.Flags().StringVarP(&minimizePolicyARN, "policy-arn", "p", "", "ARN of the managed policy used for candidate deployments")
	minimizeCmd.Flags().DurationVar(&minimizeSettle, "settle", 10*time.Second, "Wait after each deploy before running the test (IAM propagation)")
	minimizeCmd.Flags().StringVar(&minimizePin, "pin", "", "Expression over {Sid, Kind, Value}; matching parts are always kept")
	minimizeCmd.Flags().StringVar(&minimizeTrialLog, "trial-log", "", "Append every trial (subset + verdict) to this JSONL file")

	_ = minimizeCmd.MarkFlagRequired("test")
	_ = minimizeCmd.MarkFlagRequired("input")
	_ = minimizeCmd.MarkFlagRequired("output")
}
