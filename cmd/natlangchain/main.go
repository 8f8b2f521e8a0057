// Command natlangchain is the operator-facing CLI for a natural-language
// ledger node: submitting entries, mining blocks, and inspecting chain
// state. Command wiring follows the cobra+viper+zap pattern the teacher
// uses for its AI module CLI, adapted to the ledger's own config surface.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kase1111-hash/NatLangChain-sub000/core"
	appconfig "github.com/kase1111-hash/NatLangChain-sub000/pkg/config"
)

var zapLog *zap.Logger

func main() {
	var err error
	zapLog, err = zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLog.Sync()

	root := &cobra.Command{Use: "natlangchain"}
	root.PersistentFlags().String("env", "", "configuration environment to merge over default.yaml")
	root.PersistentFlags().String("author", os.Getenv("NATLANGCHAIN_AUTHOR"), "author identity for submit")

	root.AddCommand(submitCmd())
	root.AddCommand(mineCmd())
	root.AddCommand(chainCmd())
	root.AddCommand(assetsCmd())
	root.AddCommand(statusCmd())

	if err := root.Execute(); err != nil {
		zapLog.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}

// openChain loads configuration for env and opens a ChainState against
// the configured storage backend. Callers are responsible for closing it.
func openChain(ctx context.Context, env string) (*core.ChainState, error) {
	cfg, err := appconfig.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	coreCfg := toCoreConfig(cfg)
	backend, err := openStorageBackend(cfg)
	if err != nil {
		return nil, fmt.Errorf("open storage backend: %w", err)
	}

	log := logrus.StandardLogger()
	if lvl, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		log.SetLevel(lvl)
	}

	return core.NewChainState(ctx, coreCfg, backend, nil, nil, nil, log)
}

func toCoreConfig(c *appconfig.Config) core.Config {
	cfg := core.DefaultConfig()
	cfg.MaxContentBytes = c.Ledger.MaxContentBytes
	cfg.MaxIntentBytes = c.Ledger.MaxIntentBytes
	cfg.MaxAuthorBytes = c.Ledger.MaxAuthorBytes
	cfg.MaxPending = c.Ledger.MaxPending
	cfg.MaxBlockEntries = c.Ledger.MaxBlockEntries
	cfg.Difficulty = c.Ledger.Difficulty
	cfg.GenesisText = c.Ledger.GenesisText
	if c.Ledger.ValidationPolicy == string(core.ValidationOptional) {
		cfg.ValidationPolicy = core.ValidationOptional
	} else {
		cfg.ValidationPolicy = core.ValidationRequired
	}

	cfg.RateLimitRequests = c.RateLimit.Requests
	cfg.RateLimitWindow = time.Duration(c.RateLimit.WindowSeconds) * time.Second
	cfg.TimestampPastWindow = time.Duration(c.Timestamp.PastWindowSeconds) * time.Second
	cfg.TimestampFutureWindow = time.Duration(c.Timestamp.FutureWindowSeconds) * time.Second
	cfg.FingerprintTTL = time.Duration(c.Fingerprint.TTLSeconds) * time.Second

	cfg.LLMTimeout = time.Duration(c.Validator.LLMTimeoutSeconds) * time.Second
	cfg.RetryMax = c.Validator.RetryMax
	cfg.RetryBase = time.Duration(c.Validator.RetryBaseSeconds * float64(time.Second))
	cfg.RetryCap = time.Duration(c.Validator.RetryCapSeconds * float64(time.Second))
	cfg.RetryJitterFraction = c.Validator.RetryJitterFraction
	if len(c.Validator.TransferKeywords) > 0 {
		cfg.TransferKeywords = c.Validator.TransferKeywords
	}

	cfg.AdmissionTimeout = time.Duration(c.Timeouts.AdmissionSeconds) * time.Second
	cfg.MineTimeout = time.Duration(c.Timeouts.MineSeconds) * time.Second
	if c.Mining.CancellationCheckInterval > 0 {
		cfg.MineCancelCheckInterval = uint64(c.Mining.CancellationCheckInterval)
	}
	return cfg
}

func openStorageBackend(c *appconfig.Config) (core.StorageBackend, error) {
	switch c.Storage.Backend {
	case "", "memory":
		return core.NewMemoryStorage(), nil
	case "file":
		path := c.Storage.Path
		if path == "" {
			path = "natlangchain-snapshot.json"
		}
		return core.NewFileStorage(path)
	case "sql":
		path := c.Storage.Path
		if path == "" {
			path = "natlangchain.sqlite"
		}
		return core.NewSQLStorage(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
}

func submitCmd() *cobra.Command {
	var intent string
	cmd := &cobra.Command{
		Use:   "submit [content]",
		Short: "submit a natural-language entry for admission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, _ := cmd.Flags().GetString("env")
			author, _ := cmd.Flags().GetString("author")
			if author == "" {
				return fmt.Errorf("--author is required")
			}

			cs, err := openChain(cmd.Context(), env)
			if err != nil {
				return err
			}
			defer cs.Close()

			entry := core.Entry{
				Content:   args[0],
				Author:    author,
				Intent:    intent,
				Timestamp: time.Now().UTC(),
			}
			if err := cs.Submit(cmd.Context(), entry); err != nil {
				if r, ok := core.AsRejection(err); ok {
					zapLog.Warn("entry rejected", zap.String("kind", string(r.Kind)), zap.String("detail", r.Detail))
					return fmt.Errorf("rejected: %s", r.Kind)
				}
				return err
			}
			fmt.Println("entry admitted to pending pool")
			return nil
		},
	}
	cmd.Flags().StringVar(&intent, "intent", "", "declared intent of the entry")
	return cmd
}

func mineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "seal the pending pool into a new block",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, _ := cmd.Flags().GetString("env")
			cs, err := openChain(cmd.Context(), env)
			if err != nil {
				return err
			}
			defer cs.Close()

			block, err := cs.Mine(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("mined block %d with %d entries (hash %s)\n", block.Index, len(block.Entries), block.Hash)
			return nil
		},
	}
}

func chainCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "chain"}

	show := &cobra.Command{
		Use:   "show",
		Short: "render the sealed chain as prose",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, _ := cmd.Flags().GetString("env")
			cs, err := openChain(cmd.Context(), env)
			if err != nil {
				return err
			}
			defer cs.Close()
			fmt.Print(cs.ReadNarrative())
			return nil
		},
	}

	verify := &cobra.Command{
		Use:   "verify",
		Short: "rehash and re-link every sealed block",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, _ := cmd.Flags().GetString("env")
			cs, err := openChain(cmd.Context(), env)
			if err != nil {
				return err
			}
			defer cs.Close()
			if err := cs.ValidateIntegrity(); err != nil {
				return err
			}
			fmt.Println("chain is intact")
			return nil
		},
	}

	cmd.AddCommand(show, verify)
	return cmd
}

func assetsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "assets"}
	show := &cobra.Command{
		Use:   "show [author]",
		Short: "list sealed entries by author",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, _ := cmd.Flags().GetString("env")
			cs, err := openChain(cmd.Context(), env)
			if err != nil {
				return err
			}
			defer cs.Close()
			for _, hit := range cs.FindEntriesByAuthor(args[0]) {
				fmt.Printf("%s: %s\n", hit.Location.String(), hit.Entry.Content)
			}
			return nil
		},
	}
	cmd.AddCommand(show)
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "report ledger height, pending count, and validator health",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, _ := cmd.Flags().GetString("env")
			cs, err := openChain(cmd.Context(), env)
			if err != nil {
				return err
			}
			defer cs.Close()
			st := cs.Status()
			fmt.Printf("height=%d pending=%d difficulty=%d validator_degraded=%v request_id=%s\n",
				st.Height, st.PendingCount, st.Difficulty, st.ValidatorDegraded, uuid.NewString())
			return nil
		},
	}
}

// ensure viper's env-var prefix is set even for commands that never call
// openChain directly (e.g. --help), matching the teacher's eager-init
// style in its AI module CLI wiring.
func init() {
	viper.SetEnvPrefix("NATLANGCHAIN")
}
