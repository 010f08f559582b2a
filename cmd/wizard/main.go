package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/secret-keeper/backend/internal/config"
	"github.com/zhouzirui/secret-keeper/backend/internal/model/persona"
	"github.com/zhouzirui/secret-keeper/backend/internal/pkg/logger"
	"github.com/zhouzirui/secret-keeper/backend/internal/service/ai"
	"github.com/zhouzirui/secret-keeper/backend/internal/service/wizard"
)

var (
	providerFlag string
	modelFlag    string
	logFileFlag  string
	verboseFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Talk to the Secret Keeper in your terminal",
	Long: `Opens an interactive chat with the secret-keeping wizard.

The wizard guards a password and reveals it only when you meet its
condition. Credentials are read from the environment or a .env file.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&providerFlag, "provider", "", "model provider: gemini, genai or ark (overrides WIZARD_PROVIDER)")
	rootCmd.Flags().StringVar(&modelFlag, "model", "", "model name (overrides WIZARD_MODEL)")
	rootCmd.Flags().StringVar(&logFileFlag, "log-file", "", "write logs to this file (overrides LOG_FILE)")
	rootCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "debug-level logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if providerFlag != "" {
		cfg.AI.Provider = providerFlag
	}
	if modelFlag != "" {
		cfg.AI.Model = modelFlag
	}
	logFile := cfg.Log.File
	if logFileFlag != "" {
		logFile = logFileFlag
	}

	log := logger.NewFileOnly(logFile, verboseFlag)
	defer func() { _ = log.Sync() }()

	provider, err := ai.NewProvider(cfg.AI)
	if err != nil {
		return err
	}

	p := cfg.AI.Apply(persona.Wizard())
	sess := wizard.New(p, wizard.WithLogger(log))
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("close session", zap.Error(err))
		}
	}()

	program := tea.NewProgram(newModel(cmd.Context(), sess, provider, cfg.AI.Credential()), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run terminal UI: %w", err)
	}
	return nil
}
