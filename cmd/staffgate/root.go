package main

import (
	"log/slog"

	"github.com/aretw0/staffgate/internal/config"
	"github.com/aretw0/staffgate/internal/logging"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "staffgate",
		Short: "Staffgate admits new staff members through a chat bot",
		Long: `Staffgate runs a two-sided membership procedure over chat: an applicant
asks for a role and shares a contact, the superuser reviews the request
and the accepted member is stored in the staff directory.

Settings come from STAFFGATE_* environment variables. The flags below
override them.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.Int64("superuser", 0, "Identity of the superuser (STAFFGATE_SUPERUSER_ID)")
	flags.String("store", "", "Conversation store: memory, file, redis or bolt (STAFFGATE_STORE)")
	flags.String("store-path", "", "Directory or file of the file and bolt stores (STAFFGATE_STORE_PATH)")
	flags.String("db", "", "SQLite staff directory (STAFFGATE_DB_PATH)")
	flags.String("documents", "", "Directory of candidate documents (STAFFGATE_DOCUMENTS_DIR)")
	flags.String("messages", "", "YAML message catalog overriding the built-in texts (STAFFGATE_MESSAGES_PATH)")
	flags.String("log-level", "", "debug, info, warn or error (STAFFGATE_LOG_LEVEL)")

	root.AddCommand(
		newServeCmd(),
		newChatCmd(),
		newMCPCmd(),
		newStaffCmd(),
		newGraphCmd(),
		newValidateCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the environment and applies the flags that were set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("superuser") {
		cfg.SuperuserID, _ = flags.GetInt64("superuser")
	}
	overrides := map[string]*string{
		"store":      &cfg.Store,
		"store-path": &cfg.StorePath,
		"db":         &cfg.DBPath,
		"documents":  &cfg.DocumentsDir,
		"messages":   &cfg.MessagesPath,
		"log-level":  &cfg.LogLevel,
	}
	for name, target := range overrides {
		if flags.Changed(name) {
			*target, _ = flags.GetString(name)
		}
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}
