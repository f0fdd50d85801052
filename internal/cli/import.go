package cli

import (
	"fmt"

	"quiz-poll-bot/internal/config"
	"quiz-poll-bot/internal/infra/file"
	"quiz-poll-bot/internal/infra/postgres"

	"github.com/spf13/cobra"
)

// NewImportCmd loads a JSON or YAML question file into Postgres.
func NewImportCmd(configPath *string) *cobra.Command {
	var (
		path    string
		replace bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a question file into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := setupLogger(cfg.Log.Env, cfg.Log.Level)
			if path == "" {
				path = cfg.Quiz.Source
			}
			if path == "" {
				return fmt.Errorf("no question file given")
			}

			questions, err := file.NewQuestionSource(path).LoadQuestions(cmd.Context())
			if err != nil {
				return err
			}
			if err := runMigrations(cmd.Context(), cfg, log); err != nil {
				return err
			}

			db := openBun(cfg.Postgres.URL)
			defer db.Close()
			n, err := postgres.ImportQuestions(cmd.Context(), db, questions, replace)
			if err != nil {
				return err
			}
			log.Info("questions imported", "count", n, "file", path, "replace", replace)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "question file (.json, .yaml); defaults to quiz.source")
	cmd.Flags().BoolVar(&replace, "replace", false, "remove existing questions first")
	return cmd
}
