package postgres

import (
	"context"
	"fmt"
	"time"

	"quiz-poll-bot/internal/domain"

	"github.com/uptrace/bun"
)

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID        int64           `bun:"id,pk,autoincrement"`
	Data      domain.Question `bun:"data,type:jsonb"`
	CreatedAt time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// ImportQuestions validates questions and inserts them in one transaction.
// With replace set, existing rows are removed first.
func ImportQuestions(ctx context.Context, db *bun.DB, questions []domain.Question, replace bool) (int, error) {
	rows := make([]questionRow, 0, len(questions))
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return 0, &domain.MalformedDataError{Index: i, Reason: err.Error()}
		}
		rows = append(rows, questionRow{Data: q})
	}
	if len(rows) == 0 {
		return 0, &domain.MalformedDataError{Index: -1, Reason: "no questions to import"}
	}

	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if replace {
			if _, err := tx.NewTruncateTable().Model((*questionRow)(nil)).Exec(ctx); err != nil {
				return fmt.Errorf("truncate questions: %w", err)
			}
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("insert questions: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
