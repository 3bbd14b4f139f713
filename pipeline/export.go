package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aluiziolira/okawa-catalog/models"
)

// Export writes articles to w in batches of batchSize and validates the
// output. w is closed before Export returns.
func Export(ctx context.Context, w OutputWriter, articles []models.Article, batchSize int) (err error) {
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close export: %w", cerr)
		}
	}()

	if batchSize <= 0 {
		batchSize = len(articles)
	}
	for start := 0; start < len(articles); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + batchSize
		if end > len(articles) {
			end = len(articles)
		}
		if err := w.Write(articles[start:end]); err != nil {
			return fmt.Errorf("write batch at %d: %w", start, err)
		}
	}

	if err := w.Validate(); err != nil {
		return fmt.Errorf("validate export: %w", err)
	}
	slog.Info("export completed", slog.Int("articles", len(articles)))
	return nil
}
