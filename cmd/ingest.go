package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kurabase/kura/internal/app"
	"github.com/kurabase/kura/internal/config"
)

var (
	ingestTitle string
	ingestTags  []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Index documents into the knowledge base",
	Long: `Reads each file, splits it into chunks, embeds them, and stores
an article in the knowledge base. The article title defaults to the
file name; --title overrides it (single file only).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd.Context(), args)
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "article title (single file only)")
	ingestCmd.Flags().StringSliceVar(&ingestTags, "tags", nil, "tags applied to each article")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(parent context.Context, paths []string) error {
	if ingestTitle != "" && len(paths) > 1 {
		return fmt.Errorf("--title cannot be used with multiple files")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := parent
	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.Logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		title := ingestTitle
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}

		article, err := a.Articles.CreateArticle(ctx, title, string(content), path, ingestTags)
		if err != nil {
			return fmt.Errorf("indexing %s: %w", path, err)
		}

		fmt.Printf("indexed %s: article %s (%d chunks)\n", path, article.ID, article.ChunkCount)
	}

	return nil
}
