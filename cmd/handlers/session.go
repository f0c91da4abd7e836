package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"financewatch/internal/analysis"
	"financewatch/internal/config"
	"financewatch/internal/core"
	"financewatch/internal/history"
	"financewatch/internal/logger"
	"financewatch/internal/store"
	"financewatch/internal/workflow"
)

// openHistory opens the configured KV backend and the history kept in it.
// The returned close func releases the backend.
func openHistory(ctx context.Context, cfg *config.Config) (*history.Store, store.KV, func(), error) {
	kv, err := store.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open history store: %w", err)
	}
	closeFn := func() {
		if err := kv.Close(); err != nil {
			logger.Error("Failed to close history store", err)
		}
	}
	return history.New(kv, cfg.History.Key), kv, closeFn, nil
}

func newAnalysisClient(cfg *config.Config) *analysis.Client {
	return analysis.NewClient(analysis.Options{
		Endpoint:  cfg.Analysis.Endpoint,
		FieldName: cfg.Analysis.FieldName,
		Timeout:   cfg.AnalysisTimeout(),
	})
}

func sessionEnv(cfg *config.Config) workflow.Env {
	return workflow.Env{Clock: workflow.RealClock{}, DateLayout: cfg.App.DateLayout}
}

// readFiles loads local documents the way the upload form would receive them.
func readFiles(paths []string) ([]core.UploadedFile, error) {
	files := make([]core.UploadedFile, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		files = append(files, core.UploadedFile{
			ID:        uuid.NewString(),
			Name:      filepath.Base(p),
			SizeLabel: core.FormatSize(int64(len(content))),
			Content:   content,
		})
	}
	return files, nil
}
