package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/sirupsen/logrus"

	"postly/internal/repository"
	"postly/internal/storage"
)

// MigrationReport counts what NormalizeMediaRefs did.
type MigrationReport struct {
	Scanned   int
	Rewritten int
	Cleared   int
}

// NormalizeMediaRefs rewrites media references stored as paths
// ("uploads/<name>") to the bare object name served under /posts/media/.
// References whose object is missing from storage are cleared.
func NormalizeMediaRefs(ctx context.Context, posts repository.PostRepository, media storage.Service, logger *logrus.Logger) (MigrationReport, error) {
	var report MigrationReport

	withMedia, err := posts.ListWithMedia(ctx)
	if err != nil {
		return report, fmt.Errorf("list posts with media: %w", err)
	}

	for _, post := range withMedia {
		report.Scanned++
		ref := *post.MediaRef
		if !strings.ContainsAny(ref, `/\`) {
			continue
		}

		name := path.Base(strings.ReplaceAll(ref, `\`, "/"))
		entry := logger.WithField("post_id", post.ID).WithField("ref", ref)

		exists, err := media.Exists(ctx, name)
		if errors.Is(err, storage.ErrInvalidKey) {
			exists, err = false, nil
		}
		if err != nil {
			return report, fmt.Errorf("check media %s: %w", name, err)
		}
		if !exists {
			if err := posts.SetMedia(ctx, post.ID, nil); err != nil {
				return report, err
			}
			entry.Warn("media missing, reference cleared")
			report.Cleared++
			continue
		}

		if err := posts.SetMedia(ctx, post.ID, &name); err != nil {
			return report, err
		}
		entry.WithField("name", name).Info("media reference rewritten")
		report.Rewritten++
	}

	return report, nil
}
