package inbox

import (
	"context"
	"log/slog"
)

// Sync walks the inbox and brings the results up to date:
//   - new/changed documents are compiled
//   - documents removed from disk lose their result files
func Sync(ctx context.Context, p *Processor) error {
	metas, err := p.docs.List("")
	if err != nil {
		return err
	}

	checksums, err := p.tracker.DocumentChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}
		if err := p.Process(ctx, m.Path); err != nil {
			p.logger.Warn("sync: compile failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			p.logger.Debug("sync: compiled", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for path := range checksums {
		if _, ok := disk[path]; !ok {
			if err := p.Remove(path); err != nil {
				p.logger.Warn("sync: remove failed", slog.String("path", path), slog.String("error", err.Error()))
			} else {
				p.logger.Debug("sync: removed stale", slog.String("path", path))
			}
		}
	}

	return nil
}
