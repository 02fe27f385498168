package intake

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/coa-verifier/constants"
	"github.com/joseph-ayodele/coa-verifier/internal/extract"
)

type BatchOptions struct {
	Concurrency        int
	SkipHidden         bool
	Overwrite          bool
	SkipFoodValidation bool
	// IncludeExts restricts discovery; empty means every supported extension.
	IncludeExts []string
}

// FileResult is the per-file batch outcome.
type FileResult struct {
	Path              string            `json:"path"`
	Status            constants.Outcome `json:"status"`
	CertificateNumber string            `json:"certificate_number,omitempty"`
	Sample            string            `json:"sample_description,omitempty"`
	Rows              int               `json:"rows"`
	Inconsistent      int               `json:"inconsistent"`
	Err               string            `json:"error,omitempty"`
}

// DirStats summarizes a directory batch.
type DirStats struct {
	Scanned    uint32 `json:"scanned"`
	Matched    uint32 `json:"matched"`
	Succeeded  uint32 `json:"succeeded"`
	Duplicates uint32 `json:"duplicates"`
	NeedsFood  uint32 `json:"needs_food"`
	Failed     uint32 `json:"failed"`
}

// Discover walks root and returns the certificate files under it, in walk order. Unreadable
// entries are reported as failed results.
func Discover(root string, includeExts []string, skipHidden bool) ([]string, []FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, nil, DirStats{}, errors.New("root_path is required")
	}
	exts := constants.AllowedExtensions
	if len(includeExts) > 0 {
		exts = map[string]struct{}{}
		for _, e := range includeExts {
			if e = constants.NormalizeExt(e); e != "" {
				exts[e] = struct{}{}
			}
		}
	}

	var (
		paths  []string
		failed []FileResult
		stats  DirStats
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			failed = append(failed, FileResult{Path: path, Status: constants.OutcomeFailed, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := exts[constants.NormalizeExt(filepath.Ext(path))]; !ok {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, failed, stats, fmt.Errorf("walk: %w", err)
	}
	return paths, failed, stats, nil
}

// Batch submits every certificate under root with bounded concurrency. Per-file failures are
// recorded in the results; only walk errors and cancellation are returned.
func (s *Service) Batch(ctx context.Context, root string, opts BatchOptions) ([]FileResult, DirStats, error) {
	paths, failed, stats, err := Discover(root, opts.IncludeExts, opts.SkipHidden)
	if err != nil {
		return failed, stats, err
	}
	s.logger.Info("intake.batch.start", "root", root, "files", len(paths), "concurrency", opts.Concurrency)

	results := make([]FileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Concurrency, 1))
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.SubmitPath(gctx, path, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return append(failed, results...), stats, err
	}

	for _, r := range results {
		switch r.Status {
		case constants.OutcomeVerified, constants.OutcomeReplaced:
			stats.Succeeded++
		case constants.OutcomeDuplicate:
			stats.Duplicates++
		case constants.OutcomeFoodSelection:
			stats.NeedsFood++
		default:
			stats.Failed++
		}
	}
	s.logger.Info("intake.batch.done",
		"root", root,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"duplicates", stats.Duplicates,
		"needs_food", stats.NeedsFood,
		"failed", stats.Failed,
	)
	return append(failed, results...), stats, nil
}

// SubmitPath reads and submits one file.
func (s *Service) SubmitPath(ctx context.Context, path string, opts BatchOptions) FileResult {
	fr := FileResult{Path: path}
	doc, err := extract.ReadDocument(path)
	if err != nil {
		fr.Status, fr.Err = constants.OutcomeFailed, err.Error()
		return fr
	}
	out, err := s.Submit(ctx, Submission{
		Document:           doc,
		Overwrite:          opts.Overwrite,
		SkipFoodValidation: opts.SkipFoodValidation,
	})
	fr.Status = out.Status
	fr.CertificateNumber = out.Result.Certificate.NumberOr("")
	fr.Sample = out.Result.Certificate.Sample()
	fr.Rows = len(out.Result.Verifications)
	for _, v := range out.Result.Verifications {
		if !v.Consistent {
			fr.Inconsistent++
		}
	}
	if err != nil {
		fr.Err = err.Error()
	}
	return fr
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
