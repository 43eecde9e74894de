package spread

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"mihiraki/models"
	"mihiraki/parser"
	"mihiraki/progress"
)

// Options tunes the Assembler.
type Options struct {
	Threshold   float64 // width/height ratio above which a page is a spread
	JPEGQuality int     // quality of merged spreads
}

// DefaultOptions returns the stock classifier threshold and JPEG quality.
func DefaultOptions() Options {
	return Options{
		Threshold:   DefaultThreshold,
		JPEGQuality: DefaultJPEGQuality,
	}
}

// Assembler turns a directory of single pages into reading spreads.
type Assembler struct {
	opts     Options
	reporter progress.Reporter

	// isSpread is swapped out in tests
	isSpread func(path string) bool
}

// NewAssembler creates an assembler that reports to reporter.
// A nil reporter discards reports.
func NewAssembler(opts Options, reporter progress.Reporter) *Assembler {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = DefaultJPEGQuality
	}
	if reporter == nil {
		reporter = progress.Nop
	}

	a := &Assembler{opts: opts, reporter: reporter}
	a.isSpread = func(path string) bool {
		return IsSpreadLikely(path, a.opts.Threshold)
	}
	return a
}

// step is the action taken for the page under the cursor.
type step int

const (
	stepCopyCover  step = iota // first page in sorted order
	stepCopySpread             // page is already spread-shaped
	stepMerge                  // page and its successor are both singles
	stepCopyBefore             // single followed by a spread
	stepCopyLast               // trailing single with nothing to pair
)

var stepLabels = map[step]string{
	stepCopyCover:  "cover",
	stepCopySpread: "existing spread",
	stepCopyBefore: "single before spread",
	stepCopyLast:   "last single page",
}

// classify decides what to do with pages[idx]. The first page is never
// measured.
func (a *Assembler) classify(pages []models.PageFile, idx int) step {
	if idx == 0 {
		return stepCopyCover
	}
	if a.isSpread(pages[idx].Path) {
		return stepCopySpread
	}
	if idx+1 >= len(pages) {
		return stepCopyLast
	}
	if a.isSpread(pages[idx+1].Path) {
		return stepCopyBefore
	}
	return stepMerge
}

// ProcessAll walks the numbered pages of run.InputDir in ascending key order
// and writes spreads to run.OutputDir. Cancellation is checked before each
// step; counts gathered so far are returned either way.
func (a *Assembler) ProcessAll(run models.ProcessingRun, cancel progress.Canceller) models.AssembleResult {
	var result models.AssembleResult

	pages, skipped, err := parser.NumberedPages(run.InputDir)
	if err != nil {
		result.Err = fmt.Errorf("cannot read input directory %s: %w", run.InputDir, err)
		log.Printf("[Assembler] %v", result.Err)
		a.reporter.ReportStatus(fmt.Sprintf("Error: %v", result.Err))
		return result
	}

	outDir, err := parser.ExpandPath(run.OutputDir)
	if err == nil {
		err = os.MkdirAll(outDir, 0755)
	}
	if err != nil {
		result.Err = fmt.Errorf("cannot create output directory %s: %w", run.OutputDir, err)
		log.Printf("[Assembler] %v", result.Err)
		a.reporter.ReportStatus(fmt.Sprintf("Error: %v", result.Err))
		return result
	}

	for _, name := range skipped {
		log.Printf("[Assembler] Skipping %s: no page number in name", name)
	}

	total := len(pages)
	result.Total = total
	if total == 0 {
		a.reporter.ReportStatus("No numbered image files found in " + run.InputDir)
		return result
	}

	log.Printf("[Assembler] Processing %d pages from %s into %s", total, run.InputDir, outDir)
	a.reporter.ReportStatus(fmt.Sprintf("Found %d numbered pages", total))

	idx := 0
	for idx < total {
		if cancel != nil && cancel.IsCancelled() {
			result.Cancelled = true
			log.Printf("[Assembler] Interrupted at page %d/%d", idx, total)
			a.reporter.ReportStatus("Processing interrupted by user")
			break
		}

		cur := pages[idx]
		switch s := a.classify(pages, idx); s {
		case stepCopyCover, stepCopySpread, stepCopyBefore, stepCopyLast:
			if a.copyPage(cur, outDir, stepLabels[s]) {
				result.Processed++
			} else {
				result.Failed++
			}
			idx++

		case stepMerge:
			next := pages[idx+1]
			name := fmt.Sprintf("spread_%s-%s.jpg", parser.PadKey(cur.PageNumber), parser.PadKey(next.PageNumber))
			a.reporter.ReportStatus(fmt.Sprintf("Merging %s + %s", cur.Name, next.Name))

			if err := MergePair(cur.Path, next.Path, filepath.Join(outDir, name), a.opts.JPEGQuality); err != nil {
				log.Printf("[Assembler] ✗ Failed to merge %s and %s: %v", cur.Name, next.Name, err)
				a.reporter.ReportStatus(fmt.Sprintf("Error merging %s and %s: %v", cur.Name, next.Name, err))
				result.Failed++
			} else {
				log.Printf("[Assembler] ✓ Created %s", name)
			}

			// The pair is consumed whether or not the merge worked
			result.Processed += 2
			result.SpreadsCreated++
			idx += 2
		}

		a.reporter.ReportProgress(idx, total)
	}

	summary := fmt.Sprintf("Processing finished: %d files processed, %d spreads created", result.Processed, result.SpreadsCreated)
	log.Printf("[Assembler] %s", summary)
	a.reporter.ReportStatus(summary)

	return result
}

// copyPage copies a page verbatim as spread_<key><ext>.
func (a *Assembler) copyPage(page models.PageFile, outDir, label string) bool {
	name := "spread_" + parser.PadKey(page.PageNumber) + page.Ext
	dst := filepath.Join(outDir, name)

	a.reporter.ReportStatus(fmt.Sprintf("Copying %s (%s)", page.Name, label))
	if err := copyFile(page.Path, dst); err != nil {
		log.Printf("[Assembler] ✗ Failed to copy %s: %v", page.Name, err)
		a.reporter.ReportStatus(fmt.Sprintf("Error copying %s: %v", page.Name, err))
		return false
	}
	return true
}

// copyFile copies src to dst byte for byte and carries over the file mode
// and modification time.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
