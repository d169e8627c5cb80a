package driver

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"enumgen/internal/abicache"
	"enumgen/internal/declfile"
	"enumgen/internal/diag"
	"enumgen/internal/irgen"
	"enumgen/internal/observ"
	"enumgen/internal/source"
	"enumgen/internal/trace"
)

// Options configure a batch run.
type Options struct {
	MaxDiagnostics            int
	Jobs                      int
	Verify                    bool
	AllowNonFixedMultiPayload bool
	// Cache is consulted before converting a file and filled afterwards.
	// A nil cache disables persistence.
	Cache   *abicache.Cache
	Timings bool
}

// FileResult is the outcome of one declaration file.
type FileResult struct {
	Path   string
	FileID source.FileID
	Unit   *declfile.Unit
	// Context holds the converted strategies; it is nil when the records
	// came from the cache or the file failed to decode.
	Context *irgen.Context
	Records []abicache.Record
	Bag     *diag.Bag
	Cached  bool
	Timing  *observ.Report
}

// LayoutFiles computes the enum layouts of every file in parallel. Problems
// with a file are reported in its bag; the returned error is only set when
// the run itself was cancelled.
func LayoutFiles(ctx context.Context, paths []string, opts Options) (*source.FileSet, []FileResult, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "layout", 0)
	defer span.End("")

	fileSet := source.NewFileSet()
	if len(paths) == 0 {
		return fileSet, nil, nil
	}

	// FileSet is not safe for concurrent writes; load everything up front.
	fileIDs := make([]source.FileID, len(paths))
	loadErrors := make(map[int]error, len(paths))
	for i, path := range paths {
		id, err := fileSet.Load(path)
		if err != nil {
			// Keep a placeholder so diagnostics still carry the path.
			loadErrors[i] = err
			id = fileSet.AddVirtual(path, nil)
		}
		fileIDs[i] = id
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Each goroutine owns results[i].
	results := make([]FileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))

	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			bag := diag.NewBag(opts.MaxDiagnostics)
			if loadErr, failed := loadErrors[i]; failed {
				results[i] = FileResult{Path: path, FileID: fileIDs[i], Bag: bag}
				bag.Add(diag.NewError(diag.IOLoadFileError, source.Span{File: fileIDs[i]}, "failed to load file: "+loadErr.Error()))
				return nil
			}
			results[i] = layoutFile(fileSet, fileIDs[i], path, bag, opts, tracer, span.ID())
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fileSet, results, err
	}
	return fileSet, results, nil
}

func layoutFile(fs *source.FileSet, id source.FileID, path string, bag *diag.Bag, opts Options, tracer trace.Tracer, parent uint64) (res FileResult) {
	span := trace.Begin(tracer, trace.ScopePass, "file", parent).WithExtra("path", path)
	timer := observ.NewTimer()
	res = FileResult{Path: path, FileID: id, Bag: bag}
	defer func() {
		if opts.Timings {
			report := timer.Report()
			res.Timing = &report
			addAlways(bag, timingDiagnostic(id, path, report))
		}
		span.End(status(bag))
	}()

	reporter := diag.NewDedupReporter(diag.BagReporter{Bag: bag})

	idx := timer.Begin("decl")
	unit, ok := declfile.Load(fs, id, reporter)
	timer.End(idx, "")
	res.Unit = unit
	if !ok {
		return res
	}

	key := abicache.Key(unit.File.Hash, unit.Target.Triple, opts.AllowNonFixedMultiPayload)
	if opts.Cache != nil {
		idx = timer.Begin("cache")
		entry, hit, err := opts.Cache.Get(key)
		switch {
		case err != nil:
			timer.End(idx, "error")
			diag.ReportWarning(reporter, diag.IOCacheReadError, source.Span{File: id}, "layout cache: "+err.Error()).Emit()
		case hit:
			timer.End(idx, "hit")
			res.Records = entry.Records
			res.Cached = true
			span.WithExtra("cache", "hit")
			return res
		default:
			timer.End(idx, "miss")
		}
	}

	idx = timer.Begin("convert")
	res.Context = irgen.NewContext(unit.Target, unit.Types, irgen.Options{
		VerifyLayouts:             opts.Verify,
		AllowNonFixedMultiPayload: opts.AllowNonFixedMultiPayload,
		Tracer:                    tracer,
		ParentSpan:                span.ID(),
	})
	for _, d := range unit.Enums {
		s, err := res.Context.ConvertEnumType(d.ID)
		if err != nil {
			reportLayoutError(reporter, d, err)
			continue
		}
		res.Records = append(res.Records, abicache.RecordOf(s))
	}
	timer.End(idx, "")

	if opts.Cache != nil && !bag.HasErrors() {
		idx = timer.Begin("store")
		err := opts.Cache.Put(key, &abicache.Entry{Path: path, Triple: unit.Target.Triple, Records: res.Records})
		timer.End(idx, "")
		if err != nil {
			diag.ReportWarning(reporter, diag.IOCacheReadError, source.Span{File: id}, "layout cache: "+err.Error()).Emit()
		}
	}
	return res
}

func status(bag *diag.Bag) string {
	if bag.HasErrors() {
		return "error"
	}
	return ""
}
