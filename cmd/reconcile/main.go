package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"assignment-status/internal/app"
	"assignment-status/internal/concurrency"
	"assignment-status/internal/config"
	"assignment-status/internal/export"
	"assignment-status/internal/logging"
	"assignment-status/internal/reconcile"
	"assignment-status/internal/sftpclient"
)

type reconciler interface {
	Reconcile(ctx context.Context, studentID string) (*reconcile.Result, error)
}

type studentResult struct {
	studentID string
	res       *reconcile.Result
	err       error
}

func main() {
	var (
		studentsFlag = flag.String("students", "", "comma separated student ids (extra args are also accepted)")
		outPath      = flag.String("out", "", "output csv path (empty = no csv)")
		asJSON       = flag.Bool("json", false, "print results as JSON to stdout")
		orderFlag    = flag.String("order", "", "view order: course | due | status")
		parallel     = flag.Int("concurrency", 4, "students reconciled in parallel")
		timeout      = flag.Duration("timeout", 10*time.Minute, "overall timeout")
		uploadSFTP   = flag.Bool("sftp", false, "upload the generated CSV via SFTP")
	)
	flag.Parse()

	students := parseStudents(*studentsFlag, flag.Args())
	if len(students) == 0 {
		log.Fatal("no students given (use -students S1,S2 or pass ids as args)")
	}
	order, err := reconcile.ParseOrder(*orderFlag)
	if err != nil {
		log.Fatal(err)
	}
	if *uploadSFTP && *outPath == "" {
		log.Fatal("-sftp needs -out")
	}

	rootCtx, rootCancel := context.WithTimeout(context.Background(), *timeout)
	defer rootCancel()

	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	a, err := app.New(cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	results := reconcileAll(rootCtx, a.Engine, students, *parallel)

	failed := 0
	for _, r := range results {
		if r.res == nil {
			failed++
			logger.Error("student failed", zap.String("student_id", r.studentID), zap.Error(r.err))
			continue
		}
		if r.res.Degraded() {
			logger.Warn("student degraded",
				zap.String("student_id", r.studentID),
				zap.Strings("diagnostics", r.res.DiagnosticMessages()))
		}
	}

	if *asJSON {
		if err := writeJSON(os.Stdout, results, order); err != nil {
			log.Fatal(err)
		}
	}

	if *outPath != "" {
		reports := toReports(results, order)
		if err := export.WriteStatusCSVFile(*outPath, reports); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote %d rows for %d students to %s", countRows(reports), len(reports), *outPath)

		if *uploadSFTP {
			remoteName := filepath.Base(*outPath)
			upCfg := app.SFTPConfig(cfg)

			upCtx, upCancel := context.WithTimeout(rootCtx, 5*time.Minute)
			defer upCancel()

			if err := sftpclient.UploadFile(upCtx, upCfg, *outPath, remoteName); err != nil {
				log.Fatal(err)
			}
			log.Printf("uploaded to sftp://%s:%d%s/%s", upCfg.Host, upCfg.Port, upCfg.RemoteDir, remoteName)
		}
	}

	if failed > 0 {
		log.Printf("WARN: %d of %d students failed", failed, len(results))
		os.Exit(1)
	}
}

// reconcileAll runs one pass per student, at most parallel at a time, keeping input order.
// A strict-mode *DegradedError keeps its result.
func reconcileAll(ctx context.Context, rec reconciler, students []string, parallel int) []studentResult {
	results := make([]studentResult, len(students))
	concurrency.ForEach(ctx, students, concurrency.ParallelOptions{MaxWorkers: parallel},
		func(ctx context.Context, i int, id string) error {
			res, err := rec.Reconcile(ctx, id)
			if reconcile.IsDegraded(err) {
				err = nil
			}
			results[i] = studentResult{studentID: id, res: res, err: err}
			return err
		})
	// students never started because ctx ended
	for i := range results {
		if results[i].studentID == "" {
			results[i] = studentResult{studentID: students[i], err: ctx.Err()}
		}
	}
	return results
}

// parseStudents merges the flag list and positional args, trimming and dropping repeats.
func parseStudents(list string, args []string) []string {
	var raw []string
	raw = append(raw, strings.Split(list, ",")...)
	raw = append(raw, args...)

	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func toReports(results []studentResult, order reconcile.Order) []export.StudentViews {
	out := make([]export.StudentViews, 0, len(results))
	for _, r := range results {
		if r.res == nil {
			continue
		}
		out = append(out, export.StudentViews{StudentID: r.studentID, Views: r.res.Ordered(order)})
	}
	return out
}

func countRows(reports []export.StudentViews) int {
	n := 0
	for _, r := range reports {
		n += len(r.Views)
	}
	return n
}

type jsonResult struct {
	*reconcile.Result
	StudentID string `json:"studentId"`
	Error     string `json:"error,omitempty"`
}

func writeJSON(w io.Writer, results []studentResult, order reconcile.Order) error {
	out := make([]jsonResult, 0, len(results))
	for _, r := range results {
		jr := jsonResult{StudentID: r.studentID}
		if r.res != nil {
			cp := *r.res
			cp.Views = r.res.Ordered(order)
			jr.Result = &cp
		}
		if r.err != nil {
			jr.Error = r.err.Error()
		}
		out = append(out, jr)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
