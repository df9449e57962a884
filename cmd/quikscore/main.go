// Command quikscore scores scanned multiple-choice answer sheets
// against an uploaded key and weights table.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"quikscore/internal/bubble"
	"quikscore/internal/config"
	"quikscore/internal/imgio"
	"quikscore/internal/marker"
	"quikscore/internal/ocr"
	"quikscore/internal/session"
	"quikscore/internal/sheet"
	"quikscore/internal/storage"
)

var (
	configPath string
	cfg        config.Config
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := rootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "quikscore",
		Short:         "Score scanned multiple-choice answer sheets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = os.Getenv("QUIKSCORE_CONFIG")
			}
			if configPath == "" {
				cfg = config.Default()
				return nil
			}
			var err error
			cfg, err = config.Load(configPath)
			return err
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML configuration file")
	root.AddCommand(scoreCmd(), exportCmd())
	return root
}

func scoreCmd() *cobra.Command {
	var (
		keyPath     string
		weightsPath string
		outPath     string
	)
	cmd := &cobra.Command{
		Use:   "score --key KEY.png --weights WEIGHTS.csv SHEET...",
		Short: "Score a batch of sheet images against a key",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(keyPath, weightsPath, outPath, args)
		},
	}
	cmd.Flags().StringVar(&keyPath, "key", "", "answer key sheet image")
	cmd.Flags().StringVar(&weightsPath, "weights", "", "weights file (subject_code,question_num,A,B,C,D,E)")
	cmd.Flags().StringVar(&outPath, "out", "", "write per-question score export to this file")
	cmd.MarkFlagRequired("key")
	cmd.MarkFlagRequired("weights")
	return cmd
}

func runScore(keyPath, weightsPath, outPath string, sheets []string) error {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	sess := session.New(workers)
	defer sess.Close()
	factory := scannerFactory()

	if err := uploadKey(sess, factory, keyPath); err != nil {
		return err
	}
	if err := uploadWeights(sess, weightsPath); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		sess.Cancel()
	}()

	progress := make(chan session.Progress, len(sheets)*2)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range progress {
			log.Printf("%s %s", ev.Stage, ev.Path)
		}
	}()

	sheetErrs, err := sess.ScoreSheets(ctx, sheets, factory, progress)
	close(progress)
	<-done
	for _, se := range sheetErrs {
		log.Printf("sheet %s failed: %v", se.Path, se.Err)
	}
	if err != nil {
		return err
	}

	results := sess.Results()
	maxScore := sess.MaxScore()
	for _, r := range results {
		log.Printf("student %s: %d/%d points (%d correct, %d incorrect)",
			r.Sheet.StudentID, r.Result.Score, maxScore,
			r.Result.Correct, r.Result.Incorrect)
	}

	if err := writeReviewImages(results); err != nil {
		return err
	}
	if outPath != "" {
		if err := writeExport(outPath, results); err != nil {
			return err
		}
	}
	return persistScores(results)
}

func exportCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export persisted total scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			rows, err := store.AllScores(context.Background())
			if err != nil {
				return err
			}
			out := os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				defer f.Close()
				out = f
			}
			return storage.ExportTotalsCSV(out, rows)
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "write to this file instead of stdout")
	return cmd
}

// scannerFactory builds per-worker scanners from the loaded config. OCR
// backend construction failure disables OCR for that worker rather than
// failing the batch.
func scannerFactory() session.ScannerFactory {
	return func() (*sheet.Scanner, error) {
		s := sheet.NewScanner()
		s.Marker = marker.Params{
			Threshold: cfg.Calibration.MarkerThreshold,
			MinArea:   cfg.Calibration.MarkerMinArea,
		}
		s.Fill = bubble.Params{
			IntensityCutoff: cfg.Calibration.IntensityCutoff,
			FillThreshold:   cfg.Calibration.FillThreshold,
		}
		if cfg.OCR.Enabled {
			reader, err := ocr.New(cfg.OCR.Backend, cfg.OCR.TessdataPath)
			if err != nil {
				log.Printf("OCR backend unavailable, skipping text fields: %v", err)
			} else {
				s.Reader = reader
			}
		}
		return s, nil
	}
}

func uploadKey(sess *session.Session, factory session.ScannerFactory, keyPath string) error {
	scanner, err := factory()
	if err != nil {
		return err
	}
	defer func() {
		if scanner.Reader != nil {
			scanner.Reader.Close()
		}
	}()

	image, scanned, err := scanner.ScanFile(keyPath)
	if err != nil {
		return fmt.Errorf("scan key: %w", err)
	}
	if _, err := sess.UploadKey(image, scanned); err != nil {
		image.Close()
		return err
	}
	log.Printf("key loaded: subject %s", scanned.SubjectID)
	return nil
}

func uploadWeights(sess *session.Session, weightsPath string) error {
	f, err := os.Open(weightsPath)
	if err != nil {
		return fmt.Errorf("open weights: %w", err)
	}
	defer f.Close()
	return sess.UploadWeights(f)
}

// writeReviewImages saves a downscaled verdict overlay per student.
func writeReviewImages(results []session.ScoredSheet) error {
	if cfg.Output.ReviewDir == "" {
		return nil
	}
	if err := os.MkdirAll(cfg.Output.ReviewDir, 0o755); err != nil {
		return fmt.Errorf("create review directory: %w", err)
	}
	for _, r := range results {
		resized := imgio.ResizeRelative(r.Image, cfg.Output.ReviewScale)
		path := filepath.Join(cfg.Output.ReviewDir, r.Sheet.StudentID+".png")
		err := imgio.WritePNG(path, resized)
		resized.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func writeExport(path string, results []session.ScoredSheet) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()
	return storage.ExportCSV(f, results)
}

func persistScores(results []session.ScoredSheet) error {
	if cfg.Database.Path == "" {
		return nil
	}
	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.SaveScores(context.Background(), results)
}
