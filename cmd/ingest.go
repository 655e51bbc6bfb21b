package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/mkadlec/facegallery/internal/detect"
	"github.com/mkadlec/facegallery/internal/identity"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <directory>",
	Short: "Detect and index faces from a directory of photos",
	Long: `Detect faces in every photo under a directory and feed them into the
identity engine. Each face is stored with its embedding, bounding box and
detection score; confident matches to known people are assigned
automatically, the rest stay unknown for the clustering workflow.

The process can be stopped and resumed - photos that already have stored
faces are skipped.

Examples:
  # Ingest all photos (5 concurrent workers)
  facegallery ingest ./photos

  # Use different concurrency
  facegallery ingest ./photos --concurrency 3`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().Int("concurrency", 5, "Number of parallel detection workers")
	ingestCmd.Flags().Int("limit", 0, "Limit number of photos to process (0 = no limit)")
}

// imageExtensions are the photo formats the detector accepts.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// photoUIDFromPath derives a stable photo UID from the file name.
func photoUIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// collectPhotos walks the directory and returns all image file paths.
func collectPhotos(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if imageExtensions[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

func runIngest(cmd *cobra.Command, args []string) error {
	concurrency := mustGetInt(cmd, "concurrency")
	limit := mustGetInt(cmd, "limit")

	ctx := context.Background()

	fmt.Println("Connecting to PostgreSQL...")
	app, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	faceCount, _ := app.faces.CountFaces(ctx)
	fmt.Printf("Faces in database: %d\n", faceCount)

	detector := detect.NewClient(app.cfg.Detector.URL, time.Duration(app.cfg.Detector.Timeout)*time.Second)

	allPhotos, err := collectPhotos(args[0])
	if err != nil {
		return fmt.Errorf("scanning %s: %w", args[0], err)
	}
	fmt.Printf("Photos found: %d\n", len(allPhotos))

	// Skip photos that already have stored faces.
	var photosToProcess []string
	for _, path := range allPhotos {
		existing, err := app.faces.GetFacesByPhoto(ctx, photoUIDFromPath(path))
		if err != nil {
			return fmt.Errorf("checking photo %s: %w", path, err)
		}
		if len(existing) == 0 {
			photosToProcess = append(photosToProcess, path)
		}
	}
	if limit > 0 && len(photosToProcess) > limit {
		photosToProcess = photosToProcess[:limit]
	}

	if len(photosToProcess) == 0 {
		fmt.Println("All photos already processed!")
		return nil
	}

	fmt.Printf("Photos to process: %d (skipping %d already processed)\n\n",
		len(photosToProcess), len(allPhotos)-len(photosToProcess))

	bar := progressbar.NewOptions(len(photosToProcess),
		progressbar.OptionSetDescription("Detecting faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var successCount, errorCount, totalFaces, matchedFaces int
	var mu sync.Mutex

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, path := range photosToProcess {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			defer bar.Add(1)

			faces, matched, err := ingestPhoto(ctx, app, detector, path)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errorCount++
				return
			}
			successCount++
			totalFaces += faces
			matchedFaces += matched
		}(path)
	}

	wg.Wait()
	fmt.Println()

	finalCount, _ := app.faces.CountFaces(ctx)
	fmt.Printf("\nCompleted: %d photos processed, %d errors\n", successCount, errorCount)
	fmt.Printf("New faces detected: %d (%d auto-assigned)\n", totalFaces, matchedFaces)
	fmt.Printf("Total faces in database: %d\n", finalCount)

	return nil
}

// ingestPhoto runs detection on one photo and feeds every face into the
// engine. Returns the number of faces stored and how many matched a person.
func ingestPhoto(ctx context.Context, app *appContext, detector *detect.Client, path string) (int, int, error) {
	imageData, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}

	result, err := detector.DetectFaces(ctx, imageData)
	if err != nil {
		return 0, 0, err
	}

	detections := detect.DedupeDetections(result.Faces, detect.DefaultIoUThreshold)

	photoUID := photoUIDFromPath(path)
	matched := 0
	for _, det := range detections {
		rec := &identity.FaceRecord{
			PhotoUID:  photoUID,
			Embedding: det.Embedding,
			BBox:      det.BBox,
			DetScore:  det.DetScore,
		}
		if err := app.faces.InsertFace(ctx, rec); err != nil {
			return 0, matched, err
		}
		match, err := app.engine.AddFace(ctx, rec)
		if err != nil {
			return 0, matched, err
		}
		if match != nil {
			matched++
		}
	}
	return len(detections), matched, nil
}
