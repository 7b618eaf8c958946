package sbatch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/segtools/phaseseg/pkg/segment"
)

// Process runs the classification pipeline over every queued image with a
// bounded worker pool. The phase list is snapshotted semantics: callers
// pass the slice from Session.Snapshot() (or a freshly loaded set) and must
// not mutate it while processing runs - each image's work shares nothing
// mutable with another's.
//
// A per-image failure is recorded against that image only; the job still
// reaches Complete. Failed is reserved for job-level faults (no images, a
// bad state transition, cancellation).
func (j *Job) Process(ctx context.Context, phases []*segment.Phase, cfg segment.Config) error {
	j.mu.Lock()
	if j.state != JobReceiving {
		state := j.state
		j.mu.Unlock()
		return j.fail(fmt.Errorf("job %s: can't process in state '%s'", j.ID, state))
	}
	if len(j.images) == 0 {
		j.mu.Unlock()
		return j.fail(fmt.Errorf("job %s: no images", j.ID))
	}
	j.state = JobProcessing
	images := j.images
	j.mu.Unlock()

	log.Printf("job %s: processing %d images with %d workers\n", j.ID, len(images), cfg.Workers)

	work := make(chan InputImage)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for img := range work {
				start := time.Now()
				result, err := ProcessImage(img, phases, cfg)
				if err != nil {
					log.Printf("job %s: image '%s' failed: %v\n", j.ID, img.Name, err)
					j.recordError(img.ID, err)
					continue
				}
				j.recordResult(result)
				j.recordTiming(int64(time.Since(start) / time.Microsecond))
			}
		}()
	}

	cancelled := false
feed:
	for _, img := range images {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		select {
		case work <- img:
		case <-ctx.Done():
			cancelled = true
			break feed
		}
	}
	close(work)
	wg.Wait()

	if cancelled {
		return j.fail(fmt.Errorf("job %s: abandoned: %v", j.ID, ctx.Err()))
	}

	j.mu.Lock()
	j.state = JobComplete
	j.finished = time.Now()
	done, failed := len(j.results), len(j.errs)
	j.mu.Unlock()

	log.Printf("job %s: complete, %d ok / %d failed, p50 %dus p99 %dus\n",
		j.ID, done, failed, j.Timings.ValueAtQuantile(50), j.Timings.ValueAtQuantile(99))
	return nil
}

func (j *Job) fail(err error) error {
	j.mu.Lock()
	j.state = JobFailed
	j.err = err
	j.finished = time.Now()
	j.mu.Unlock()
	return err
}

// ProcessImage runs the whole per-image pipeline: decode, classify at full
// resolution, stats, binned distribution, overlay, previews. Pure with
// respect to job state - safe to run for many images concurrently.
func ProcessImage(in InputImage, phases []*segment.Phase, cfg segment.Config) (*ImageResult, error) {
	img, err := DecodeImage(in.Data, cfg.MaxPixels)
	if err != nil {
		return nil, fmt.Errorf("image '%s': %v", in.Name, err)
	}

	raster, err := segment.ClassifyImage(phases, img)
	if err != nil {
		return nil, fmt.Errorf("image '%s': %v", in.Name, err)
	}
	stats, err := segment.ComputeStats(raster, img)
	if err != nil {
		return nil, fmt.Errorf("image '%s': %v", in.Name, err)
	}
	dist, err := segment.Distribution(raster, cfg.Bins)
	if err != nil {
		return nil, fmt.Errorf("image '%s': %v", in.Name, err)
	}

	overlay := Overlay(img, raster, phases, cfg.OverlayAlpha)

	w, h := raster.W, raster.H
	meta := ImageMeta{
		Name:           in.Name,
		Width:          w,
		Height:         h,
		Rect:           in.Rect,
		PhysicalWidth:  in.Rect.Width(),
		PhysicalHeight: in.Rect.Height(),
		CapturedAt:     CaptureTime(in.Data),
	}
	if meta.PhysicalWidth > 0 {
		meta.XScale = float64(w) / meta.PhysicalWidth
	} else {
		meta.XScale = 1
	}
	if meta.PhysicalHeight > 0 {
		meta.YScale = float64(h) / meta.PhysicalHeight
	} else {
		meta.YScale = 1
	}

	return &ImageResult{
		ID:              in.ID,
		Meta:            meta,
		Raster:          raster,
		Stats:           stats,
		Distribution:    dist,
		Point:           segment.WholeImage(stats, in.Rect),
		Original:        img,
		Overlay:         overlay,
		PreviewOriginal: Preview(img, cfg.PreviewMaxPx),
		PreviewOverlay:  Preview(overlay, cfg.PreviewMaxPx),
	}, nil
}
