package sbatch

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/codahale/hdrhistogram"
	"github.com/google/uuid"

	"github.com/segtools/phaseseg/pkg/segment"
)

// JobState is the batch job lifecycle:
// Created -> Receiving -> Processing -> Complete | Failed.
type JobState string

const (
	JobCreated    JobState = "created"
	JobReceiving  JobState = "receiving"
	JobProcessing JobState = "processing"
	JobComplete   JobState = "complete"
	JobFailed     JobState = "failed"
)

// InputImage is one uploaded micrograph plus its user-supplied physical
// corner rectangle.
type InputImage struct {
	ID   string
	Name string
	Rect segment.PhysicalRect
	Data []byte
}

// ImageMeta is the per-image bookkeeping that goes into the CSV and the
// metadata record.
type ImageMeta struct {
	Name           string
	Width, Height  int
	Rect           segment.PhysicalRect
	PhysicalWidth  float64
	PhysicalHeight float64
	XScale, YScale float64 // pixels per physical unit
	CapturedAt     *time.Time
}

// ImageResult is everything a finished image contributes to a job. The
// full-resolution original and overlay stay here until export.
type ImageResult struct {
	ID   string
	Meta ImageMeta

	Raster       *segment.LabelRaster
	Stats        *segment.RasterStats
	Distribution []segment.BinFraction
	Point        segment.WholeImagePoint

	Original        image.Image
	Overlay         image.Image
	PreviewOriginal image.Image
	PreviewOverlay  image.Image
}

// Job is one batch run over a shared phase set. Results are keyed by image
// id, never by completion order, so a slow image can finish last without
// scrambling the export. A per-image failure lands in Errs and does not
// abort the job; Failed is reserved for job-level faults.
type Job struct {
	ID string

	mu      sync.Mutex
	state   JobState
	err     error
	images  []InputImage
	results map[string]*ImageResult
	errs    map[string]error

	created  time.Time
	finished time.Time

	// Per-image wall-clock processing time, microseconds.
	Timings *hdrhistogram.Histogram
}

func newJob() *Job {
	return &Job{
		ID:      uuid.NewString(),
		state:   JobCreated,
		results: map[string]*ImageResult{},
		errs:    map[string]error{},
		created: time.Now(),
		// 1us .. 1h, 3 sig figs - generous for any image we'd decode
		Timings: hdrhistogram.New(1, int64(time.Hour/time.Microsecond), 3),
	}
}

func (j *Job) State() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Err returns the job-level fault, if the job Failed.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// AddImage queues an upload. Only legal before processing starts. An
// empty id gets one assigned; a duplicate id is rejected so results stay
// independently addressable.
func (j *Job) AddImage(img InputImage) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != JobCreated && j.state != JobReceiving {
		return "", fmt.Errorf("job %s: can't add images in state '%s'", j.ID, j.state)
	}
	if img.ID == "" {
		img.ID = uuid.NewString()
	}
	for _, existing := range j.images {
		if existing.ID == img.ID {
			return "", fmt.Errorf("job %s: duplicate image id '%s'", j.ID, img.ID)
		}
	}
	j.state = JobReceiving
	j.images = append(j.images, img)
	return img.ID, nil
}

// Result returns the finished result for an image id, or nil.
func (j *Job) Result(id string) *ImageResult {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.results[id]
}

// ImageErr returns the recorded per-image failure for an id, or nil.
func (j *Job) ImageErr(id string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.errs[id]
}

// Results returns the finished results in input order, skipping failed
// images.
func (j *Job) Results() []*ImageResult {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]*ImageResult, 0, len(j.results))
	for _, img := range j.images {
		if r, ok := j.results[img.ID]; ok {
			out = append(out, r)
		}
	}
	return out
}

func (j *Job) recordResult(r *ImageResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results[r.ID] = r
}

func (j *Job) recordError(id string, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errs[id] = err
}

// hdrhistogram is not safe for concurrent writers; serialize on the job.
func (j *Job) recordTiming(us int64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	_ = j.Timings.RecordValue(us)
}

// Registry owns the live jobs. Completed jobs stick around until Evict or
// a TTL sweep; a job that is still processing is never swept.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func NewRegistry() *Registry {
	return &Registry{jobs: map[string]*Job{}}
}

// CreateJob issues a fresh job id.
func (reg *Registry) CreateJob() *Job {
	j := newJob()
	reg.mu.Lock()
	reg.jobs[j.ID] = j
	reg.mu.Unlock()
	return j
}

func (reg *Registry) Job(id string) (*Job, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	j, ok := reg.jobs[id]
	return j, ok
}

// Evict drops a job record, freeing its full-resolution images.
func (reg *Registry) Evict(id string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.jobs, id)
}

// Sweep evicts terminal jobs that finished more than ttl ago. ttl <= 0
// means keep everything. Returns the number of jobs evicted.
func (reg *Registry) Sweep(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-ttl)

	reg.mu.Lock()
	defer reg.mu.Unlock()
	n := 0
	for id, j := range reg.jobs {
		j.mu.Lock()
		expired := (j.state == JobComplete || j.state == JobFailed) && j.finished.Before(cutoff)
		j.mu.Unlock()
		if expired {
			delete(reg.jobs, id)
			n++
		}
	}
	return n
}
