package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/segtools/phaseseg/pkg/sbatch"
	"github.com/segtools/phaseseg/pkg/segment"
)

var (
	fPhaseSet  string
	fConfig    string
	fOutputZip string
	fBins      int
	fWorkers   int
	fPreviewPx int
	fMaxPixels int
)

func init() {
	flag.StringVar(&fPhaseSet, "phases", "phases.yaml", "phase set definition file (yaml)")
	flag.StringVar(&fConfig, "config", "", "optional tool config file (yaml)")
	flag.StringVar(&fOutputZip, "o", "results.zip", "name of output results zip")
	flag.IntVar(&fBins, "bins", 0, "vertical bins for the X distribution (0 = config default)")
	flag.IntVar(&fWorkers, "workers", 0, "concurrent images (0 = one per CPU)")
	flag.IntVar(&fPreviewPx, "preview", 0, "preview long edge in px (0 = config default)")
	flag.IntVar(&fMaxPixels, "maxpixels", 0, "refuse images with more pixels than this (0 = unlimited)")
	flag.Parse()

	log.Printf("Starting\n")
}

func main() {
	cfg := segment.NewConfig()
	if fConfig != "" {
		var err error
		if cfg, err = segment.LoadConfig(fConfig); err != nil {
			log.Fatal(err)
		}
	}

	// Command line overrides the config file, where given
	if fBins > 0 {
		cfg.Bins = fBins
	}
	if fWorkers > 0 {
		cfg.Workers = fWorkers
	}
	if fPreviewPx > 0 {
		cfg.PreviewMaxPx = fPreviewPx
	}
	if fMaxPixels > 0 {
		cfg.MaxPixels = fMaxPixels
	}

	phases, err := segment.LoadPhaseSet(fPhaseSet)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Loaded %d phases from %s\n", len(phases), fPhaseSet)

	if flag.NArg() == 0 {
		log.Fatal("no input images; usage: phaseseg [flags] img.png[:x0,y0,x1,y1] ...")
	}

	reg := sbatch.NewRegistry()
	job := reg.CreateJob()

	for _, arg := range flag.Args() {
		in, err := parseImageArg(arg)
		if err != nil {
			log.Fatalf("arg '%s': %v\n", arg, err)
		}
		if _, err := job.AddImage(in); err != nil {
			log.Fatal(err)
		}
	}

	if err := job.Process(context.Background(), phases, cfg); err != nil {
		log.Fatalf("job failed: %v\n", err)
	}

	b, err := sbatch.ExportZip(job, phases, cfg)
	if err != nil {
		log.Fatalf("export failed: %v\n", err)
	}
	if err := os.WriteFile(fOutputZip, b, 0644); err != nil {
		log.Fatalf("write '%s': %v\n", fOutputZip, err)
	}
	log.Printf("Results written '%s'\n", fOutputZip)
}

// parseImageArg reads `path` or `path:x0,y0,x1,y1`, the rect being the
// image's physical corner coordinates. Without a rect the image spans the
// unit square.
func parseImageArg(arg string) (sbatch.InputImage, error) {
	path := arg
	rect := segment.PhysicalRect{X0: 0, Y0: 0, X1: 1, Y1: 1}

	if i := strings.LastIndex(arg, ":"); i > 0 && strings.Contains(arg[i+1:], ",") {
		path = arg[:i]
		var r segment.PhysicalRect
		if _, err := fmt.Sscanf(arg[i+1:], "%f,%f,%f,%f", &r.X0, &r.Y0, &r.X1, &r.Y1); err != nil {
			return sbatch.InputImage{}, fmt.Errorf("bad rect '%s': %v", arg[i+1:], err)
		}
		rect = r
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return sbatch.InputImage{}, fmt.Errorf("read '%s': %v", path, err)
	}

	return sbatch.InputImage{
		Name: filepath.Base(path),
		Rect: rect,
		Data: data,
	}, nil
}
