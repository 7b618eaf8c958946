package segment

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v2"
)

/* Example config file ...

bins: 50
previewmaxpx: 600
workers: 4
maxpixels: 250000000
overlayalpha: 0.6
jobttl: 24h
*/

// Config carries the knobs shared by the interactive and batch paths.
// Zero values mean "use the default"; Finalize fills them in.
type Config struct {
	Bins         int           // vertical strips for the X distribution
	PreviewMaxPx int           // long edge of generated previews
	Workers      int           // concurrent images in a batch job
	MaxPixels    int           // decode guard; 0 = unlimited
	OverlayAlpha float64       // classified overlay blend factor
	JobTTL       time.Duration // completed-job retention; negative = keep forever
}

func NewConfig() Config {
	c := Config{}
	c.Finalize()
	return c
}

func LoadConfig(filename string) (Config, error) {
	c := Config{}
	b, err := os.ReadFile(filename)
	if err != nil {
		return c, fmt.Errorf("config read '%s': %v", filename, err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("config parse '%s': %v", filename, err)
	}
	return c, c.Finalize()
}

// Finalize applies defaults and sanity checks.
func (c *Config) Finalize() error {
	if c.Bins == 0 {
		c.Bins = 50
	}
	if c.PreviewMaxPx == 0 {
		c.PreviewMaxPx = 600
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.OverlayAlpha == 0 {
		c.OverlayAlpha = 0.6
	}
	if c.JobTTL == 0 {
		c.JobTTL = 24 * time.Hour
	}

	if c.Bins < 1 {
		return fmt.Errorf("config: bins %d < 1", c.Bins)
	}
	if c.Workers < 1 {
		return fmt.Errorf("config: workers %d < 1", c.Workers)
	}
	if c.OverlayAlpha < 0 || c.OverlayAlpha > 1 {
		return fmt.Errorf("config: overlayalpha %g outside [0,1]", c.OverlayAlpha)
	}
	return nil
}

func (c Config) AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config marshal failed: %v", err)
	}
	return string(b)
}
