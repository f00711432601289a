// Package media inspects downloaded media files via ffprobe.
package media

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
)

var (
	// ffprobe writes its report to stderr, e.g.
	//   Duration: 00:01:23.45, start: ...
	//   Stream #0:0 ... 1920x1080 [SAR ...
	durationPattern   = regexp.MustCompile(`Duration: (\d{2}):(\d{2}):(\d{2})\.`)
	resolutionPattern = regexp.MustCompile(`, (\d+)x(\d+) \[`)
)

// Stats describes one media file.
type Stats struct {
	Width  int
	Height int
	// Duration in whole seconds.
	Duration int
}

// Probe runs ffprobe on path and parses dimensions and duration from its
// report output.
func Probe(ctx context.Context, path string) (Stats, error) {
	cmd := exec.CommandContext(ctx, "ffprobe", "-hide_banner", path)
	// The report lands on stderr; stdout stays empty for a plain invocation.
	out, err := cmd.CombinedOutput()
	if err != nil {
		return Stats{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseReport(string(out))
}

func parseReport(report string) (Stats, error) {
	var st Stats

	m := durationPattern.FindStringSubmatch(report)
	if m == nil {
		return Stats{}, fmt.Errorf("duration not found in ffprobe output")
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	st.Duration = ((hours*60)+minutes)*60 + seconds

	m = resolutionPattern.FindStringSubmatch(report)
	if m == nil {
		return Stats{}, fmt.Errorf("resolution not found in ffprobe output")
	}
	st.Width, _ = strconv.Atoi(m[1])
	st.Height, _ = strconv.Atoi(m[2])

	return st, nil
}
