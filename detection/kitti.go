package detection

// KITTI sidecars.

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/foghegehog/inference-server/annotate"
	log "github.com/sirupsen/logrus"
)

// kittiObject is a single object line of a KITTI label file.
type kittiObject struct {
	Coords [4]float64 // x1, y1, x2, y2 in pixels.
	Label  string
	Score  float64 // Optional, 1 if absent.
}

// parseKITTI parses the objects in data and normalizes them by the frame size. Malformed lines
// are logged and skipped.
func parseKITTI(data []byte, path string, width, height int) []Detection {
	var ds []Detection
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		o, err := parseKITTIObject(line)
		if err != nil {
			log.Printf("[Detection] Error while parsing, skipping a line of %q: %v", path, err)
			continue
		}

		w, h := float64(width), float64(height)
		ds = append(ds, Detection{
			Score: o.Score,
			Box: annotate.NormalizedBox{
				X0: o.Coords[0] / w,
				Y0: o.Coords[1] / h,
				X1: o.Coords[2] / w,
				Y1: o.Coords[3] / h,
			},
			Label: o.Label,
		})
	}
	if err := scanner.Err(); err != nil {
		log.Printf("[Detection] Failed to read %q as lines: %v", path, err)
	}

	return ds
}

// parseKITTIObject parses the line of values for a single object.
func parseKITTIObject(line string) (kittiObject, error) {
	o := kittiObject{Score: 1}

	tokens := strings.Fields(line)
	if len(tokens) < 8 {
		return o, fmt.Errorf("insufficient tokens in %q", line)
	}

	o.Label = tokens[0]
	var err error
	for i := 4; i < 8 && err == nil; i++ {
		o.Coords[i-4], err = strconv.ParseFloat(tokens[i], 64)
	}
	if err != nil {
		return o, fmt.Errorf("unexpected values in %q: %v", line, err)
	}

	// Parse the optional confidence score.
	if len(tokens) >= 16 {
		o.Score, err = strconv.ParseFloat(tokens[15], 64)
	}
	if err != nil {
		return o, fmt.Errorf("unexpected score format in %q: %v", line, err)
	}

	return o, nil
}
