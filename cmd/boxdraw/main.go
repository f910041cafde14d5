// Draws a bounding box given in normalized coordinates onto an image and writes the result with the
// same file name into the output directory.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/foghegehog/inference-server/annotate"
	"github.com/foghegehog/inference-server/export"
	log "github.com/sirupsen/logrus"
)

var (
	cfg = annotate.DefaultConfig() // The annotation job.

	recordFilePath   string // The TFRecord file to append the output to.
	labelMapFilePath string // The label map of the TFRecord file.
	recordLabel      string // The label of the box in the TFRecord file.
)

func init() {
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage of %s:\n", filepath.Base(os.Args[0]))
		_, _ = fmt.Fprintf(os.Stderr, "  %s -image <name> [options] x0 y0 x1 y1\n",
			filepath.Base(os.Args[0]))
		_, _ = fmt.Fprintf(os.Stderr, "  %s -image <name> -box x0,y0,x1,y1 [options]\n",
			filepath.Base(os.Args[0]))
		_, _ = fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}

	printUsageAndExit := func(msg ...interface{}) {
		log.Print(msg...)
		flag.Usage()
		os.Exit(1)
	}

	// Path arguments.
	flag.StringVar(&cfg.Image, "image", cfg.Image,
		"The image file `name`, relative to -base-dir; also the name of the output file")
	flag.StringVar(&cfg.BaseDir, "base-dir", cfg.BaseDir, "The image input directory `path`")
	flag.StringVar(&cfg.OutDir, "out-dir", cfg.OutDir, "The image output directory `path`")

	// Box and style arguments.
	box := flag.String("box", "",
		"The normalized box corners (`x0,y0,x1,y1`); alternative to the positional arguments")
	col := flag.String("color", annotate.FormatColor(annotate.DefaultColor),
		"The outline color (`R,G,B`)")
	flag.IntVar(&cfg.Style.Thickness, "thickness", cfg.Style.Thickness,
		"The outline thickness in `pixels`")
	flag.IntVar(&cfg.JPEGQuality, "jpeg-quality", cfg.JPEGQuality,
		"The quality to use when encoding JPEGs [1, 100] (0 for the default)")

	// Export arguments.
	flag.StringVar(&recordFilePath, "record", recordFilePath,
		"Append the output image and its box to the TFRecord file at `path`")
	flag.StringVar(&labelMapFilePath, "label-map", labelMapFilePath,
		"The label map file `path` of -record (default <record>.pbtxt)")
	flag.StringVar(&recordLabel, "label", "face", "The `label` of the box in -record")

	verbose := flag.Bool("v", false, "Enable debug logging")

	// Parse and validate flags.
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	tokens, err := annotate.BoxArgs(*box, flag.Args())
	if err != nil {
		printUsageAndExit(err)
	}
	cfg.Box = tokens

	c, err := annotate.ParseColor(*col)
	if err != nil {
		printUsageAndExit(err)
	}
	cfg.Style.Color = c

	if _, err := cfg.Validate(); err != nil {
		printUsageAndExit(err)
	}

	if recordFilePath != "" {
		recordFilePath = filepath.Clean(recordFilePath)
		if labelMapFilePath == "" {
			labelMapFilePath = export.DefaultLabelMapPath(recordFilePath)
		}
		labelMapFilePath = filepath.Clean(labelMapFilePath)
		if recordLabel == "" {
			printUsageAndExit("Missing -label for -record")
		}
	}
}

func main() {
	res, err := annotate.Run(cfg)
	if err != nil {
		log.Fatal("[Main] Annotation failed: ", err)
	}
	log.Printf("[Main] Wrote %s with box %v (%dx%d)", res.OutputPath, res.Pixels, res.Width,
		res.Height)

	if recordFilePath == "" {
		return
	}
	if err := appendRecord(res); err != nil {
		log.Fatal("[Main] Export failed: ", err)
	}
	log.Printf("[Main] Appended %s to %s", res.OutputPath, recordFilePath)
}

// appendRecord appends the annotated image to the TFRecord file and updates its label map.
func appendRecord(res annotate.Result) error {
	labels, err := export.LoadLabelMap(labelMapFilePath)
	if os.IsNotExist(err) {
		labels = export.NewLabelMap()
	} else if err != nil {
		return fmt.Errorf("failed to load the label map %q: %v", labelMapFilePath, err)
	}

	r := export.Record{
		Path:  res.OutputPath,
		Label: recordLabel,
		Boxes: []annotate.NormalizedBox{res.Box},
	}
	if err := export.AppendTFRecord(recordFilePath, labels, r); err != nil {
		return err
	}
	return labels.Save(labelMapFilePath)
}
