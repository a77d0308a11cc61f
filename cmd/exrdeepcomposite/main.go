// Command exrdeepcomposite streams N deep-scanline EXR inputs through the
// sort/merge/split/accumulate pipeline and writes a flattened raster, and
// optionally a deep passthrough EXR and a PNG preview.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mrjoshuak/go-openexr/compositecfg"
	"github.com/mrjoshuak/go-openexr/exrsource"
	"github.com/mrjoshuak/go-openexr/internal/clilog"
	"github.com/mrjoshuak/go-openexr/pipeline"
	"github.com/mrjoshuak/go-openexr/rasterio"
)

const version = "1.0"

type options struct {
	inputFiles     []string
	inputZOffsets  []float32
	outputPrefix   string
	modOffset      bool
	deepOutput     bool
	flatOutput     bool
	pngOutput      bool
	mergeThreshold float32
	pngBitDepth    int
	window         int
	chunk          int
	configPath     string
	verbose        bool
	showHelp       bool
}

func defaultOptions() options {
	return options{
		flatOutput:     true,
		pngOutput:      true,
		mergeThreshold: 0.001,
		pngBitDepth:    8,
		window:         32,
		chunk:          16,
	}
}

func printUsage(programName string) {
	fmt.Printf(`Deep Image Compositor v%s

Usage: %s [options] <input1.exr> [input2.exr ...] <output_prefix>

Options:
  --deep-output        Write merged deep EXR (default: off)
  --flat-output        Write flattened EXR (default: on)
  --no-flat-output     Don't write flattened EXR
  --png-output         Write PNG preview (default: on)
  --no-png-output      Don't write PNG preview
  --mod-offset         Interpret a float following each input as its Z offset
  --merge-threshold N  Depth epsilon for merging samples (default: 0.001)
  --config PATH        Load compositing defaults from a TOML file
  --verbose, -v        Detailed logging
  --help, -h           Show this help message

Example:
  %s --deep-output --verbose \
      test_data/sphere_front.exr \
      test_data/sphere_back.exr \
      test_data/ground_plane.exr \
      output/result

Outputs:
  <output_prefix>_merged.exr  (deep EXR, if --deep-output)
  <output_prefix>_flat.exr    (standard EXR, if --flat-output)
  <output_prefix>.png         (preview image, if --png-output)
`, version, programName, programName)
}

func isFloat(s string) bool {
	_, err := strconv.ParseFloat(s, 32)
	return err == nil
}

func parseArgs(args []string, opts *options) bool {
	if len(args) == 0 {
		return false
	}

	var positional []string
	i := 0
	for i < len(args) {
		arg := args[i]
		switch {
		case arg == "--help" || arg == "-h":
			opts.showHelp = true
			return true
		case arg == "--verbose" || arg == "-v":
			opts.verbose = true
		case arg == "--deep-output":
			opts.deepOutput = true
		case arg == "--flat-output":
			opts.flatOutput = true
		case arg == "--no-flat-output":
			opts.flatOutput = false
		case arg == "--png-output":
			opts.pngOutput = true
		case arg == "--no-png-output":
			opts.pngOutput = false
		case arg == "--mod-offset":
			opts.modOffset = true
		case arg == "--merge-threshold":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "Error: --merge-threshold requires a value")
				return false
			}
			v, err := strconv.ParseFloat(args[i], 32)
			if err != nil {
				fmt.Fprintln(os.Stderr, "Error: invalid merge threshold value")
				return false
			}
			opts.mergeThreshold = float32(v)
		case arg == "--config":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "Error: --config requires a path")
				return false
			}
			opts.configPath = args[i]
		case strings.HasPrefix(arg, "-") && !isFloat(arg):
			fmt.Fprintf(os.Stderr, "Error: unknown option: %s\n", arg)
			return false
		default:
			if opts.modOffset && isFloat(arg) {
				if len(positional) != len(opts.inputZOffsets)+1 {
					fmt.Fprintln(os.Stderr, "Error: mismatched position of Z offset value")
					return false
				}
				v, _ := strconv.ParseFloat(arg, 32)
				opts.inputZOffsets = append(opts.inputZOffsets, float32(v))
			} else {
				if opts.modOffset && len(positional) == len(opts.inputZOffsets)+1 {
					opts.inputZOffsets = append(opts.inputZOffsets, 0)
				}
				positional = append(positional, arg)
			}
		}
		i++
	}

	if opts.modOffset && len(positional) != len(opts.inputZOffsets) {
		opts.inputZOffsets = append(opts.inputZOffsets, 0)
	}

	if len(positional) < 2 {
		fmt.Fprintln(os.Stderr, "Error: need at least one input file and an output prefix")
		return false
	}

	opts.outputPrefix = positional[len(positional)-1]
	opts.inputFiles = positional[:len(positional)-1]
	return true
}

// applyConfig fills in any field the CLI left at its built-in default from a
// loaded config. CLI flags are detected by comparing against
// defaultOptions, so an explicit flag wins over the file unless its value
// equals the built-in default, in which case the file's value is used.
func applyConfig(opts *options, conf compositecfg.Config, defaults options) {
	if opts.mergeThreshold == defaults.mergeThreshold && conf.MergeThreshold != 0 {
		opts.mergeThreshold = float32(conf.MergeThreshold)
	}
	if opts.window == defaults.window {
		opts.window = conf.Window
	}
	if opts.chunk == defaults.chunk {
		opts.chunk = conf.Chunk
	}
	if opts.pngBitDepth == defaults.pngBitDepth {
		opts.pngBitDepth = conf.PNGBitDepth
	}
	if !opts.deepOutput {
		opts.deepOutput = conf.DeepOutput
	}
}

func run(args []string) int {
	opts := defaultOptions()
	defaults := opts

	if !parseArgs(args, &opts) {
		printUsage(programName())
		return 1
	}
	if opts.showHelp {
		printUsage(programName())
		return 0
	}
	clilog.SetVerbose(opts.verbose)

	if opts.configPath != "" {
		conf, err := compositecfg.Load(opts.configPath)
		if err != nil {
			clilog.Error("Error: %v", err)
			return 1
		}
		applyConfig(&opts, conf, defaults)
	}

	clilog.Info("Deep Compositor v%s", version)
	clilog.Info("Loading inputs...")

	sources := make([]pipeline.Source, 0, len(opts.inputFiles))
	for i, path := range opts.inputFiles {
		clilog.Verbose("[%d/%d] loading %s", i+1, len(opts.inputFiles), path)
		src, err := exrsource.NewReader(path)
		if err != nil {
			clilog.Error("Error: %v", err)
			return 1
		}
		defer src.Close()
		sources = append(sources, src)
	}

	var deepSink pipeline.DeepSink
	if opts.deepOutput {
		w, h := sources[0].Width(), sources[0].Height()
		writer, err := exrsource.NewWriter(opts.outputPrefix+"_merged.exr", w, h)
		if err != nil {
			clilog.Error("Error: %v", err)
			return 1
		}
		deepSink = writer
	}

	pOpts := pipeline.Options{
		Epsilon:  opts.mergeThreshold,
		ZOffsets: opts.inputZOffsets,
		Window:   opts.window,
		Chunk:    opts.chunk,
		DeepSink: deepSink,
	}

	clilog.Info("Merging and flattening...")
	raster, err := pipeline.Run(context.Background(), sources, pOpts)
	if err != nil {
		clilog.Error("Error: %v", err)
		return 1
	}
	if opts.deepOutput {
		clilog.Info("  Wrote: %s_merged.exr", opts.outputPrefix)
	}

	clilog.Info("Writing outputs...")
	if opts.flatOutput {
		path := opts.outputPrefix + "_flat.exr"
		if err := rasterio.NewFlatWriter(path).WriteRaster(raster); err != nil {
			clilog.Error("Error: %v", err)
			return 1
		}
		clilog.Info("  Wrote: %s", path)
	}
	if opts.pngOutput {
		path := opts.outputPrefix + ".png"
		if err := rasterio.NewPNGWriter(path, opts.pngBitDepth).WriteRaster(raster); err != nil {
			clilog.Error("Error: %v", err)
			return 1
		}
		clilog.Info("  Wrote: %s", path)
	}

	clilog.Info("Done.")
	return 0
}

func programName() string {
	if len(os.Args) == 0 {
		return "exrdeepcomposite"
	}
	return os.Args[0]
}

func main() {
	os.Exit(run(os.Args[1:]))
}
