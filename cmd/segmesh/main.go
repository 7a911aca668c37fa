package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/plan-systems/klog"

	"segmesh/internal/models"
	"segmesh/pkg/config"
	"segmesh/pkg/decimation"
	"segmesh/pkg/stl"
	"segmesh/pkg/surface"
	"segmesh/pkg/visualization"
)

func main() {
	fset := flag.NewFlagSet("", flag.ContinueOnError)
	klog.InitFlags(fset)
	fset.Set("logtostderr", "true")
	fset.Set("v", "1")
	klog.SetFormatter(&klog.FmtConstWidth{
		FileNameCharWidth: 16,
		UseColor:          true,
	})
	defer klog.Flush()

	inputs := flag.String("input", "", "Comma-separated list of binary STL files or .raw label volumes")
	outputDir := flag.String("output", ".", "Directory for the decimated STL files")
	configPath := flag.String("config", "segmesh.yaml", "YAML configuration file")
	initConfig := flag.Bool("init-config", false, "Write a default configuration file and exit")
	dims := flag.String("dims", "", "Dimensions WxHxD of .raw label volumes")
	spacing := flag.String("spacing", "1,1,1", "Voxel size x,y,z of .raw label volumes")
	labels := flag.String("labels", "", "Name of the per-triangle domain label array")
	minLength := flag.Float64("min", 0, "Minimum edge length (overrides config)")
	maxLength := flag.Float64("max", 0, "Split edges longer than this (overrides config)")
	angle := flag.Float64("angle", 0, "Maximum normal deviation in degrees (overrides config)")
	level := flag.Int("level", -1, "Intersection check level 0-4 (overrides config)")
	flip := flag.Bool("flip", false, "Run the Delaunay flip pass")
	snapshot := flag.Bool("snapshot", false, "Save x, y and z snapshots of every result")
	workers := flag.Int("workers", 0, "Number of inputs decimated concurrently (overrides config)")
	verbose := flag.Bool("verbose", false, "Log every pass")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			klog.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	if *inputs == "" && flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}
	files := flag.Args()
	if *inputs != "" {
		files = append(strings.Split(*inputs, ","), files...)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		klog.Fatalf("Failed to load config: %v", err)
	}
	if *labels != "" {
		cfg.Output.LabelName = *labels
	}
	if *minLength > 0 {
		cfg.Decimation.MinimumEdgeLength = *minLength
	}
	if *maxLength > 0 {
		cfg.Decimation.UseMaximumEdgeLength = true
		cfg.Decimation.MaximumEdgeLength = *maxLength
	}
	if *angle > 0 {
		cfg.Decimation.MaximumNormalAngleDeviation = *angle
	}
	if *level >= 0 {
		cfg.Decimation.IntersectionCheckLevel = *level
	}
	if *flip {
		cfg.Decimation.FlipEdges = true
	}
	if *snapshot {
		cfg.Output.Snapshot = true
	}
	if *workers > 0 {
		cfg.Processing.NumWorkers = *workers
	}
	if *verbose || cfg.Output.Verbose {
		fset.Set("v", "2")
	}

	var vol volumeSpec
	if *dims != "" {
		if vol, err = parseVolumeSpec(*dims, *spacing); err != nil {
			klog.Fatalf("Invalid volume options: %v", err)
		}
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		klog.Fatalf("Failed to create output directory: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("SEGMESH: TOPOLOGY-PRESERVING DECIMATION OF SEGMENTATION SURFACES")
	fmt.Println("================================")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	startTime := time.Now()
	results := processFiles(ctx, cfg, files, vol, *outputDir)

	failed := 0
	for _, res := range results {
		if res.err != nil && res.stats == nil {
			failed++
			klog.Errorf("%s: %v", res.input, res.err)
			continue
		}
		printStatistics(res)
	}

	fmt.Printf("\nProcessed %d of %d inputs in %.2f seconds using %d workers\n",
		len(files)-failed, len(files), time.Since(startTime).Seconds(), cfg.Processing.NumWorkers)
	if failed > 0 {
		klog.Flush()
		os.Exit(1)
	}
}

// volumeSpec describes how .raw inputs are interpreted
type volumeSpec struct {
	width, height, depth int
	voxel                [3]float64
}

func parseVolumeSpec(dims, spacing string) (volumeSpec, error) {
	var vs volumeSpec
	parts := strings.Split(strings.ToLower(dims), "x")
	if len(parts) != 3 {
		return vs, errors.Errorf("dimensions %q are not WxHxD", dims)
	}
	var sizes [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n <= 0 {
			return vs, errors.Errorf("invalid dimension %q", p)
		}
		sizes[i] = n
	}
	vs.width, vs.height, vs.depth = sizes[0], sizes[1], sizes[2]

	parts = strings.Split(spacing, ",")
	if len(parts) != 3 {
		return vs, errors.Errorf("spacing %q is not x,y,z", spacing)
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || f <= 0 {
			return vs, errors.Errorf("invalid voxel size %q", p)
		}
		vs.voxel[i] = f
	}
	return vs, nil
}

// fileResult is the outcome of decimating one input
type fileResult struct {
	input   string
	output  string
	stats   *decimation.Statistics
	aborted bool
	elapsed time.Duration
	err     error
}

// processFiles decimates every input, at most NumWorkers at a time, and
// returns the results in input order
func processFiles(ctx context.Context, cfg *config.Config, files []string, vol volumeSpec, outputDir string) []fileResult {
	numWorkers := cfg.Processing.NumWorkers
	if numWorkers < 1 {
		numWorkers = 1
	}

	type indexedResult struct {
		idx int
		res fileResult
	}
	resultChan := make(chan indexedResult)
	slots := make(chan struct{}, numWorkers)

	for i, file := range files {
		go func(idx int, input string) {
			slots <- struct{}{}
			defer func() { <-slots }()

			var progress decimation.ProgressCallback
			if len(files) == 1 {
				progress = func(completed, total int, message string) {
					if total > 0 {
						fmt.Printf("\r%s: %.1f%% of queue processed", message, float64(completed)*100/float64(total))
					}
				}
			}
			resultChan <- indexedResult{idx, processFile(ctx, cfg, input, vol, outputDir, progress)}
		}(i, strings.TrimSpace(file))
	}

	results := make([]fileResult, len(files))
	for completed := 1; completed <= len(files); completed++ {
		r := <-resultChan
		results[r.idx] = r.res
		fmt.Printf("\rProcessing inputs: %.1f%% complete", float64(completed)*100/float64(len(files)))
	}
	fmt.Println()
	return results
}

// processFile loads, decimates and saves one input
func processFile(ctx context.Context, cfg *config.Config, input string, vol volumeSpec, outputDir string, progress decimation.ProgressCallback) fileResult {
	res := fileResult{input: input}
	start := time.Now()
	labelName := cfg.Output.LabelName

	in, err := loadInput(input, vol, labelName, cfg.Processing.WeldTolerance)
	if err != nil {
		res.err = err
		return res
	}

	params := cfg.DecimationParams()
	params.Progress = progress
	out, err := decimation.NewDecimator(params).Process(ctx, in)
	if out == nil {
		res.err = err
		return res
	}
	res.stats = &out.Stats
	res.aborted = out.Aborted
	res.err = err

	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	res.output = filepath.Join(outputDir, base+"_decimated.stl")
	if err := stl.SaveToSTL(res.output, stl.FromMesh(out.Mesh, labelName)); err != nil {
		return fileResult{input: input, err: err}
	}

	if cfg.Output.Snapshot {
		viewer := visualization.NewViewer(out.Mesh, labelName, cfg.Output.SnapshotSize)
		if err := viewer.SaveSnapshotSequence(filepath.Join(outputDir, base+"_snapshots"), base); err != nil {
			klog.Warningf("%s: failed to save snapshots: %v", input, err)
		}
	}

	res.elapsed = time.Since(start)
	return res
}

// loadInput reads an STL file, or extracts the surface of a .raw label volume
func loadInput(input string, vol volumeSpec, labelName string, weld float64) (*models.Mesh, error) {
	if strings.EqualFold(filepath.Ext(input), ".raw") {
		if vol.width == 0 {
			return nil, errors.Errorf("%s: -dims is required for .raw volumes", input)
		}
		v, err := surface.LoadRaw(input, vol.width, vol.height, vol.depth)
		if err != nil {
			return nil, err
		}
		v.VoxelSize.X, v.VoxelSize.Y, v.VoxelSize.Z = vol.voxel[0], vol.voxel[1], vol.voxel[2]
		return surface.Extract(v, labelName), nil
	}

	tris, err := stl.LoadSTL(input)
	if err != nil {
		return nil, err
	}
	return stl.ToMesh(tris, weld, labelName), nil
}

func printStatistics(res fileResult) {
	s := res.stats
	fmt.Printf("\n%s -> %s\n", res.input, res.output)
	if res.aborted {
		fmt.Printf("Run interrupted, partial result saved: %v\n", res.err)
	} else if res.err != nil {
		fmt.Printf("Warning: %v\n", res.err)
	}
	fmt.Printf("Decimation Statistics:\n")
	fmt.Printf("=======================================\n")
	fmt.Printf("Triangles: %d -> %d (%.1f%% reduction)\n", s.InputTriangles, s.OutputTriangles, s.Reduction*100)
	fmt.Printf("Edge collapses: %d\n", s.NumberOfEdgeCollapses)
	fmt.Printf("Edge flips: %d\n", s.NumberOfEdgeFlips)
	fmt.Printf("Edge splits: %d\n", s.NumberOfEdgeSplits)
	fmt.Printf("Folded interface triangles: %d\n", s.FoldedTriangles)
	fmt.Printf("Non-manifold input: %v\n", s.InputIsNonmanifold)
	fmt.Printf("Edge length before: %.4f ± %.4f\n", s.MeanEdgeLengthBefore, s.StdDevEdgeLengthBefore)
	fmt.Printf("Edge length after: %.4f ± %.4f\n", s.MeanEdgeLengthAfter, s.StdDevEdgeLengthAfter)
	fmt.Printf("Processing time: %.2f seconds\n", res.elapsed.Seconds())
}
