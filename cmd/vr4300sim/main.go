// Package main provides the entry point for vr4300sim.
// vr4300sim is a cycle-accurate VR4300 instruction-execution-core
// simulator: it loads a raw binary image into memory and runs the
// five-stage pipeline against it for a fixed number of cycles.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/vr4300sim/bus"
	"github.com/sarchlab/vr4300sim/fault"
	"github.com/sarchlab/vr4300sim/pipeline"
	"github.com/sarchlab/vr4300sim/simconfig"
)

var (
	configPath = flag.String("config", "", "Path to simulator configuration JSON file")
	cycles     = flag.Uint64("cycles", 10000, "Number of pipeline ticks to run")
	loadAddr   = flag.Uint64("load-addr", 0, "Physical address to load the image at")
	verbose    = flag.Bool("v", false, "Verbose output")
	useCache   = flag.Bool("cache", false, "Front the memory bus with an L1 data cache (bus.CachedBus)")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: vr4300sim [options] <image.bin>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	imagePath := flag.Arg(0)

	cfg := simconfig.Default()
	if *configPath != "" {
		loaded, err := simconfig.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	image, err := os.ReadFile(imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading image: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Loaded: %s (%d bytes)\n", imagePath, len(image))
		fmt.Printf("DCB latency: %d cycles, exception cooldown: %d cycles\n",
			cfg.DCBLatencyCycles, cfg.ExceptionCooldownCycles)
	}

	memSize := *loadAddr + uint64(len(image))
	if memSize < 1<<20 {
		memSize = 1 << 20
	}
	mem := bus.NewFlatMemory(int(memSize))
	mem.Load(*loadAddr, image)

	var memBus bus.Bus = mem
	if *useCache {
		memBus = bus.NewCachedBus(mem, bus.DefaultL1DConfig())
		if *verbose {
			fmt.Printf("L1 data cache enabled: %+v\n", bus.DefaultL1DConfig())
		}
	}

	p := pipeline.New(
		pipeline.WithBus(memBus),
		pipeline.WithResetVector(*loadAddr),
		pipeline.WithFaultInjector(fault.NewDefault(cfg.DCBLatencyCycles)),
		pipeline.WithCooldownThreshold(cfg.ExceptionCooldownCycles),
	)

	for i := uint64(0); i < *cycles; i++ {
		p.Tick()
	}

	stats := p.Stats()
	fmt.Printf("\n")
	fmt.Printf("Image: %s\n", imagePath)
	fmt.Printf("Cycles:       %d\n", stats.Cycles)
	fmt.Printf("Instructions: %d\n", stats.Instructions)
	fmt.Printf("Faults:       %d\n", stats.Faults)
	fmt.Printf("Stall cycles: %d\n", stats.StallCycles)
	if stats.Cycles > 0 {
		fmt.Printf("CPI:          %.2f\n", float64(stats.Cycles)/float64(max64(stats.Instructions, 1)))
	}
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
