package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/mikegeo98/cloud-sort/pkg/bench"
	"github.com/mikegeo98/cloud-sort/pkg/device"
	"github.com/mikegeo98/cloud-sort/pkg/extsim"
	"github.com/mikegeo98/cloud-sort/pkg/radix"
)

func verifyEngines(nelem int) error {
	orig := radix.RandomInputs(nelem)
	cfg := radix.DefaultConfig()

	local, err := radix.SortConfig(orig, cfg)
	if err != nil {
		return fmt.Errorf("Local sort failed: %v", err)
	}
	if err := radix.CheckSort(orig, local); err != nil {
		return fmt.Errorf("Local sort sorted wrong: %v", err)
	}

	dctx, err := device.NewContext(bench.DevUnits, bench.DevMem)
	if err != nil {
		return fmt.Errorf("Couldn't create device context: %v", err)
	}

	eng, err := device.NewEngine(dctx, cfg)
	if err != nil {
		return fmt.Errorf("Couldn't create device engine: %v", err)
	}

	orch, err := radix.NewOrchestrator(cfg, eng)
	if err != nil {
		return fmt.Errorf("Couldn't create orchestrator: %v", err)
	}

	dev, err := orch.Sort(context.Background(), orig)
	if err != nil {
		return fmt.Errorf("Device sort failed: %v", err)
	}
	if err := radix.CheckSort(orig, dev); err != nil {
		return fmt.Errorf("Device sort sorted wrong: %v", err)
	}

	xfer := dctx.Stats()
	fmt.Printf("Total H->D bytes: %v\n", xfer.HostToDevice)
	fmt.Printf("Total D->H bytes: %v\n", xfer.DeviceToHost)
	return nil
}

func reportExtSim() {
	// 10GB dataset, S3-like store, lambda-like workers
	datasetMB := 10.0 * 1024
	store := extsim.NewObjectStore(50, 100, 0.2, 0.023, 0.000005, 64, 42)
	node := extsim.NewComputeNode(100, 6, 0.1, 4, 42)

	for _, v := range extsim.Variants(4) {
		t, c := v.Run(datasetMB, store, node)
		fmt.Printf("Algorithm: %v\n", v.Name())
		fmt.Printf("  Total time: %v seconds\n", t)
		fmt.Printf("  Total cost: $%v\n", c)
		fmt.Println("-----------------------------")
	}
}

func main() {
	retcode := 0
	defer func() { os.Exit(retcode) }()

	logrus.SetLevel(logrus.InfoLevel)

	fmt.Println("Verifying engines")
	if err := verifyEngines(1024); err != nil {
		fmt.Printf("Failure: %v\n", err)
		retcode = 1
		return
	}

	fmt.Println("Running benchmarks")
	stats, err := bench.RunBenchmarks(256*1024, 5)
	if err != nil {
		fmt.Printf("Benchmark failure: %v\n", err)
		retcode = 1
		return
	}

	for name, engStats := range stats {
		fmt.Printf("%v:\n", name)
		bench.ReportStats(engStats, os.Stdout)
	}

	fmt.Println("External sort cost model:")
	reportExtSim()

	fmt.Println("Success!")
}
