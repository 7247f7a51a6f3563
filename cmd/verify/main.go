// foodfacts-verify
// ----------------
//
// Companion utility for foodfacts-pipeline: loads a processed Parquet file
// (the newest one matching --name, or an explicit --file) and prints
// descriptive statistics.
package main

import (
	"flag"
	"fmt"
	"os"

	"foodfacts-pipeline/config"
	"foodfacts-pipeline/storage"
	"foodfacts-pipeline/verify"
)

func main() {
	cfg := config.Default()

	var (
		file   string
		name   string
		sample int
	)
	flag.StringVar(&file, "file", "", "Explicit Parquet file to analyse (overrides --name)")
	flag.StringVar(&name, "name", config.EnvString("DATASET_NAME", ""),
		"Dataset name; the newest matching file in processed/ is analysed. Env: DATASET_NAME")
	flag.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Root for raw/ and processed/ output. Env: DATA_DIR")
	flag.IntVar(&sample, "sample", 5, "Sample rows to display (0 disables)")
	flag.Parse()

	if file == "" {
		files, err := storage.ListParquet(cfg.ProcessedDir(), name)
		if err != nil || len(files) == 0 {
			fmt.Fprintf(os.Stderr, "no parquet files found in %s; run the pipeline first\n", cfg.ProcessedDir())
			os.Exit(1)
		}
		file = files[len(files)-1]
	}

	t, err := storage.LoadParquet(file)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load parquet:", err)
		os.Exit(1)
	}

	if err := verify.Report(os.Stdout, t, file, sample); err != nil {
		fmt.Fprintln(os.Stderr, "report:", err)
		os.Exit(1)
	}
}
