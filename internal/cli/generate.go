package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	generateFlags modelFlags
	generateFreqs []float64
	generateFITS  string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Synthesize all-sky maps at the given frequencies",
	Long: `Generate synthesizes an all-sky brightness map for each requested
frequency and prints summary statistics. With --fits the last generated
maps are also written as a HEALPix binary-table FITS file.`,
	RunE: runGenerate,
}

func init() {
	generateFlags.register(generateCmd)
	generateCmd.Flags().Float64SliceVarP(&generateFreqs, "freq", "f", nil, "frequency to synthesize at (repeatable)")
	generateCmd.Flags().StringVar(&generateFITS, "fits", "", "write generated maps to this FITS file")
	generateCmd.MarkFlagRequired("freq")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	opts, err := generateFlags.options()
	if err != nil {
		return err
	}

	m, err := openModel(cmd.Context(), cfg, generateFlags.model, opts, logger)
	if err != nil {
		return err
	}

	gen, err := m.Generate(generateFreqs)
	if err != nil {
		return err
	}

	fmt.Printf("model=%s nside=%d npix=%d unit=%s\n",
		m.Name(), gen.Nside, len(gen.Data[0]), gen.Unit)
	for i, row := range gen.Data {
		min, max, mean := summarize(row)
		fmt.Printf("freq=%g %s  min=%.4g  max=%.4g  mean=%.4g\n",
			gen.Freqs[i], gen.FreqUnit, min, max, mean)
	}

	if generateFITS != "" {
		if err := m.WriteFITS(generateFITS); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", generateFITS)
	}
	return nil
}

func summarize(values []float64) (min, max, mean float64) {
	for i, v := range values {
		if i == 0 || v < min {
			min = v
		}
		if i == 0 || v > max {
			max = v
		}
		mean += v
	}
	if len(values) > 0 {
		mean /= float64(len(values))
	}
	return min, max, mean
}
