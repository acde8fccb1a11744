package cli

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/radiosky/gosky/internal/observer"
)

var (
	observeFlags   modelFlags
	observeFreq    float64
	observeLat     float64
	observeLon     float64
	observeAlt     float64
	observeTime    string
	observeHorizon string
)

var observeCmd = &cobra.Command{
	Use:   "observe",
	Short: "Project a sky model onto a ground observer's local sky",
	Long: `Observe synthesizes a map at one frequency, rotates it into the
zenith-centered frame of the given site at the given time, masks pixels
below the horizon elevation and prints the visible-sky summary.`,
	RunE: runObserve,
}

func init() {
	observeFlags.register(observeCmd)
	observeCmd.Flags().Float64VarP(&observeFreq, "freq", "f", 0, "frequency to synthesize at")
	observeCmd.Flags().Float64Var(&observeLat, "lat", 0, "site latitude, degrees north")
	observeCmd.Flags().Float64Var(&observeLon, "lon", 0, "site longitude, degrees east")
	observeCmd.Flags().Float64Var(&observeAlt, "alt", 0, "site elevation, meters")
	observeCmd.Flags().StringVar(&observeTime, "time", "", "observation time, RFC3339 (default now)")
	observeCmd.Flags().StringVar(&observeHorizon, "horizon", "0", "horizon elevation cutoff, degrees")
	observeCmd.MarkFlagRequired("freq")
	observeCmd.MarkFlagRequired("lat")
	observeCmd.MarkFlagRequired("lon")
	rootCmd.AddCommand(observeCmd)
}

func runObserve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	opts, err := observeFlags.options()
	if err != nil {
		return err
	}

	at := time.Now().UTC()
	if observeTime != "" {
		at, err = time.Parse(time.RFC3339, observeTime)
		if err != nil {
			return fmt.Errorf("--time: %w", err)
		}
	}
	horizon, err := observer.HorizonDegreesString(observeHorizon)
	if err != nil {
		return err
	}

	m, err := openModel(cmd.Context(), cfg, observeFlags.model, opts, logger)
	if err != nil {
		return err
	}
	obs, err := observer.New(m, observer.Site{
		LatDeg: observeLat,
		LonDeg: observeLon,
		ElevM:  observeAlt,
	}, logger)
	if err != nil {
		return err
	}

	skyObs, err := obs.Generate(
		observer.WithFrequency(observeFreq),
		observer.WithTime(at),
		observer.WithHorizon(horizon),
	)
	if err != nil {
		return err
	}

	ra, dec, err := obs.ZenithRADec()
	if err != nil {
		return err
	}

	var min, max, mean float64
	n := 0
	for p, v := range skyObs.Values {
		if !skyObs.Visible[p] {
			continue
		}
		if n == 0 || v < min {
			min = v
		}
		if n == 0 || v > max {
			max = v
		}
		mean += v
		n++
	}
	if n > 0 {
		mean /= float64(n)
	}

	fmt.Printf("model=%s freq=%g %s unit=%s time=%s\n",
		m.Name(), observeFreq, m.FreqUnit(), m.DataUnit(), at.Format(time.RFC3339))
	fmt.Printf("site lat=%g lon=%g alt=%gm horizon=%g deg\n",
		observeLat, observeLon, observeAlt, horizon.Degrees())
	fmt.Printf("zenith ra=%.4f deg dec=%.4f deg\n", ra*180/math.Pi, dec*180/math.Pi)
	fmt.Printf("visible=%.1f%%  min=%.4g  max=%.4g  mean=%.4g\n",
		100*skyObs.VisibleFraction(), min, max, mean)
	return nil
}
