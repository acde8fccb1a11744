package cli

import (
	"github.com/spf13/cobra"

	"github.com/radiosky/gosky/internal/sky"
	"github.com/radiosky/gosky/internal/spectral"
	"github.com/radiosky/gosky/internal/synthesis"
)

// modelFlags are the model-selection flags shared by generate and
// observe.
type modelFlags struct {
	model   string
	unit    string
	output  string
	basemap string
	interp  string
	cmb     bool
}

func (f *modelFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.model, "model", "m", "gsm08", "model family: gsm08, gsm16, lfsm or haslam")
	cmd.Flags().StringVar(&f.unit, "unit", "", "frequency unit: Hz, MHz or GHz (default per model)")
	cmd.Flags().StringVar(&f.output, "output", "", "output unit: K, TCMB, TRJ or MJysr (default per model)")
	cmd.Flags().StringVar(&f.basemap, "basemap", "", "basemap/resolution choice (default per model)")
	cmd.Flags().StringVar(&f.interp, "interp", "", "spectral interpolation: pchip or cubic (default pchip)")
	cmd.Flags().BoolVar(&f.cmb, "cmb", false, "include the 2.725 K isotropic background")
}

func (f *modelFlags) options() (sky.Options, error) {
	var opts sky.Options
	if f.unit != "" {
		u, err := sky.ParseFreqUnit(f.unit)
		if err != nil {
			return opts, err
		}
		opts.FreqUnit = u
	}
	if f.interp != "" {
		fam, err := spectral.ParseFamily(f.interp)
		if err != nil {
			return opts, err
		}
		opts.Interpolation = fam
	}
	// Output unit and basemap are validated against the model family by
	// the constructor.
	opts.DataUnit = synthesis.DataUnit(f.output)
	opts.Basemap = f.basemap
	opts.IncludeCMB = f.cmb
	return opts, nil
}
