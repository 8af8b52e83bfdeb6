package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/molsim-ai/molsim/pkg/models"
	"github.com/molsim-ai/molsim/pkg/predict"
	"github.com/molsim-ai/molsim/pkg/validation"
)

func newPredictCmd(g *globalFlags) *cobra.Command {
	var (
		f         models.PredictionFeatures
		modelPath string
	)

	cmd := &cobra.Command{
		Use:     "predict",
		Short:   "Predict quantum advantage for a molecule's features",
		Example: `  molsim predict --atoms 3 --electrons 10 --qubits 12 --basis-size 14 --complexity 6.5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.Struct(&f); err != nil {
				return err
			}
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if modelPath != "" {
				cfg.Predictor.ModelPath = modelPath
			}

			svc := predict.Load(cfg.Predictor.ModelPath, logger)
			var out any
			res, err := svc.Predict(f)
			switch {
			case err == nil:
				out = res
			case errors.Is(err, predict.ErrModelUnavailable):
				out = predict.Failure(err)
			default:
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().IntVar(&f.NumAtoms, "atoms", 0, "number of atoms")
	cmd.Flags().IntVar(&f.NumElectrons, "electrons", 0, "number of electrons")
	cmd.Flags().IntVar(&f.NumQubits, "qubits", 0, "number of qubits")
	cmd.Flags().IntVar(&f.BasisSetSize, "basis-size", 0, "basis set size")
	cmd.Flags().Float64Var(&f.MolecularComplexity, "complexity", 0, "molecular complexity (0-10]")
	cmd.Flags().StringVar(&modelPath, "model", "", "override predictor.model_path")
	return cmd
}
