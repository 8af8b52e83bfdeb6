package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/molsim-ai/molsim/pkg/app"
	"github.com/molsim-ai/molsim/pkg/models"
	"github.com/molsim-ai/molsim/pkg/validation"
)

func newSimulateCmd(g *globalFlags) *cobra.Command {
	var (
		file     string
		hardware bool
		noImages bool
	)

	cmd := &cobra.Command{
		Use:     "simulate",
		Short:   "Run one simulation from a JSON or YAML molecule file",
		Example: `  molsim simulate -f h2.json
  cat h2.yaml | molsim simulate -f - --no-images`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readMoleculeRequest(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if hardware {
				req.UseQuantumHardware = true
			}
			if err := validation.Struct(&req); err != nil {
				return err
			}

			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			svc, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			res := svc.Simulation.Simulate(cmd.Context(), req)
			if noImages && res.Success != nil {
				res.Success.MoleculeImage = ""
				res.Success.EnergyPlot = ""
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "molecule file (.json, .yaml or - for stdin)")
	cmd.Flags().BoolVar(&hardware, "hardware", false, "request the quantum hardware backend")
	cmd.Flags().BoolVar(&noImages, "no-images", false, "omit the base64 molecule image and energy plot")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// readMoleculeRequest decodes a request from path, YAML when the extension
// says so and JSON otherwise. Defaults apply to omitted fields.
func readMoleculeRequest(path string, stdin io.Reader) (models.MoleculeRequest, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return models.MoleculeRequest{}, fmt.Errorf("read molecule: %w", err)
	}

	req := models.NewMoleculeRequest()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &req)
	default:
		err = json.Unmarshal(data, &req)
	}
	if err != nil {
		return models.MoleculeRequest{}, fmt.Errorf("parse molecule %s: %w", path, err)
	}
	return req, nil
}
